package service

import (
	"context"
	"errors"

	"batepapo/backend/internal/models"
	"batepapo/backend/internal/repository"
	"batepapo/backend/pkg/clock"
	"batepapo/backend/pkg/logger"
	"batepapo/backend/pkg/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Presence answers whether a name is currently in the room
type Presence interface {
	IsPresent(ctx context.Context, name string) (bool, error)
}

// MessageService owns the message log: posting, reading, editing and deleting
type MessageService struct {
	messages repository.MessageRepository
	presence Presence
	clock    clock.Clock
	log      *logger.Logger
	metrics  *observability.Metrics
}

// NewMessageService creates a new message service
func NewMessageService(messages repository.MessageRepository, presence Presence, clk clock.Clock, log *logger.Logger, metrics *observability.Metrics) *MessageService {
	return &MessageService{
		messages: messages,
		presence: presence,
		clock:    clk,
		log:      log,
		metrics:  metrics,
	}
}

// Post appends a message authored by the caller. The author must be present.
func (s *MessageService) Post(ctx context.Context, rawAuthor string, in MessageInput) (*models.Message, error) {
	author, in, err := prepare(rawAuthor, in)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "MessageService.Post")
	defer span.End()
	span.SetAttributes(attribute.String("author", author), attribute.String("type", in.Type))

	present, err := s.presence.IsPresent(ctx, author)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, ErrNotPresent
	}

	message := &models.Message{
		From: author,
		To:   in.To,
		Text: in.Text,
		Type: models.MessageType(in.Type),
		Time: s.clock.Now().Format(models.TimeLayout),
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, storageErr("post message", err)
	}

	s.metrics.MessagePosted(ctx, in.Type)
	s.log.Debug("Message posted", "id", message.ID, "from", author, "type", in.Type)
	return message, nil
}

// Get returns a single message by id
func (s *MessageService) Get(ctx context.Context, id string) (*models.Message, error) {
	message, err := s.messages.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, storageErr("get message", err)
	}
	return message, nil
}

// List returns the messages visible to reader, oldest first. A positive
// limit keeps only the most recent entries.
func (s *MessageService) List(ctx context.Context, rawReader string, limit int) ([]models.Message, error) {
	ctx, span := tracer.Start(ctx, "MessageService.List")
	defer span.End()

	all, err := s.messages.List(ctx)
	if err != nil {
		return nil, storageErr("list messages", err)
	}
	return VisibleTo(all, Sanitize(rawReader), limit), nil
}

// Edit overwrites the audience, text and type of a message the caller wrote.
// Id, author and time never change.
func (s *MessageService) Edit(ctx context.Context, id, rawEditor string, in MessageInput) (*models.Message, error) {
	editor, in, err := prepare(rawEditor, in)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "MessageService.Edit")
	defer span.End()

	message, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(message, editor); err != nil {
		return nil, err
	}

	message.To = in.To
	message.Text = in.Text
	message.Type = models.MessageType(in.Type)
	if err := s.messages.Update(ctx, message); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, storageErr("edit message", err)
	}

	s.log.Debug("Message edited", "id", id, "by", editor)
	return message, nil
}

// Delete permanently removes a message the caller wrote
func (s *MessageService) Delete(ctx context.Context, id, rawRequester string) error {
	requester := Sanitize(rawRequester)

	ctx, span := tracer.Start(ctx, "MessageService.Delete")
	defer span.End()

	message, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(message, requester); err != nil {
		return err
	}

	if err := s.messages.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMessageNotFound
		}
		return storageErr("delete message", err)
	}

	s.log.Debug("Message deleted", "id", id, "by", requester)
	return nil
}

// authorize allows mutation only by the exact author. Status notices are
// system-originated and never mutable, whoever asks.
func authorize(message *models.Message, identity string) error {
	if message.IsStatus() {
		return ErrForbidden
	}
	if identity == "" || message.From != identity {
		return ErrForbidden
	}
	return nil
}

// prepare sanitizes and validates the caller identity and message body
func prepare(rawIdentity string, in MessageInput) (string, MessageInput, error) {
	identity, err := ValidateIdentity(rawIdentity)
	in.sanitize()
	verr := validateStruct(&in)

	var fields []FieldError
	for _, e := range []error{err, verr} {
		var ve *ValidationError
		if errors.As(e, &ve) {
			fields = append(fields, ve.Fields...)
		} else if e != nil {
			return "", in, e
		}
	}
	if len(fields) > 0 {
		return "", in, &ValidationError{Fields: fields}
	}
	return identity, in, nil
}
