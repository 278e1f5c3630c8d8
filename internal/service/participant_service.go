package service

import (
	"context"
	"errors"

	"batepapo/backend/internal/models"
	"batepapo/backend/internal/repository"
	"batepapo/backend/pkg/clock"
	"batepapo/backend/pkg/logger"
	"batepapo/backend/pkg/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("batepapo/backend/internal/service")

// ParticipantService manages the registry of present participants
type ParticipantService struct {
	participants repository.ParticipantRepository
	messages     repository.MessageRepository
	clock        clock.Clock
	log          *logger.Logger
	metrics      *observability.Metrics
}

// NewParticipantService creates a new participant service
func NewParticipantService(store *repository.Store, clk clock.Clock, log *logger.Logger, metrics *observability.Metrics) *ParticipantService {
	return &ParticipantService{
		participants: store.Participants,
		messages:     store.Messages,
		clock:        clk,
		log:          log,
		metrics:      metrics,
	}
}

// Join registers a participant and announces the arrival to everyone.
// Name uniqueness is enforced by the repository, not by a lookup here.
func (s *ParticipantService) Join(ctx context.Context, in JoinInput) (*models.Participant, error) {
	in.sanitize()
	if err := validateStruct(&in); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "ParticipantService.Join")
	defer span.End()
	span.SetAttributes(attribute.String("participant", in.Name))

	now := s.clock.Now()
	participant := models.NewParticipant(in.Name, now)
	if err := s.participants.Create(ctx, participant); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, storageErr("join", err)
	}

	arrival := models.NewStatusMessage(participant.Name, models.ArrivalText, now)
	if err := s.messages.Create(ctx, arrival); err != nil {
		// Undo the registration so a retry can succeed, even if the caller is gone
		if derr := s.participants.Delete(context.WithoutCancel(ctx), participant.Name); derr != nil {
			s.log.LogError(derr, "Failed to roll back participant after join failure", "name", participant.Name)
		}
		return nil, storageErr("join", err)
	}

	s.metrics.ParticipantJoined(ctx)
	s.log.Info("Participant joined", "name", participant.Name)
	return participant, nil
}

// Heartbeat refreshes the presence timestamp of a participant
func (s *ParticipantService) Heartbeat(ctx context.Context, rawName string) error {
	name := Sanitize(rawName)
	if name == "" {
		return ErrParticipantNotFound
	}

	err := s.participants.Touch(ctx, name, s.clock.Now().UnixMilli())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrParticipantNotFound
		}
		return storageErr("heartbeat", err)
	}
	return nil
}

// List returns every present participant
func (s *ParticipantService) List(ctx context.Context) ([]models.Participant, error) {
	participants, err := s.participants.List(ctx)
	if err != nil {
		return nil, storageErr("list participants", err)
	}
	if participants == nil {
		participants = []models.Participant{}
	}
	return participants, nil
}

// IsPresent reports whether name is currently registered
func (s *ParticipantService) IsPresent(ctx context.Context, name string) (bool, error) {
	_, err := s.participants.Get(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, storageErr("lookup participant", err)
	}
	return true, nil
}
