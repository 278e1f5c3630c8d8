package repository

import (
	"context"
	"errors"

	"batepapo/backend/internal/models"
)

var (
	// ErrNotFound is returned when a participant or message does not exist
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a participant name is already taken
	ErrDuplicate = errors.New("record already exists")
)

// ParticipantRepository persists the set of present participants, keyed by name.
// Implementations must be safe for concurrent use and must enforce name
// uniqueness in Create themselves.
type ParticipantRepository interface {
	Create(ctx context.Context, participant *models.Participant) error
	Get(ctx context.Context, name string) (*models.Participant, error)
	List(ctx context.Context) ([]models.Participant, error)
	// Touch sets LastStatus for an existing participant
	Touch(ctx context.Context, name string, lastStatus int64) error
	// ListStale returns participants whose LastStatus is at or before cutoff
	ListStale(ctx context.Context, cutoff int64) ([]models.Participant, error)
	// DeleteIfStale removes the participant only if its LastStatus is still at
	// or before cutoff. It reports whether a record was removed.
	DeleteIfStale(ctx context.Context, name string, cutoff int64) (bool, error)
	Delete(ctx context.Context, name string) error
}

// MessageRepository persists the message log. List returns messages in
// insertion order, oldest first.
type MessageRepository interface {
	// Create assigns ID and Seq on the given message
	Create(ctx context.Context, message *models.Message) error
	Get(ctx context.Context, id string) (*models.Message, error)
	List(ctx context.Context) ([]models.Message, error)
	// Update overwrites To, Text and Type of an existing message
	Update(ctx context.Context, message *models.Message) error
	Delete(ctx context.Context, id string) error
}

// Evictor is implemented by backends that hold both collections and can remove
// a stale participant and append its departure message in one transaction.
type Evictor interface {
	Evict(ctx context.Context, name string, cutoff int64, departure *models.Message) (bool, error)
}

// Pinger is implemented by backends that can report connectivity
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store groups the two collections used by the services
type Store struct {
	Participants ParticipantRepository
	Messages     MessageRepository
	// Evictor is set when both collections live in the same transactional backend
	Evictor Evictor
	closers []func() error
}

// OnClose registers a cleanup function run by Close
func (s *Store) OnClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

// Close releases backend connections in reverse registration order
func (s *Store) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Ping checks every collection backend that supports it
func (s *Store) Ping(ctx context.Context) error {
	for _, r := range []any{s.Participants, s.Messages} {
		if p, ok := r.(Pinger); ok {
			if err := p.Ping(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}
