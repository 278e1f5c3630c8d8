package service

import (
	"context"
	"io"
	"testing"
	"time"

	"batepapo/backend/internal/models"
	"batepapo/backend/internal/repository"
	"batepapo/backend/pkg/clock"
	"batepapo/backend/pkg/logger"
	"batepapo/backend/pkg/observability"

	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store        *repository.Store
	clock        *clock.Manual
	log          *logger.Logger
	metrics      *observability.Metrics
	participants *ParticipantService
	messages     *MessageService
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Output: io.Discard})
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, repository.NewMemoryStore())
}

func newFixtureWithStore(t *testing.T, store *repository.Store) *fixture {
	t.Helper()
	f := &fixture{
		store:   store,
		clock:   clock.NewManual(epoch),
		log:     quietLogger(),
		metrics: observability.NoopMetrics(),
	}
	f.participants = NewParticipantService(store, f.clock, f.log, f.metrics)
	f.messages = NewMessageService(store.Messages, f.participants, f.clock, f.log, f.metrics)
	return f
}

func (f *fixture) join(t *testing.T, name string) {
	t.Helper()
	_, err := f.participants.Join(context.Background(), JoinInput{Name: name})
	require.NoError(t, err)
}

func (f *fixture) post(t *testing.T, from, to, text string, kind models.MessageType) *models.Message {
	t.Helper()
	m, err := f.messages.Post(context.Background(), from, MessageInput{To: to, Text: text, Type: string(kind)})
	require.NoError(t, err)
	return m
}

func (f *fixture) sweeper(config SweeperConfig) *Sweeper {
	return NewSweeper(f.store, f.clock, f.log, f.metrics, config)
}

func texts(messages []models.Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Text)
	}
	return out
}
