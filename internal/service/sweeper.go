package service

import (
	"context"
	"errors"
	"time"

	"batepapo/backend/internal/models"
	"batepapo/backend/internal/repository"
	"batepapo/backend/pkg/clock"
	"batepapo/backend/pkg/logger"
	"batepapo/backend/pkg/observability"
	"batepapo/backend/pkg/resilience"

	"go.opentelemetry.io/otel/attribute"
)

// SweeperConfig holds the eviction schedule. Interval and StaleThreshold are
// independent.
type SweeperConfig struct {
	// Interval is the time between two sweeps
	Interval time.Duration
	// StaleThreshold is how long a participant may go without a heartbeat
	StaleThreshold time.Duration
}

// DefaultSweeperConfig returns the reference schedule
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:       15 * time.Second,
		StaleThreshold: 10 * time.Second,
	}
}

// Sweeper periodically evicts participants that stopped sending heartbeats
// and announces each departure to everyone
type Sweeper struct {
	store   *repository.Store
	clock   clock.Clock
	log     *logger.Logger
	metrics *observability.Metrics
	config  SweeperConfig
	breaker *resilience.Breaker
}

// NewSweeper creates a new sweeper
func NewSweeper(store *repository.Store, clk clock.Clock, log *logger.Logger, metrics *observability.Metrics, config SweeperConfig) *Sweeper {
	return &Sweeper{
		store:   store,
		clock:   clk,
		log:     log.ForComponent("sweeper"),
		metrics: metrics,
		config:  config,
	}
}

// UseBreaker makes scheduled sweeps stop hitting storage for a while after
// repeated listing failures
func (s *Sweeper) UseBreaker(b *resilience.Breaker) {
	s.breaker = b
}

// Sweep runs one eviction pass and returns how many participants were
// evicted. A participant whose eviction fails is logged and skipped; only a
// failure to list candidates is returned.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "Sweeper.Sweep")
	defer span.End()

	started := time.Now()
	defer func() { s.metrics.SweepCompleted(ctx, time.Since(started)) }()

	now := s.clock.Now()
	cutoff := now.Add(-s.config.StaleThreshold).UnixMilli()

	stale, err := s.store.Participants.ListStale(ctx, cutoff)
	if err != nil {
		s.log.LogError(err, "Failed to list stale participants")
		return 0, storageErr("list stale participants", err)
	}

	evicted := 0
	for _, participant := range stale {
		removed, err := s.evict(ctx, participant, cutoff, now)
		if err != nil {
			s.metrics.SweepFailed(ctx)
			s.log.LogError(err, "Failed to evict participant", "name", participant.Name)
			continue
		}
		if !removed {
			// Heartbeat arrived between selection and removal.
			continue
		}
		evicted++
		s.metrics.ParticipantEvicted(ctx)
		s.log.Info("Participant evicted", "name", participant.Name, "last_seen", participant.LastSeen())
	}

	span.SetAttributes(attribute.Int("evicted", evicted))
	return evicted, nil
}

// evict removes a participant and appends its departure as one unit. Without
// a transactional backend the removal is undone if the departure cannot be
// written.
func (s *Sweeper) evict(ctx context.Context, participant models.Participant, cutoff int64, now time.Time) (bool, error) {
	departure := models.NewStatusMessage(participant.Name, models.DepartureText, now)
	if s.store.Evictor != nil {
		return s.store.Evictor.Evict(ctx, participant.Name, cutoff, departure)
	}

	removed, err := s.store.Participants.DeleteIfStale(ctx, participant.Name, cutoff)
	if err != nil || !removed {
		return false, err
	}
	if err := s.store.Messages.Create(ctx, departure); err != nil {
		restored := participant
		if rerr := s.store.Participants.Create(context.WithoutCancel(ctx), &restored); rerr != nil && !errors.Is(rerr, repository.ErrDuplicate) {
			return false, errors.Join(err, rerr)
		}
		return false, err
	}
	return true, nil
}

// Run sweeps on every tick until ctx is cancelled. Ticks run one after
// another; a slow sweep delays the next one instead of overlapping it.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.log.Info("Sweeper started",
		"interval", s.config.Interval.String(),
		"stale_threshold", s.config.StaleThreshold.String(),
	)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Sweeper stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	if s.breaker == nil {
		_, _ = s.Sweep(ctx)
		return
	}
	err := s.breaker.Execute(func() error {
		_, err := s.Sweep(ctx)
		return err
	})
	if errors.Is(err, resilience.ErrOpen) {
		s.log.Debug("Sweep skipped while storage circuit is open")
	}
}

// Start runs the sweeper in its own goroutine. The returned function cancels
// it and waits for the running sweep to finish.
func (s *Sweeper) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}
