package di

import (
	"context"
	"fmt"
	"time"

	"batepapo/backend/internal/repository"
	"batepapo/backend/internal/service"
	"batepapo/backend/pkg/clock"
	"batepapo/backend/pkg/config"
	"batepapo/backend/pkg/health"
	"batepapo/backend/pkg/logger"
	"batepapo/backend/pkg/observability"
	"batepapo/backend/pkg/resilience"

	"go.opentelemetry.io/otel"
)

// Container holds all the dependencies for the application
type Container struct {
	Config             *config.Config
	Logger             *logger.Logger
	Store              *repository.Store
	Clock              clock.Clock
	Metrics            *observability.Metrics
	Health             *health.Checker
	ParticipantService *service.ParticipantService
	MessageService     *service.MessageService
	Sweeper            *service.Sweeper
	SweepBreaker       *resilience.Breaker
}

// New opens the configured store and wires the services on top of it
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	store, err := NewStore(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	metrics, err := observability.NewMetrics(otel.Meter("batepapo/backend"))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	return NewWithStore(cfg, log, store, clock.System{}, metrics), nil
}

// NewWithStore wires the services on an already opened store
func NewWithStore(cfg *config.Config, log *logger.Logger, store *repository.Store, clk clock.Clock, metrics *observability.Metrics) *Container {
	participants := service.NewParticipantService(store, clk, log, metrics)
	messages := service.NewMessageService(store.Messages, participants, clk, log, metrics)
	sweeper := service.NewSweeper(store, clk, log, metrics, service.SweeperConfig{
		Interval:       cfg.Presence.SweepInterval,
		StaleThreshold: cfg.Presence.StaleThreshold,
	})
	breaker := resilience.New(resilience.DefaultConfig("sweeper"), clk, log)
	sweeper.UseBreaker(breaker)

	checker := health.NewChecker(log, 30*time.Second)
	checker.RegisterStoreCheck("store", store.Ping)
	checker.RegisterCheck("sweeper", false, func(context.Context) (health.Status, string, error) {
		if breaker.State() == resilience.StateClosed {
			return health.StatusUp, "Sweeper is evicting stale participants", nil
		}
		return health.StatusDegraded, "Sweeper paused after storage failures", nil
	})

	return &Container{
		Config:             cfg,
		Logger:             log,
		Store:              store,
		Clock:              clk,
		Metrics:            metrics,
		Health:             checker,
		ParticipantService: participants,
		MessageService:     messages,
		Sweeper:            sweeper,
		SweepBreaker:       breaker,
	}
}

// Start launches the background workers. The returned function stops them.
func (c *Container) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	c.Health.Start(ctx)
	stopSweeper := c.Sweeper.Start(ctx)
	return func() {
		stopSweeper()
		cancel()
	}
}

// Close releases the store connections
func (c *Container) Close() error {
	return c.Store.Close()
}
