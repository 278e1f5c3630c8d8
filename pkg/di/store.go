package di

import (
	"context"
	"fmt"

	"batepapo/backend/internal/repository"
	"batepapo/backend/pkg/config"
	"batepapo/backend/pkg/logger"
)

// NewStore opens the backends selected by cfg.Store and assembles a Store
// from them. Both collections share one backend connection when they name the
// same backend; only then can evictions run in a single transaction.
func NewStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (*repository.Store, error) {
	store := &repository.Store{}
	opened := make(map[string]*repository.Store)

	for _, backend := range []string{cfg.Store.Participants, cfg.Store.Messages} {
		if _, ok := opened[backend]; ok {
			continue
		}
		backendStore, err := openBackend(ctx, store, backend, cfg, log)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		opened[backend] = backendStore
		log.Info("Store backend opened", "backend", backend)
	}

	store.Participants = opened[cfg.Store.Participants].Participants
	store.Messages = opened[cfg.Store.Messages].Messages
	if cfg.Store.Participants == cfg.Store.Messages {
		store.Evictor = opened[cfg.Store.Participants].Evictor
	}
	return store, nil
}

// openBackend connects to one backend. Cleanup is registered on owner so the
// connection closes after the repositories built on it.
func openBackend(ctx context.Context, owner *repository.Store, backend string, cfg *config.Config, log *logger.Logger) (*repository.Store, error) {
	switch backend {
	case config.BackendMemory:
		return repository.NewMemoryStore(), nil

	case config.BackendPostgres:
		db, err := config.NewDB(cfg, log)
		if err != nil {
			return nil, err
		}
		owner.OnClose(func() error { return config.CloseDB(db) })
		if err := repository.MigrateGorm(db); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		return repository.NewGormStore(db), nil

	case config.BackendMongo:
		client, err := config.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		owner.OnClose(func() error { return client.Disconnect(context.Background()) })
		return repository.NewMongoStore(ctx, client.Database(cfg.Mongo.Database))

	case config.BackendBadger:
		db, err := config.NewBadger(cfg.Badger)
		if err != nil {
			return nil, err
		}
		owner.OnClose(db.Close)
		s, err := repository.NewBadgerStore(db)
		if err != nil {
			return nil, err
		}
		owner.OnClose(s.Close)
		return s, nil

	case config.BackendRedis:
		client, err := config.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		owner.OnClose(client.Close)
		return &repository.Store{
			Participants: repository.NewRedisParticipantRepository(client, cfg.Redis.Prefix),
		}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", backend)
}
