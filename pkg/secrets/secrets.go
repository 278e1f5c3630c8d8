package secrets

import (
	"context"
	"sync"

	"batepapo/backend/pkg/config"
	"batepapo/backend/pkg/logger"
)

// Secret keys understood by Apply
const (
	KeyDBPassword    = "db-password"
	KeyMongoURI      = "mongo-uri"
	KeyRedisPassword = "redis-password"
)

// Manager provides access to secrets from various sources
type Manager interface {
	// GetSecret retrieves a secret by key
	GetSecret(ctx context.Context, key string) (string, error)

	// GetSecretWithDefault retrieves a secret with a default value if not found
	GetSecretWithDefault(ctx context.Context, key, defaultValue string) string
}

var (
	defaultManager Manager
	managerOnce    sync.Once
)

// Init initializes the default secrets manager
func Init(cfg config.VaultConfig, log *logger.Logger) error {
	var err error
	managerOnce.Do(func() {
		manager, initErr := NewVaultManager(cfg, log)
		if initErr != nil {
			err = initErr
			return
		}
		defaultManager = manager
	})
	return err
}

// GetSecretWithDefault retrieves a secret with a default value if not found
func GetSecretWithDefault(ctx context.Context, key, defaultValue string) string {
	if defaultManager == nil {
		return defaultValue
	}
	return defaultManager.GetSecretWithDefault(ctx, key, defaultValue)
}

// SetManager replaces the default secrets manager
func SetManager(manager Manager) {
	defaultManager = manager
}

// Apply overwrites the credentials in cfg with the values held by the
// default manager. Settings without a stored secret keep their current value.
func Apply(ctx context.Context, cfg *config.Config) {
	cfg.Database.Password = GetSecretWithDefault(ctx, KeyDBPassword, cfg.Database.Password)
	cfg.Mongo.URI = GetSecretWithDefault(ctx, KeyMongoURI, cfg.Mongo.URI)
	cfg.Redis.Password = GetSecretWithDefault(ctx, KeyRedisPassword, cfg.Redis.Password)
}
