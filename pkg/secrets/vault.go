package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"batepapo/backend/pkg/config"
	"batepapo/backend/pkg/logger"

	vault "github.com/hashicorp/vault/api"
)

// Common errors
var (
	ErrSecretNotFound = errors.New("secret not found")
	ErrVaultDisabled  = errors.New("vault integration is disabled")
	ErrNoVaultToken   = errors.New("no vault token provided")
	ErrNoVaultAddress = errors.New("no vault address provided")
)

// VaultManager manages secrets with HashiCorp Vault
type VaultManager struct {
	client   *vault.Client
	config   config.VaultConfig
	cache    map[string]string
	mu       sync.RWMutex
	log      *logger.Logger
	cacheTTL time.Duration
}

// NewVaultManager creates a new Vault manager instance. A disabled manager
// only reads environment variables.
func NewVaultManager(cfg config.VaultConfig, log *logger.Logger) (*VaultManager, error) {
	log = log.ForComponent("secrets")
	// If Vault is disabled, return a manager without a client
	if !cfg.Enabled {
		return &VaultManager{
			config:   cfg,
			cache:    make(map[string]string),
			log:      log,
			cacheTTL: 5 * time.Minute,
		}, nil
	}

	// Validate required configuration
	if cfg.Address == "" {
		return nil, ErrNoVaultAddress
	}
	if cfg.Token == "" {
		return nil, ErrNoVaultToken
	}
	if cfg.SecretsPath == "" {
		cfg.SecretsPath = "batepapo"
	}

	// Create Vault client configuration
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address
	vaultConfig.Timeout = 10 * time.Second
	vaultConfig.MaxRetries = 3

	// Create Vault client
	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	// Set token and namespace
	client.SetToken(cfg.Token)
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	manager := &VaultManager{
		client:   client,
		config:   cfg,
		cache:    make(map[string]string),
		log:      log,
		cacheTTL: 5 * time.Minute,
	}

	// Start cache cleanup goroutine
	go manager.cleanupCache()

	return manager, nil
}

// GetSecret retrieves a secret from Vault, with fallback to environment variable
func (m *VaultManager) GetSecret(ctx context.Context, key string) (string, error) {
	// Check cache first
	m.mu.RLock()
	cachedValue, found := m.cache[key]
	m.mu.RUnlock()

	if found {
		return cachedValue, nil
	}

	// If Vault is disabled, fall back to environment variables only
	if !m.config.Enabled {
		return m.getFromEnvironment(key)
	}

	// Try to get secret from Vault
	value, err := m.getFromVault(ctx, key)
	if err != nil {
		// If not found in Vault, try environment variable
		if errors.Is(err, ErrSecretNotFound) {
			m.log.Warn("Secret not found in Vault, falling back to environment", "key", key)
			return m.getFromEnvironment(key)
		}
		return "", err
	}

	// Cache the value
	m.cacheSecret(key, value)

	return value, nil
}

// GetSecretWithDefault retrieves a secret with a default value if not found
func (m *VaultManager) GetSecretWithDefault(ctx context.Context, key, defaultValue string) string {
	value, err := m.GetSecret(ctx, key)
	if err != nil {
		m.log.Warn("Failed to get secret, using default value",
			"key", key,
			"error", err.Error(),
		)
		return defaultValue
	}
	return value
}

// getFromVault retrieves a secret directly from Vault
func (m *VaultManager) getFromVault(ctx context.Context, key string) (string, error) {
	// Every key lives in one KV v2 document under the "secret" mount
	path := m.config.SecretsPath

	// Read secret from Vault
	secret, err := m.client.KVv2("secret").Get(ctx, path)
	if errors.Is(err, vault.ErrSecretNotFound) {
		return "", ErrSecretNotFound
	}
	if err != nil {
		m.log.Error("Failed to read secret from Vault",
			"path", path,
			"error", err.Error(),
		)
		return "", fmt.Errorf("failed to read secret: %w", err)
	}

	// Extract value from secret data
	if secret == nil || secret.Data == nil {
		return "", ErrSecretNotFound
	}

	// KVv2 already unwraps the versioned "data" envelope
	value, ok := secret.Data[key].(string)
	if !ok {
		return "", ErrSecretNotFound
	}

	return value, nil
}

// getFromEnvironment retrieves a secret from environment variables
func (m *VaultManager) getFromEnvironment(key string) (string, error) {
	// Convert key format from snake_case or kebab-case to uppercase with underscores
	envKey := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))

	value := os.Getenv(envKey)
	if value == "" {
		return "", ErrSecretNotFound
	}

	// Cache the value
	m.cacheSecret(key, value)

	return value, nil
}

// cacheSecret adds a secret to the cache
func (m *VaultManager) cacheSecret(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[key] = value
}

// cleanupCache periodically clears the secret cache to ensure freshness
func (m *VaultManager) cleanupCache() {
	ticker := time.NewTicker(m.cacheTTL)
	defer ticker.Stop()

	for range ticker.C {
		m.mu.Lock()
		m.cache = make(map[string]string)
		m.mu.Unlock()

		m.log.Debug("Secret cache cleared")
	}
}
