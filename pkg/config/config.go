package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// Backend names accepted by STORE_PARTICIPANTS and STORE_MESSAGES
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendBadger   = "badger"
	BackendRedis    = "redis"
)

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Port            string        `env:"PORT,default=8081"`
	Env             string        `env:"APP_ENV,default=development"`
	Timeout         time.Duration `env:"SERVER_TIMEOUT,default=30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL,default=info"`
	Format string `env:"LOG_FORMAT,default=json"`
}

// StoreConfig selects the backend of each collection
type StoreConfig struct {
	Participants string `env:"STORE_PARTICIPANTS,default=memory"`
	Messages     string `env:"STORE_MESSAGES,default=memory"`
}

// DatabaseConfig configures the PostgreSQL connection
type DatabaseConfig struct {
	Host       string        `env:"DB_HOST,default=localhost"`
	Port       string        `env:"DB_PORT,default=5432"`
	User       string        `env:"DB_USER,default=postgres"`
	Password   string        `env:"DB_PASSWORD,default=postgres"`
	Name       string        `env:"DB_NAME,default=batepapo"`
	SSLMode    string        `env:"DB_SSL_MODE,default=disable"`
	MaxConns   int           `env:"DB_MAX_CONNS,default=20"`
	Retries    int           `env:"DB_RETRIES,default=5"`
	RetryDelay time.Duration `env:"DB_RETRY_DELAY,default=5s"`
}

// DSN renders the connection string understood by the postgres driver
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// MongoConfig configures the MongoDB connection
type MongoConfig struct {
	URI      string        `env:"MONGO_URI,default=mongodb://localhost:27017"`
	Database string        `env:"MONGO_DATABASE,default=batepapo"`
	Timeout  time.Duration `env:"MONGO_TIMEOUT,default=10s"`
}

// BadgerConfig configures the embedded key-value store
type BadgerConfig struct {
	Path string `env:"BADGER_PATH,default=data/badger"`
}

// RedisConfig configures the Redis connection
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,default=0"`
	Prefix   string `env:"REDIS_PREFIX,default=batepapo:"`
}

// PresenceConfig configures heartbeat eviction
type PresenceConfig struct {
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL,default=15s"`
	StaleThreshold time.Duration `env:"STALE_THRESHOLD,default=10s"`
}

// SecurityConfig configures request throttling and CORS
type SecurityConfig struct {
	RateLimit      float64 `env:"RATE_LIMIT,default=20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST,default=40"`
	AllowedOrigins string  `env:"ALLOWED_ORIGINS,default=*"`
	MaxBodySize    int     `env:"MAX_BODY_SIZE,default=65536"`
}

// Origins splits AllowedOrigins on commas
func (s SecurityConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(s.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// ObservabilityConfig toggles tracing and metrics export
type ObservabilityConfig struct {
	ServiceName    string `env:"SERVICE_NAME,default=batepapo"`
	TracingEnabled bool   `env:"TRACING_ENABLED,default=false"`
	MetricsEnabled bool   `env:"METRICS_ENABLED,default=true"`
}

// OpenAPIConfig locates the request schema
type OpenAPIConfig struct {
	SchemaPath string `env:"OPENAPI_SCHEMA_PATH,default=api/openapi.yaml"`
}

// VaultConfig configures secret resolution
type VaultConfig struct {
	Enabled     bool   `env:"VAULT_ENABLED,default=false"`
	Address     string `env:"VAULT_ADDR"`
	Token       string `env:"VAULT_TOKEN"`
	Namespace   string `env:"VAULT_NAMESPACE"`
	SecretsPath string `env:"VAULT_SECRETS_PATH,default=batepapo"`
}

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Logging       LoggingConfig
	Store         StoreConfig
	Database      DatabaseConfig
	Mongo         MongoConfig
	Badger        BadgerConfig
	Redis         RedisConfig
	Presence      PresenceConfig
	Security      SecurityConfig
	Observability ObservabilityConfig
	OpenAPI       OpenAPIConfig
	Vault         VaultConfig
}

var (
	instance *Config
	loadErr  error
	once     sync.Once
)

// Load reads the configuration from the environment, after merging a .env
// file when one exists
func Load() (*Config, error) {
	// Missing .env is fine; the environment alone is enough
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// New loads the configuration once and returns the shared instance
func New() (*Config, error) {
	once.Do(func() {
		instance, loadErr = Load()
	})
	return instance, loadErr
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	if c.Store.Messages == BackendRedis {
		return fmt.Errorf("config error: redis can only hold participants")
	}
	for _, backend := range []string{c.Store.Participants, c.Store.Messages} {
		switch backend {
		case BackendMemory, BackendPostgres, BackendMongo, BackendBadger, BackendRedis:
		default:
			return fmt.Errorf("config error: unknown store backend %q", backend)
		}
	}
	if c.Presence.SweepInterval <= 0 || c.Presence.StaleThreshold <= 0 {
		return fmt.Errorf("config error: sweep interval and stale threshold must be positive")
	}
	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}
