package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"batepapo/backend/pkg/logger"

	"github.com/dgraph-io/badger/v4"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB creates a new PostgreSQL connection, retrying while the server comes up
func NewDB(cfg *Config, log *logger.Logger) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		// Unique violations surface as gorm.ErrDuplicatedKey
		TranslateError: true,
	}

	// Set logging level based on application environment
	if cfg.IsProduction() {
		gormConfig.Logger = gormlogger.Default.LogMode(gormlogger.Error)
	} else {
		gormConfig.Logger = gormlogger.Default.LogMode(gormlogger.Warn)
	}

	var db *gorm.DB
	var err error
	retries := max(cfg.Database.Retries, 1)
	for i := 0; i < retries; i++ {
		db, err = gorm.Open(postgres.Open(cfg.Database.DSN()), gormConfig)
		if err == nil {
			break
		}
		log.Warn("Failed to connect to database, retrying",
			"attempt", i+1,
			"delay", cfg.Database.RetryDelay.String(),
			"error", err.Error(),
		)
		time.Sleep(cfg.Database.RetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d retries: %w", retries, err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	return db, nil
}

// CloseDB releases the pool behind a gorm handle
func CloseDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	return sqlDB.Close()
}

// NewMongo connects to MongoDB and verifies the primary is reachable
func NewMongo(ctx context.Context, cfg MongoConfig) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

// NewBadger opens the embedded store, creating its directory if needed
func NewBadger(cfg BadgerConfig) (*badger.DB, error) {
	if err := os.MkdirAll(filepath.Clean(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create badger directory: %w", err)
	}
	db, err := badger.Open(badger.DefaultOptions(cfg.Path).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return nil, fmt.Errorf("database opening failed: %w", err)
	}
	return db, nil
}

// NewRedis connects to Redis and verifies the connection
func NewRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}
