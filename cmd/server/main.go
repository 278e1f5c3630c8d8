package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"batepapo/backend/pkg/config"
	"batepapo/backend/pkg/di"
	"batepapo/backend/pkg/logger"
	"batepapo/backend/pkg/observability"
	"batepapo/backend/pkg/router"
	"batepapo/backend/pkg/secrets"
)

// Exit codes reported to the service manager
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	os.Exit(run())
}

// run owns every resource so deferred cleanup happens before the process exits
func run() int {
	cfg, err := config.New()
	if err != nil {
		logger.New(logger.DefaultConfig()).LogError(err, "Failed to load configuration")
		return exitConfig
	}

	// Initialize structured logger
	log := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	logger.SetDefault(log)

	log.Info("Starting application", "version", os.Getenv("APP_VERSION"), "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := secrets.Init(cfg.Vault, log); err != nil {
		log.LogError(err, "Failed to initialize secrets manager")
		return exitRuntime
	}
	secrets.Apply(ctx, cfg)

	if cfg.Observability.TracingEnabled {
		shutdown, err := observability.SetupTracing(cfg.Observability.ServiceName)
		if err != nil {
			log.LogError(err, "Failed to initialize tracing")
			return exitRuntime
		}
		defer func() { _ = shutdown(context.Background()) }()
	}
	if cfg.Observability.MetricsEnabled {
		mp, err := observability.SetupPrometheusMetrics(cfg.Observability.ServiceName)
		if err != nil {
			log.LogError(err, "Failed to initialize metrics")
			return exitRuntime
		}
		defer func() { _ = mp.Shutdown(context.Background()) }()
	}

	container, err := di.New(ctx, cfg, log)
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		return exitRuntime
	}
	defer func() {
		if err := container.Close(); err != nil {
			log.LogError(err, "Failed to close store")
		}
	}()

	stopWorkers := container.Start(ctx)
	defer stopWorkers()

	r := router.New(ctx, container)
	r.SetupRoutes()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r.Engine,
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	code := exitOK
	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-serveErr:
		if err != nil {
			log.LogError(err, "Server failed to start")
			code = exitRuntime
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}

	log.Info("Server exited gracefully")
	return code
}
