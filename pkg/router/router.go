package router

import (
	"context"
	"net/http"
	"strings"

	"batepapo/backend/internal/api"
	"batepapo/backend/pkg/config"
	"batepapo/backend/pkg/di"
	"batepapo/backend/pkg/errors"
	"batepapo/backend/pkg/logger"
	"batepapo/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates a new router with the given container. Background cleanup of
// the rate limiter stops when ctx is cancelled.
func New(ctx context.Context, container *di.Container) *Router {
	logger.SetDefault(container.Logger)
	cfg := container.Config

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Request id first so every later log line carries it
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())
	engine.Use(corsMiddleware(cfg.Security.Origins()))
	engine.Use(bodyLimit(int64(cfg.Security.MaxBodySize)))

	opts := middleware.DefaultRateLimiterOptions()
	if cfg.Security.RateLimit > 0 {
		opts.Limit = rate.Limit(cfg.Security.RateLimit)
	}
	if cfg.Security.RateLimitBurst > 0 {
		opts.Burst = cfg.Security.RateLimitBurst
	}
	rateLimiter := middleware.NewRateLimiter(container.Logger, opts)
	go rateLimiter.Cleanup(ctx)
	engine.Use(rateLimiter.Middleware())

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	r.setupHealthRoutes()
	r.setupMetricsRoutes()
	r.AddOpenAPIValidation(r.Config.OpenAPI.SchemaPath)

	api.NewParticipantHandler(r.Container.ParticipantService).RegisterRoutes(r.Engine)
	api.NewMessageHandler(r.Container.MessageService).RegisterRoutes(r.Engine)
}

// corsMiddleware lets browser clients send the identity header
func corsMiddleware(allowed []string) gin.HandlerFunc {
	allowAll := len(allowed) == 0
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		switch {
		case allowAll:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && contains(allowed, origin):
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Add("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Origin, User, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// bodyLimit caps request bodies at n bytes
func bodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if n > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
