package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupHealthRoutes registers health check endpoints
func (r *Router) setupHealthRoutes() {
	handler := gin.WrapF(r.Container.Health.HTTPHandler())

	// Register both health endpoint paths for compatibility
	r.Engine.GET("/health", handler)
	r.Engine.GET("/api/health", handler)
}

// setupMetricsRoutes exposes the Prometheus registry fed by the OTel exporter
func (r *Router) setupMetricsRoutes() {
	if !r.Config.Observability.MetricsEnabled {
		return
	}
	r.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
