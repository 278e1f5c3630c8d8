package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the correlation id of a request
const RequestIDHeader = "X-Request-ID"

// Middleware returns a Gin middleware function that logs requests
func Middleware(logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Generate a request ID if one doesn't exist
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header(RequestIDHeader, requestID)
		c.Set("requestId", requestID)

		// Create a request-scoped logger
		reqLogger := logger.WithRequestID(requestID).WithParticipant(c.GetHeader("User"))

		// Store the logger in the context
		c.Set("logger", reqLogger)

		start := time.Now()
		c.Next()

		reqLogger.LogRequest(c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// FromContext returns the request-scoped logger stored by Middleware, or the
// default logger outside a request
func FromContext(c *gin.Context) *Logger {
	if l, ok := c.Get("logger"); ok {
		if log, ok := l.(*Logger); ok {
			return log
		}
	}
	return Default()
}
