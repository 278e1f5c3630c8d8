package middleware

import (
	"context"

	"batepapo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type contextKey string

// RequestIDKey is the key for request ID values in contexts
const RequestIDKey contextKey = "requestID"

// RequestIDMiddleware adds a unique request ID to each request
// and sets it in both the context and response headers
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Keep an ID assigned by an upstream proxy
		requestID := c.GetHeader(logger.RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
			c.Request.Header.Set(logger.RequestIDHeader, requestID)
		}

		ctx := context.WithValue(c.Request.Context(), RequestIDKey, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Header(logger.RequestIDHeader, requestID)
		c.Set("requestID", requestID)

		c.Next()
	}
}

// GetRequestID extracts the request ID from a context
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
