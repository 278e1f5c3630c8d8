package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"batepapo/backend/pkg/errors"
	"batepapo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func quietLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Output: io.Discard})
}

func TestRateLimiter_LimitsPerParticipant(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := quietLogger()

	limiter := NewRateLimiter(log, RateLimiterOptions{Limit: 0.001, Burst: 2, ExpiryDuration: time.Hour})
	r := gin.New()
	r.Use(logger.Middleware(log), errors.ErrorHandler(), limiter.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	call := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if user != "" {
			req.Header.Set("User", user)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, call("Ana"))
	assert.Equal(t, http.StatusOK, call("Ana"))
	assert.Equal(t, http.StatusTooManyRequests, call("Ana"))
	// Another participant has a separate budget
	assert.Equal(t, http.StatusOK, call("Bia"))
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	limiter := NewRateLimiter(quietLogger(), RateLimiterOptions{Limit: 1, Burst: 1, ExpiryDuration: time.Minute})
	limiter.getLimiter("user:Ana")

	limiter.evictIdle(time.Now())
	assert.Len(t, limiter.clients, 1)

	limiter.evictIdle(time.Now().Add(2 * time.Minute))
	assert.Empty(t, limiter.clients)
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())

	var seen string
	r.GET("/", func(c *gin.Context) {
		seen = GetRequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(logger.RequestIDHeader, "upstream-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "upstream-1", seen)
	assert.Equal(t, "upstream-1", w.Header().Get(logger.RequestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.NotEqual(t, "upstream-1", seen)
}
