package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"batepapo/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecker_StoreDownMakesSystemUnhealthy(t *testing.T) {
	log := logger.New(logger.Config{Level: "error", Output: io.Discard})
	checker := NewChecker(log, time.Minute)

	var pingErr error
	checker.RegisterStoreCheck("store", func(context.Context) error { return pingErr })

	checker.RunChecks(context.Background())
	assert.True(t, checker.IsSystemHealthy())

	pingErr = errors.New("connection refused")
	checker.RunChecks(context.Background())
	assert.False(t, checker.IsSystemHealthy())

	w := httptest.NewRecorder()
	checker.HTTPHandler()(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Status     string                `json:"status"`
		Components map[string]*Component `json:"components"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body.Status)
	assert.Equal(t, StatusDown, body.Components["store"].Status)
	assert.Equal(t, "connection refused", body.Components["store"].Error)
	assert.Equal(t, StatusUp, body.Components["self"].Status)
}
