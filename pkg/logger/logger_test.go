package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Format: FormatJSON, Output: &buf})

	log.Info("hidden")
	log.LogError(errors.New("boom"), "visible", "name", "Ana")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "visible", entry["msg"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "Ana", entry["name"])
}

func TestMiddleware_PropagatesRequestIDAndUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: FormatJSON, Output: &buf})

	r := gin.New()
	r.Use(Middleware(log))
	r.GET("/ping", func(c *gin.Context) {
		assert.NotNil(t, FromContext(c))
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	req.Header.Set("User", "Ana")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "request completed", entry["msg"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "Ana", entry["participant"])
	assert.EqualValues(t, http.StatusNoContent, entry["status"])
}

func TestMiddleware_GeneratesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(New(Config{Level: "error", Output: &bytes.Buffer{}})))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestLogRequest_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusConflict, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		New(Config{Level: "debug", Output: &buf}).LogRequest(http.MethodPost, "/participants", tt.status, time.Millisecond)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
		assert.Equal(t, tt.want, entry["level"], "status %d", tt.status)
		assert.Equal(t, "/participants", entry["path"])
	}
}

func TestLogger_TextFormatAndComponent(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: FormatText, Output: &buf}).ForComponent("sweeper")

	log.WithParticipant("Ana").Info("Participant evicted")
	log.LogError(nil, "no cause")

	out := buf.String()
	assert.Contains(t, out, "component=sweeper")
	assert.Contains(t, out, "participant=Ana")
	assert.Contains(t, out, `msg="no cause"`)
	assert.NotContains(t, out, "error=")
}

func TestSetDefault(t *testing.T) {
	previous := Default()
	t.Cleanup(func() { SetDefault(previous) })

	var buf bytes.Buffer
	log := New(Config{Level: "info", Output: &buf})
	SetDefault(log)

	assert.Same(t, log, Default())
	slog.Info("through slog")
	assert.Contains(t, buf.String(), "through slog")

	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Same(t, log, FromContext(c))
}
