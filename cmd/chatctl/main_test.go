package main

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"batepapo/backend/internal/models"
	"batepapo/backend/internal/repository"
	"batepapo/backend/pkg/clock"
	"batepapo/backend/pkg/config"
	"batepapo/backend/pkg/di"
	"batepapo/backend/pkg/logger"
	"batepapo/backend/pkg/observability"
	"batepapo/backend/pkg/router"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Store.Participants = config.BackendMemory
	cfg.Store.Messages = config.BackendMemory
	cfg.Presence.SweepInterval = time.Hour
	cfg.Presence.StaleThreshold = 10 * time.Second
	cfg.Security.RateLimit = 1000
	cfg.Security.RateLimitBurst = 1000
	cfg.Security.AllowedOrigins = "*"
	cfg.Security.MaxBodySize = 1 << 16
	cfg.OpenAPI.SchemaPath = "../../api/openapi.yaml"

	log := logger.New(logger.Config{Level: "error", Output: io.Discard})
	clk := clock.NewManual(time.Date(2024, time.March, 1, 21, 15, 0, 0, time.UTC))
	container := di.NewWithStore(cfg, log, repository.NewMemoryStore(), clk, observability.NoopMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	r := router.New(ctx, container)
	r.SetupRoutes()
	srv := httptest.NewServer(r.Engine)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv.URL
}

func chatctl(t *testing.T, addr string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), append([]string{"-addr", addr, "-color=false"}, args...), &out)
	return out.String(), err
}

func TestCommands(t *testing.T) {
	addr := newServer(t)

	out, err := chatctl(t, addr, "join", "Ana")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana joined")

	_, err = chatctl(t, addr, "join", "Bia")
	require.NoError(t, err)

	out, err = chatctl(t, addr, "participants")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana")
	assert.Contains(t, out, "Bia")

	out, err = chatctl(t, addr, "send", "-user", "Ana", "-to", "Bia", "-private", "oi", "Bia")
	require.NoError(t, err)
	assert.Contains(t, out, "(21:15:00) Ana reservadamente para Bia: oi Bia")

	out, err = chatctl(t, addr, "messages", "-user", "Carla")
	require.NoError(t, err)
	assert.NotContains(t, out, "oi Bia")

	out, err = chatctl(t, addr, "messages", "-user", "Bia", "-limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "oi Bia")
	assert.NotContains(t, out, models.ArrivalText)
}

func TestEditAndDeleteCommands(t *testing.T) {
	addr := newServer(t)
	_, err := chatctl(t, addr, "join", "Ana")
	require.NoError(t, err)
	_, err = chatctl(t, addr, "send", "-user", "Ana", "primeira")
	require.NoError(t, err)

	out, err := chatctl(t, addr, "messages", "-user", "Ana")
	require.NoError(t, err)
	id := messageID(t, out, "primeira")

	out, err = chatctl(t, addr, "edit", "-user", "Ana", id, "segunda")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana para Todos: segunda")

	_, err = chatctl(t, addr, "delete", "-user", "Bia", id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOT_AUTHOR")

	out, err = chatctl(t, addr, "delete", "-user", "Ana", id)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted "+id)
}

func TestUsageErrors(t *testing.T) {
	_, err := chatctl(t, "http://127.0.0.1:1")
	assert.EqualError(t, err, "missing command")

	_, err = chatctl(t, "http://127.0.0.1:1", "dance")
	assert.EqualError(t, err, `unknown command "dance"`)

	_, err = chatctl(t, "http://127.0.0.1:1", "send", "oi")
	assert.EqualError(t, err, "-user is required")
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		message models.Message
		want    string
	}{
		{models.Message{From: "Ana", To: models.Everyone, Text: models.ArrivalText, Type: models.TypeStatus}, "Ana entra na sala..."},
		{models.Message{From: "Ana", To: models.Everyone, Text: "oi", Type: models.TypeMessage}, "Ana para Todos: oi"},
		{models.Message{From: "Ana", To: "Bia", Text: "oi", Type: models.TypePrivate}, "Ana reservadamente para Bia: oi"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, describe(tt.message))
	}
}

// messageID finds the id column of the row whose text matches
func messageID(t *testing.T, table, text string) string {
	t.Helper()
	for _, row := range strings.Split(table, "\n") {
		if strings.Contains(row, text) {
			fields := strings.Fields(row)
			require.GreaterOrEqual(t, len(fields), 2)
			return fields[1]
		}
	}
	t.Fatalf("no row with %q in:\n%s", text, table)
	return ""
}
