package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
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
	"github.com/stretchr/testify/suite"
)

type ClientSuite struct {
	suite.Suite
	server *httptest.Server
	clock  *clock.Manual
	client *Client
	cancel context.CancelFunc
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Server.Env = "test"
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
	s.clock = clock.NewManual(time.Date(2024, time.March, 1, 18, 0, 0, 0, time.UTC))
	container := di.NewWithStore(cfg, log, repository.NewMemoryStore(), s.clock, observability.NoopMetrics())

	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())
	r := router.New(ctx, container)
	r.SetupRoutes()

	s.server = httptest.NewServer(r.Engine)
	s.client = New(s.server.URL, WithRetries(1, time.Millisecond), WithTimeout(5*time.Second))
}

func (s *ClientSuite) TearDownTest() {
	s.server.Close()
	s.cancel()
}

func (s *ClientSuite) TestConversation() {
	ctx := context.Background()

	p, err := s.client.Join(ctx, "Ana")
	s.Require().NoError(err)
	s.Equal("Ana", p.Name)
	_, err = s.client.Join(ctx, "Bia")
	s.Require().NoError(err)

	participants, err := s.client.Participants(ctx)
	s.Require().NoError(err)
	s.Len(participants, 2)

	sent, err := s.client.Send(ctx, "Ana", MessageRequest{To: "Bia", Text: "oi Bia", Type: "private_message"})
	s.Require().NoError(err)
	s.NotEmpty(sent.ID)
	s.Equal("18:00:00", sent.Time)

	forBia, err := s.client.Messages(ctx, "Bia", 0)
	s.Require().NoError(err)
	s.Len(forBia, 3)
	s.Equal("oi Bia", forBia[2].Text)

	forCarla, err := s.client.Messages(ctx, "Carla", 0)
	s.Require().NoError(err)
	s.Len(forCarla, 2)

	latest, err := s.client.Messages(ctx, "Bia", 1)
	s.Require().NoError(err)
	s.Require().Len(latest, 1)
	s.Equal(sent.ID, latest[0].ID)

	edited, err := s.client.Edit(ctx, "Ana", sent.ID, MessageRequest{To: models.Everyone, Text: "oi todos", Type: "message"})
	s.Require().NoError(err)
	s.Equal(sent.ID, edited.ID)
	s.Equal(models.TypeMessage, edited.Type)

	s.Require().NoError(s.client.Delete(ctx, "Ana", sent.ID))
	remaining, err := s.client.Messages(ctx, "Ana", 0)
	s.Require().NoError(err)
	s.Len(remaining, 2)
}

func (s *ClientSuite) TestErrorsCarryEnvelopeCode() {
	ctx := context.Background()
	_, err := s.client.Join(ctx, "Ana")
	s.Require().NoError(err)

	_, err = s.client.Join(ctx, "Ana")
	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(http.StatusConflict, apiErr.StatusCode)
	s.Equal("NAME_TAKEN", apiErr.Code)

	err = s.client.Heartbeat(ctx, "ghost")
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(http.StatusNotFound, apiErr.StatusCode)

	_, err = s.client.Send(ctx, "ghost", MessageRequest{To: models.Everyone, Text: "oi", Type: "message"})
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(http.StatusUnprocessableEntity, apiErr.StatusCode)
	s.Equal("NOT_IN_ROOM", apiErr.Code)

	err = s.client.Delete(ctx, "Ana", "missing")
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(http.StatusNotFound, apiErr.StatusCode)
}

func (s *ClientSuite) TestKeepAliveHoldsPresence() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := s.client.Join(ctx, "Ana")
	s.Require().NoError(err)
	s.clock.Advance(8 * time.Second)

	go s.client.KeepAlive(ctx, "Ana", 10*time.Millisecond, nil)

	s.Eventually(func() bool {
		participants, err := s.client.Participants(ctx)
		return err == nil && len(participants) == 1 && participants[0].LastStatus == s.clock.Now().UnixMilli()
	}, time.Second, 10*time.Millisecond)
}

func TestReadsRetryTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"name":"Ana","lastStatus":1}]`)
	}))
	defer srv.Close()

	c := New(srv.URL, WithRetries(2, time.Millisecond))
	participants, err := c.Participants(context.Background())
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, "Ana", participants[0].Name)
	assert.Equal(t, int32(2), calls.Load())
}

func TestReadsKeepEnvelopeAfterRetriesRunOut(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"code":"STORAGE_ERROR","message":"The chat store is unavailable"}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, WithRetries(2, time.Millisecond))
	_, err := c.Messages(context.Background(), "Ana", 0)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "STORAGE_ERROR", apiErr.Code)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWritesAreSentOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, "upstream down")
	}))
	defer srv.Close()

	c := New(srv.URL, WithRetries(3, time.Millisecond))
	_, err := c.Send(context.Background(), "Ana", MessageRequest{To: models.Everyone, Text: "oi", Type: "message"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Empty(t, apiErr.Code)
	assert.Equal(t, int32(1), calls.Load())
}
