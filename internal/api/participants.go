package api

import (
	"net/http"

	"batepapo/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// ParticipantHandler serves presence endpoints
type ParticipantHandler struct {
	service *service.ParticipantService
}

// NewParticipantHandler creates a new participant handler
func NewParticipantHandler(service *service.ParticipantService) *ParticipantHandler {
	return &ParticipantHandler{service: service}
}

// RegisterRoutes registers the presence routes
func (h *ParticipantHandler) RegisterRoutes(router gin.IRouter) {
	router.POST("/participants", h.Join)
	router.GET("/participants", h.List)
	router.POST("/status", h.Heartbeat)
}

// Join registers the caller under the requested name
func (h *ParticipantHandler) Join(c *gin.Context) {
	var req service.JoinInput
	if !bindJSON(c, &req) {
		return
	}

	participant, err := h.service.Join(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, participant)
}

// List returns every present participant
func (h *ParticipantHandler) List(c *gin.Context) {
	participants, err := h.service.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, participants)
}

// Heartbeat keeps the caller in the room
func (h *ParticipantHandler) Heartbeat(c *gin.Context) {
	if err := h.service.Heartbeat(c.Request.Context(), c.GetHeader(IdentityHeader)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusOK)
}
