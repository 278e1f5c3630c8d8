package api

import (
	"net/http"

	"batepapo/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// MessageHandler serves the message log endpoints
type MessageHandler struct {
	service *service.MessageService
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(service *service.MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

// RegisterRoutes registers the message routes
func (h *MessageHandler) RegisterRoutes(router gin.IRouter) {
	messages := router.Group("/messages")
	{
		messages.POST("", h.Post)
		messages.GET("", h.List)
		messages.PUT("/:id", h.Edit)
		messages.DELETE("/:id", h.Delete)
	}
}

// Post appends a message written by the caller
func (h *MessageHandler) Post(c *gin.Context) {
	var req service.MessageInput
	if !bindJSON(c, &req) {
		return
	}

	message, err := h.service.Post(c.Request.Context(), c.GetHeader(IdentityHeader), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

// List returns the messages the caller may see, optionally only the latest ?limit
func (h *MessageHandler) List(c *gin.Context) {
	limit, err := service.ParseLimit(c.Query("limit"))
	if err != nil {
		fail(c, err)
		return
	}

	messages, err := h.service.List(c.Request.Context(), c.GetHeader(IdentityHeader), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// Edit rewrites a message owned by the caller
func (h *MessageHandler) Edit(c *gin.Context) {
	var req service.MessageInput
	if !bindJSON(c, &req) {
		return
	}

	message, err := h.service.Edit(c.Request.Context(), c.Param("id"), c.GetHeader(IdentityHeader), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, message)
}

// Delete removes a message owned by the caller
func (h *MessageHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), c.GetHeader(IdentityHeader)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusOK)
}
