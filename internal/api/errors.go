package api

import (
	"errors"
	"net/http"

	"batepapo/backend/internal/service"
	apperrors "batepapo/backend/pkg/errors"
	"batepapo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// IdentityHeader carries the caller's display name
const IdentityHeader = "User"

// toAppError maps a service error to its HTTP representation
func toAppError(err error) *apperrors.AppError {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return apperrors.UnprocessableWithDetails("VALIDATION_FAILED", "The request is invalid", verr.Fields)
	case errors.Is(err, service.ErrConflict):
		return apperrors.NewConflictError("NAME_TAKEN", err.Error())
	case errors.Is(err, service.ErrParticipantNotFound):
		return apperrors.NewNotFoundError("PARTICIPANT_NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrMessageNotFound):
		return apperrors.NewNotFoundError("MESSAGE_NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrNotPresent):
		return apperrors.NewUnprocessableError("NOT_IN_ROOM", err.Error())
	case errors.Is(err, service.ErrForbidden):
		return apperrors.NewUnauthorizedError("NOT_AUTHOR", err.Error())
	default:
		return apperrors.NewInternalServerError("STORAGE_ERROR", "The chat store is unavailable")
	}
}

// fail records err on the context for the error middleware to render
func fail(c *gin.Context, err error) {
	appErr := toAppError(err)
	if apperrors.GetStatusCode(appErr) >= http.StatusInternalServerError {
		logger.FromContext(c).LogError(err, "Request failed", "path", c.FullPath())
	}
	_ = c.Error(appErr)
	c.Abort()
}

// bindJSON decodes the request body, rendering a validation error on failure
func bindJSON(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		_ = c.Error(apperrors.UnprocessableWithDetails("INVALID_BODY", "The request body is not valid JSON", err.Error()))
		c.Abort()
		return false
	}
	return true
}
