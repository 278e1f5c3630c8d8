package errors

import (
	"errors"
	"net/http"
)

// UnprocessableWithDetails creates a 422 Unprocessable Entity error with details
func UnprocessableWithDetails(code string, message string, details any) *AppError {
	return NewUnprocessableError(code, message).WithDetails(details)
}

// FromError converts a standard error to an AppError
// If the error is already an AppError, it is returned as-is
// Otherwise, it is wrapped as an internal server error without leaking its text
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return NewInternalServerError("INTERNAL_ERROR", "An unexpected error occurred")
}

// GetStatusCode extracts the HTTP status code from an AppError, returns 500 if not an AppError
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
