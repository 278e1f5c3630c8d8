package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConflict is returned when joining with a name that is already present
	ErrConflict = errors.New("participant name already in use")
	// ErrParticipantNotFound is returned when heartbeating an unknown participant
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrMessageNotFound is returned for an unknown message id
	ErrMessageNotFound = errors.New("message not found")
	// ErrNotPresent is returned when a participant who is not in the room posts
	ErrNotPresent = errors.New("participant is not in the room")
	// ErrForbidden is returned when the caller is not the message author, or
	// the target is a system status message
	ErrForbidden = errors.New("only the author may modify this message")
)

// FieldError describes one rejected request field
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError lists every rejected field of a request
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// StorageError wraps a persistence failure
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
