package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrValidation is the sentinel every *ValidationError unwraps to.
var ErrValidation = errors.New("validation failed")

// Business errors surfaced to clients with their own status and message.
var (
	ErrUserNotFound       = NewAppError(http.StatusNotFound, "User not found")
	ErrInvalidCredentials = NewAppError(http.StatusUnauthorized, "Invalid credentials")
	ErrForbidden          = NewAppError(http.StatusForbidden, "You can only modify your own account")
)

// AppError is an explicit business error that carries the HTTP status and
// client-facing message it should be rendered with. It passes through the
// API error boundary unchanged.
type AppError struct {
	Status  int
	Message string
	Err     error
}

// NewAppError builds an AppError with no underlying cause.
func NewAppError(status int, message string) *AppError {
	return &AppError{Status: status, Message: message}
}

// Wrap returns a copy of e carrying err as its cause. errors.Is still
// matches the original sentinel.
func (e *AppError) Wrap(err error) *AppError {
	return &AppError{Status: e.Status, Message: e.Message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Is reports whether target is an AppError with the same status and message.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Status == e.Status && t.Message == e.Message
}

// FieldViolation describes one invalid input field.
type FieldViolation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError collects the field violations found while validating an
// entity or request.
type ValidationError struct {
	Fields []FieldViolation
}

// NewValidationError returns a ValidationError with a single violation.
func NewValidationError(path, message string) *ValidationError {
	return &ValidationError{Fields: []FieldViolation{{Path: path, Message: message}}}
}

// Add appends a violation.
func (e *ValidationError) Add(path, message string) {
	e.Fields = append(e.Fields, FieldViolation{Path: path, Message: message})
}

// OrNil returns nil when no violations were collected, so callers can
// return the result directly as an error.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Path+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
