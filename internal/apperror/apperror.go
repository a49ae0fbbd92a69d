// Package apperror carries an HTTP status and a client-safe message
// alongside the underlying cause.  Handlers return these and the echo error
// handler renders them as {"error": message}.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type AppError struct {
	Status  int
	Message string
	Details []FieldError
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s (caused by: %v)", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Validation is a 400 for malformed or rejected input.
func Validation(message string, details ...FieldError) *AppError {
	return &AppError{Status: http.StatusBadRequest, Message: message, Details: details}
}

func Unauthorized(message string) *AppError {
	return &AppError{Status: http.StatusUnauthorized, Message: message}
}

func Forbidden(message string) *AppError {
	return &AppError{Status: http.StatusForbidden, Message: message}
}

func NotFound(resource string) *AppError {
	return &AppError{Status: http.StatusNotFound, Message: resource + " not found"}
}

func Conflict(message string) *AppError {
	return &AppError{Status: http.StatusConflict, Message: message}
}

func TooManyRequests(message string) *AppError {
	return &AppError{Status: http.StatusTooManyRequests, Message: message}
}

// Internal wraps an unexpected failure.  The message is shown to clients
// only outside production.
func Internal(message string, err error) *AppError {
	return &AppError{Status: http.StatusInternalServerError, Message: message, Err: err}
}

// As returns the AppError in err's chain, or nil.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// StatusOf maps any error to the status it will be rendered with.
func StatusOf(err error) int {
	if ae := As(err); ae != nil {
		return ae.Status
	}
	return http.StatusInternalServerError
}
