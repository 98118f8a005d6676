package core

import (
	"errors"
	"fmt"
)

// Error codes
const (
	ErrValidation        = "VALIDATION_ERROR"
	ErrNotFound          = "NOT_FOUND"
	ErrConflict          = "CONFLICT"
	ErrInternalError     = "INTERNAL_ERROR"
	ErrRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrInvalidContent    = "INVALID_CONTENT_TYPE"
	ErrUnauthorized      = "UNAUTHORIZED"
)

// AppError is the single typed error raised by the service layer
type AppError struct {
	Code    string
	Message string
	Details string
	Err     error
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Response converts the error into its wire form
func (e *AppError) Response() *ErrorResponse {
	return &ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

func Validation(format string, args ...any) *AppError {
	return &AppError{Code: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *AppError {
	return &AppError{Code: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *AppError {
	return &AppError{Code: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected failure, preserving the original message as details
func Internal(message string, err error) *AppError {
	e := &AppError{Code: ErrInternalError, Message: message, Err: err}
	if err != nil {
		e.Details = err.Error()
	}
	return e
}

// AsAppError extracts an AppError from err, wrapping anything else as internal
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal server error", err)
}

// CodeOf returns the error code carried by err, or empty when err is nil
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	return AsAppError(err).Code
}
