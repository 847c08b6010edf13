package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrConflict         = errors.New("conflict")
	ErrForbidden        = errors.New("forbidden")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrExternal         = errors.New("external service failed")
)

// AppError carries a sentinel class plus a human-readable message that
// handlers surface verbatim, so the frontend can render actionable UI.
type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource string) *AppError {
	return &AppError{Err: ErrNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

func Validation(message string) *AppError {
	return &AppError{Err: ErrValidation, Message: message}
}

func Conflict(message string) *AppError {
	return &AppError{Err: ErrConflict, Message: message}
}

func Forbidden(message string) *AppError {
	return &AppError{Err: ErrForbidden, Message: message}
}

func Unauthorized(message string) *AppError {
	return &AppError{Err: ErrUnauthorized, Message: message}
}

func InvalidSignature() *AppError {
	return &AppError{Err: ErrInvalidSignature, Message: "webhook signature verification failed"}
}

func External(service string, err error) *AppError {
	return &AppError{Err: ErrExternal, Message: fmt.Sprintf("%s call failed: %v", service, err)}
}
