package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies an application error so transport layers can map it.
type ErrorCode string

const (
	CodeValidation    ErrorCode = "VALIDATION_ERROR"
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeConflict      ErrorCode = "CONFLICT"
	CodeInvalidState  ErrorCode = "INVALID_STATE"
	CodeForbidden     ErrorCode = "FORBIDDEN"
	CodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	CodeUnprocessable ErrorCode = "UNPROCESSABLE"
	CodeUnavailable   ErrorCode = "UNAVAILABLE"
)

// AppError is a typed error carrying a code and a user-facing message.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Retryable reports whether the client may retry the same request unchanged.
func (e *AppError) Retryable() bool {
	return e.Code == CodeUnavailable || e.Code == CodeConflict
}

// NewValidationError creates an error for malformed or missing input.
func NewValidationError(msg string) *AppError {
	return &AppError{Code: CodeValidation, Message: msg}
}

// NewNotFoundError creates an error for a missing entity.
func NewNotFoundError(entity, id string) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf("%s with id %s not found", entity, id)}
}

// NewConflictError creates an error for concurrent modification.
func NewConflictError(msg string) *AppError {
	return &AppError{Code: CodeConflict, Message: msg}
}

// NewInvalidStateError creates an error for a disallowed state transition.
func NewInvalidStateError(from, to string) *AppError {
	return &AppError{Code: CodeInvalidState, Message: fmt.Sprintf("cannot transition from %s to %s", from, to)}
}

// NewForbiddenError creates an error for an authenticated but disallowed action.
func NewForbiddenError(msg string) *AppError {
	return &AppError{Code: CodeForbidden, Message: msg}
}

// NewUnauthorizedError creates an error for missing or bad credentials.
func NewUnauthorizedError(msg string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: msg}
}

// NewUnprocessableError creates an error for well-formed input that cannot be honoured.
func NewUnprocessableError(msg string, err error) *AppError {
	return &AppError{Code: CodeUnprocessable, Message: msg, Err: err}
}

// NewUnavailableError creates a retryable error for a failed dependency.
func NewUnavailableError(msg string, err error) *AppError {
	return &AppError{Code: CodeUnavailable, Message: msg, Err: err}
}

// AsAppError extracts an *AppError from err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
