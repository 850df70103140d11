package errors

import (
	"errors"
	"fmt"
)

// Standard error types
var (
	ErrNotFound         = errors.New("record not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrEmptySelection   = errors.New("empty selection")
	ErrMerchantMismatch = errors.New("orders belong to different merchants")
	ErrInternal         = errors.New("internal error")
	ErrTemporaryFailure = errors.New("temporary failure")
)

// AppError represents a structured application error with context
type AppError struct {
	Err       error
	Message   string
	Retryable bool
	Context   map[string]interface{}
}

// Error returns the error message
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithContext adds additional context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new AppError with the given parameters
func NewAppError(err error, message string, retryable bool) *AppError {
	return &AppError{
		Err:       err,
		Message:   message,
		Retryable: retryable,
		Context:   make(map[string]interface{}),
	}
}

// IsRetryable checks if the error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError

	if errors.As(err, &appErr) {
		return appErr.Retryable
	}

	return errors.Is(err, ErrTemporaryFailure)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string) *AppError {
	return NewAppError(ErrNotFound, message, false)
}

// NewValidationError creates a validation error. Validation failures are
// fatal to the single operation that raised them and never retryable.
func NewValidationError(message string) *AppError {
	return NewAppError(ErrInvalidInput, message, false)
}

// NewEmptySelectionError creates a validation error for an empty id set
func NewEmptySelectionError(operation string) *AppError {
	return NewAppError(ErrEmptySelection, fmt.Sprintf("%s: selection is empty", operation), false)
}

// NewMerchantMismatchError creates a validation error identifying the
// merchants that were mixed in a single slip request.
func NewMerchantMismatchError(want, got string) *AppError {
	return NewAppError(
		ErrMerchantMismatch,
		fmt.Sprintf("all orders in a slip must belong to one merchant: found %q and %q", want, got),
		false,
	).WithContext("expected_merchant", want).WithContext("conflicting_merchant", got)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrInternal, message, true)
}

// NewTemporaryError creates a temporary, retryable error
func NewTemporaryError(message string) *AppError {
	return NewAppError(ErrTemporaryFailure, message, true)
}
