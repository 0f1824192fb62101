package errors

import (
	"errors"
	"net/http"
)

// Standard error types
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInternal          = errors.New("internal server error")
	ErrRateLimited       = errors.New("rate limited")
)

// AppError is an error that knows which HTTP status it maps to
type AppError struct {
	Err        error
	StatusCode int
	Message    string
	Context    map[string]interface{}
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
func NewAppError(err error, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string) *AppError {
	return NewAppError(ErrNotFound, message, http.StatusNotFound)
}

// NewInvalidInputError creates an invalid input error
func NewInvalidInputError(message string) *AppError {
	return NewAppError(ErrInvalidInput, message, http.StatusBadRequest)
}

// NewInsufficientStockError reports how much stock was available against what was asked for
func NewInsufficientStockError(available, requested int) *AppError {
	return NewAppError(ErrInsufficientStock, "Insufficient stock quantity", http.StatusBadRequest).
		WithContext("available", available).
		WithContext("requested", requested)
}

// NewInternalError wraps err as a 500. The underlying message is kept so
// clients see what failed.
func NewInternalError(message string, err error) *AppError {
	if err == nil {
		err = ErrInternal
	}
	return NewAppError(err, message+": "+err.Error(), http.StatusInternalServerError)
}

// NewRateLimitedError creates a rate limited error
func NewRateLimitedError(message string) *AppError {
	return NewAppError(ErrRateLimited, message, http.StatusTooManyRequests)
}

// StatusCode returns the HTTP status for err, defaulting to 500
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
