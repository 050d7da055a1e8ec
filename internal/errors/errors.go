// Package errors defines the service error taxonomy and its HTTP mapping.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies an error category.
type ErrorCode string

const (
	// ErrConfiguration: unusable process configuration, or no usable
	// credential pair anywhere.
	ErrConfiguration ErrorCode = "CONFIGURATION_ERROR"

	// ErrUnauthorized: missing or invalid authentication.
	ErrUnauthorized ErrorCode = "UNAUTHORIZED"

	// ErrInvalidToken: a bearer token that failed verification.
	ErrInvalidToken ErrorCode = "INVALID_TOKEN"

	// ErrCSRFRejected: missing, mismatched, or expired anti-forgery token.
	ErrCSRFRejected ErrorCode = "CSRF_REJECTED"

	// ErrValidation: malformed or structurally invalid input.
	ErrValidation ErrorCode = "VALIDATION_ERROR"

	// ErrBackendWrite: the backend was reached but the write failed.
	ErrBackendWrite ErrorCode = "BACKEND_WRITE_FAILURE"

	// ErrRateLimited: too many requests from one caller.
	ErrRateLimited ErrorCode = "RATE_LIMIT_EXCEEDED"

	// ErrInternal: unexpected server-side failure.
	ErrInternal ErrorCode = "INTERNAL_ERROR"
)

// ServiceError is an error with a category, an HTTP status, and a
// client-safe message. Internal detail lives in the wrapped cause and in
// Details, which are logged server-side and never serialized to clients.
type ServiceError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	cause      error
}

func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ServiceError) Unwrap() error {
	return e.cause
}

// WithDetails attaches a server-side detail to the error and returns it.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Configuration reports unusable configuration, such as an invalid mode
// flag or an empty fallback bucket list.
func Configuration(message string) *ServiceError {
	return &ServiceError{
		Code:       ErrConfiguration,
		Message:    message,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// Unauthorized reports missing or invalid authentication.
func Unauthorized(message string) *ServiceError {
	if message == "" {
		message = "authentication required"
	}
	return &ServiceError{
		Code:       ErrUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// InvalidToken reports a bearer token that failed verification.
func InvalidToken(cause error) *ServiceError {
	return &ServiceError{
		Code:       ErrInvalidToken,
		Message:    "invalid or expired token",
		HTTPStatus: http.StatusUnauthorized,
		cause:      cause,
	}
}

// CSRFRejected reports an anti-forgery failure.
func CSRFRejected(message string) *ServiceError {
	return &ServiceError{
		Code:       ErrCSRFRejected,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// InvalidInput reports malformed or structurally invalid input.
func InvalidInput(message string) *ServiceError {
	return &ServiceError{
		Code:       ErrValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// BackendWrite reports a write that reached the backend and failed. The
// client-facing message stays generic; the cause carries the detail.
func BackendWrite(cause error) *ServiceError {
	return &ServiceError{
		Code:       ErrBackendWrite,
		Message:    "unable to save your submission, please try again later",
		HTTPStatus: http.StatusInternalServerError,
		cause:      cause,
	}
}

// RateLimitExceeded reports too many requests.
func RateLimitExceeded(limit int, window string) *ServiceError {
	return &ServiceError{
		Code:       ErrRateLimited,
		Message:    "too many requests",
		HTTPStatus: http.StatusTooManyRequests,
		Details:    map[string]interface{}{"limit": limit, "window": window},
	}
}

// Internal reports an unexpected server-side failure.
func Internal(message string, cause error) *ServiceError {
	if message == "" {
		message = "internal server error"
	}
	return &ServiceError{
		Code:       ErrInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		cause:      cause,
	}
}

// GetServiceError extracts a *ServiceError from err's chain, or nil.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return nil
}
