// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the application, plus the mapping from
// error kinds to HTTP responses.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the failure kinds the service distinguishes.
// Use errors.Is() to check these errors in your code.
var (
	// ErrBadInput indicates the caller supplied invalid input.
	ErrBadInput = errors.New("invalid input")

	// ErrAuth indicates the upstream rejected or expired the session,
	// typically a redirect back to the login page.
	ErrAuth = errors.New("authentication failed")

	// ErrNoTimetable indicates the requested profile has no timetable.
	ErrNoTimetable = errors.New("timetable not found")

	// ErrUpstreamProtocol indicates the upstream answered with something
	// the scraper does not recognize (markup drift, missing anchors).
	ErrUpstreamProtocol = errors.New("unexpected upstream response")

	// ErrNetwork indicates the upstream could not be reached or timed out
	// after retries were exhausted.
	ErrNetwork = errors.New("upstream network failure")
)

// IsBadInput reports whether err is or wraps ErrBadInput.
func IsBadInput(err error) bool {
	var verr *ValidationError
	return errors.Is(err, ErrBadInput) || errors.As(err, &verr)
}

// IsAuth reports whether err is or wraps ErrAuth.
func IsAuth(err error) bool {
	return errors.Is(err, ErrAuth)
}

// IsNoTimetable reports whether err is or wraps ErrNoTimetable.
func IsNoTimetable(err error) bool {
	return errors.Is(err, ErrNoTimetable)
}

// IsUpstreamProtocol reports whether err is or wraps ErrUpstreamProtocol.
func IsUpstreamProtocol(err error) bool {
	return errors.Is(err, ErrUpstreamProtocol)
}

// IsNetwork reports whether err is or wraps ErrNetwork.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Unwrap makes validation errors match ErrBadInput.
func (e *ValidationError) Unwrap() error {
	return ErrBadInput
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// StatusError represents an upstream HTTP failure with context.
type StatusError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream error (url=%s, status=%d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream error (url=%s): %v", e.URL, e.Err)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// NewStatusError creates a new upstream status error. A non-2xx response is
// a protocol failure, so the inner error defaults to ErrUpstreamProtocol
// when err is nil.
func NewStatusError(url string, statusCode int, err error) *StatusError {
	if err == nil {
		err = ErrUpstreamProtocol
	}
	return &StatusError{
		URL:        url,
		StatusCode: statusCode,
		Err:        err,
	}
}

// HTTPStatus maps an error to the HTTP status code the API responds with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsBadInput(err):
		return http.StatusBadRequest
	case IsAuth(err):
		return http.StatusUnauthorized
	case IsNoTimetable(err):
		return http.StatusNotFound
	case IsUpstreamProtocol(err):
		return http.StatusBadGateway
	case IsNetwork(err):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Category maps an error to the machine-readable category carried in the
// API error payload.
func Category(err error) string {
	switch {
	case err == nil:
		return ""
	case IsBadInput(err):
		return "bad_request"
	case IsAuth(err):
		return "auth_error"
	case IsNoTimetable(err):
		return "not_found"
	case IsUpstreamProtocol(err):
		return "upstream_error"
	case IsNetwork(err):
		return "network_error"
	default:
		return "internal_error"
	}
}
