package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrIndexNotFound indicates no IndexConfig is registered under the name
	ErrIndexNotFound = fmt.Errorf("index %w", ErrNotFound)

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the caller lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrSearchExecution indicates the storage backend failed to run a query
	ErrSearchExecution = errors.New("search execution failed")

	// ErrCancelled indicates the caller's deadline or cancellation fired
	ErrCancelled = errors.New("search cancelled")

	// ErrServiceUnavailable indicates the backend could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")
)

// ValidationError reports a malformed query or request. It is always local
// to the caller and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a ValidationError for field
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid query: " + e.Reason
	}
	return fmt.Sprintf("invalid query: %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidInput) hold for every ValidationError
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// SearchExecutionError wraps a backend failure with the context needed to
// diagnose it: backend error code, elapsed time and the compiled expression.
type SearchExecutionError struct {
	Index      string
	Backend    string
	Code       string
	Transient  bool
	Elapsed    time.Duration
	Expression string
	Err        error
}

func (e *SearchExecutionError) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	code := e.Code
	if code == "" {
		code = "unknown"
	}
	return fmt.Sprintf("%s search error on %s (code %s, after %s): %v",
		kind, e.Backend, code, e.Elapsed.Round(time.Millisecond), e.Err)
}

func (e *SearchExecutionError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrSearchExecution) hold
func (e *SearchExecutionError) Is(target error) bool {
	return target == ErrSearchExecution
}

// CancelledError is returned instead of a partial response when the caller's
// deadline or cancellation token fires. It is not a failure to report to
// users; callers may retry with a longer budget.
type CancelledError struct {
	Elapsed time.Duration
	Err     error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("search cancelled after %s: %v", e.Elapsed.Round(time.Millisecond), e.Err)
}

func (e *CancelledError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrCancelled) hold
func (e *CancelledError) Is(target error) bool {
	return target == ErrCancelled
}

// IsTransient reports whether err is a backend failure worth retrying with
// backoff. Validation errors and cancellations are never transient.
func IsTransient(err error) bool {
	var execErr *SearchExecutionError
	if errors.As(err, &execErr) {
		return execErr.Transient
	}
	return false
}
