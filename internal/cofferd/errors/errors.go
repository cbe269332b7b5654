// Package errors provides standardized error handling for the Coffer server
package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors that can be used across the application
var (
	// ErrNotFound indicates a requested resource doesn't exist
	ErrNotFound = errors.New("resource not found")

	// ErrConflict indicates a resource already exists
	ErrConflict = errors.New("resource already exists")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates missing, invalid or expired credentials.
	// Token verification failures are all folded into this single error
	// so callers cannot distinguish a bad signature from an expired token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates valid credentials without sufficient
	// permission for the operation
	ErrForbidden = errors.New("forbidden")

	// ErrAuthorizationPending indicates the user has not yet approved a
	// pending device login. It is a wait signal, not a failure.
	ErrAuthorizationPending = errors.New("authorization pending")

	// ErrRateLimited indicates the caller is polling too fast
	ErrRateLimited = errors.New("rate limited")

	// ErrServerError indicates an upstream or configuration failure
	ErrServerError = errors.New("server error")
)

// Error represents a domain error with additional context
type Error struct {
	// Code is a machine-readable error code
	Code string
	// Message is a human-readable error description
	Message string
	// Op describes the operation that failed
	Op string
	// Err is the underlying error
	Err error
	// RetryAfter is the suggested wait in seconds for retryable failures
	RetryAfter int
}

// Error implements the error interface with a formatted message
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for error chain handling
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given details
func NewError(code string, message string, op string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// NewRetryableError creates an Error carrying a Retry-After hint
func NewRetryableError(code string, message string, op string, err error, retryAfter int) *Error {
	if retryAfter < 1 {
		retryAfter = 1
	}
	return &Error{
		Code:       code,
		Message:    message,
		Op:         op,
		Err:        err,
		RetryAfter: retryAfter,
	}
}

// RetryAfter extracts the Retry-After hint from an error chain.
// Returns 0 if the error carries none.
func RetryAfter(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}

// IsNotFound returns true if err represents a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if err represents a conflict error
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsInvalidInput returns true if err represents an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsUnauthorized returns true if err represents an unauthorized error
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsForbidden returns true if err represents a permission denial
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsAuthorizationPending returns true if err represents a pending device login
func IsAuthorizationPending(err error) bool {
	return errors.Is(err, ErrAuthorizationPending)
}

// IsRateLimited returns true if err represents a rate limit rejection
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
