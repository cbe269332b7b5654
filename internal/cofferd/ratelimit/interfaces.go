// Package ratelimit bounds how often clients may hit sensitive endpoints.
// Limits are fixed-window counters keyed by limit type, device and origin.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// LimitKey identifies a specific rate limit counter
type LimitKey struct {
	// Type names the limited operation, e.g. "device_poll"
	Type string
	// DeviceID identifies the client installation
	DeviceID string
	// RemoteIP is the caller's network origin
	RemoteIP string
}

// Limit defines a fixed-window rate limit configuration
type Limit struct {
	// Rate is the number of operations allowed per window
	Rate int
	// Period is the window length
	Period time.Duration
}

// Store handles rate limit counter state.
// Increment adds one to the counter for key, creating or resetting the
// window as needed, and returns the resulting count along with the time
// the current window ends.
type Store interface {
	Increment(ctx context.Context, key LimitKey, limit Limit) (count int, reset time.Time, err error)

	// Reset clears a rate limit counter
	Reset(ctx context.Context, key LimitKey) error
}

// Service manages rate limiting for the application
type Service interface {
	// Allow checks if an operation should be allowed. A rejection is a
	// *LimitError wrapping ErrLimitExceeded.
	Allow(ctx context.Context, key LimitKey) error

	// RegisterLimit adds or updates a rate limit configuration
	RegisterLimit(limitType string, limit Limit) error

	// GetLimit returns the configured limit for a key type
	GetLimit(limitType string) Limit

	// Reset clears rate limit counters for a key
	Reset(ctx context.Context, key LimitKey) error
}

// Error sentinels for rate limiting
var (
	ErrLimitExceeded = errors.New("rate limit exceeded")
	ErrStoreError    = errors.New("rate limit store error")
	ErrInvalidLimit  = errors.New("invalid rate limit configuration")
	ErrInvalidKey    = errors.New("invalid rate limit key")
)

// LimitError reports a rejected operation with a retry hint
type LimitError struct {
	Key LimitKey
	// RetryAfter is how long until the current window ends
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Key.Type, e.RetryAfter)
}

func (e *LimitError) Unwrap() error {
	return ErrLimitExceeded
}

// AsLimitError extracts a *LimitError from an error chain
func AsLimitError(err error) (*LimitError, bool) {
	var le *LimitError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// RetryAfterSeconds returns the retry hint rounded up to whole seconds,
// never less than 1
func (e *LimitError) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
