// Package device tracks in-flight device-login attempts.
package device

import (
	"errors"
	"time"
)

// Common errors
var (
	ErrSessionNotFound = errors.New("device session not found")
	ErrSessionExpired  = errors.New("device session expired")
	ErrSessionExists   = errors.New("device session already exists")
)

// Session represents a pending device login
type Session struct {
	// DeviceCode is the opaque code the client polls with
	DeviceCode string
	// UserCode is the short code the user enters in a browser
	UserCode string
	// VerificationURI is where the user enters the code
	VerificationURI string
	IssuedAt        time.Time
	ExpiresAt       time.Time
	// PollInterval is how often the client should poll, in seconds.
	// It is only ever raised, never lowered.
	PollInterval int
}

// IsExpired reports whether the session has expired at the given time
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Registry defines storage operations for device sessions.
// Sessions live only in the process that issued them; the registry is an
// injected store so tests and multiple instances don't interfere.
type Registry interface {
	// Put stores a new session. A session already registered under the
	// same device code is rejected with ErrSessionExists.
	Put(session *Session) error

	// Get returns the session for a device code
	Get(deviceCode string) (*Session, error)

	// RaisePollInterval raises the session's poll interval. Values lower
	// than the current interval are ignored.
	RaisePollInterval(deviceCode string, interval int) error

	// Delete removes a session. Deleting an absent session is not an error.
	Delete(deviceCode string)

	// Sweep removes all sessions expired at the given time
	Sweep(now time.Time)

	// Reset removes all sessions. Test hook.
	Reset()
}
