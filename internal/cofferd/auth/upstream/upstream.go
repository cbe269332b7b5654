// Package upstream talks to the OAuth provider backing the device login
// flow: it obtains device codes and later exchanges them for an upstream
// access token and user profile.
package upstream

import (
	"context"
	"errors"
)

// ErrUpstream indicates a provider call failed for reasons other than the
// normal device-flow outcomes
var ErrUpstream = errors.New("upstream provider error")

// DeviceGrant is the provider-issued code pair starting a device login
type DeviceGrant struct {
	DeviceCode      string
	UserCode        string
	VerificationURI string
	// ExpiresIn is seconds until the codes expire
	ExpiresIn int
	// Interval is the suggested poll interval in seconds
	Interval int
}

// Status classifies the outcome of a token exchange attempt
type Status int

const (
	// StatusGranted means the user approved the login
	StatusGranted Status = iota
	// StatusPending means the user has not acted yet
	StatusPending
	// StatusSlowDown means pending, and the client must poll slower
	StatusSlowDown
	// StatusExpired means the device code can no longer be exchanged
	StatusExpired
	// StatusDenied means the user rejected the login
	StatusDenied
)

// ExchangeResult is the provider's answer to an exchange attempt
type ExchangeResult struct {
	Status Status
	// AccessToken is set when Status is StatusGranted
	AccessToken string
	// Interval is the provider's new suggested poll interval in seconds,
	// set when Status is StatusSlowDown
	Interval int
}

// Profile is the upstream identity attached to an access token
type Profile struct {
	// ProviderID is the provider's stable account identifier
	ProviderID string
	Login      string
	Name       string
	Email      string
}

// Exchanger is the provider contract consumed by the auth service
type Exchanger interface {
	// RequestDeviceCode starts a device authorization
	RequestDeviceCode(ctx context.Context) (*DeviceGrant, error)

	// Exchange attempts to trade a device code for an access token
	Exchange(ctx context.Context, deviceCode string) (*ExchangeResult, error)

	// FetchProfile loads the profile behind an upstream access token
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)
}
