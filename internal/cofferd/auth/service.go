// Package auth implements the device login flow and token lifecycle.
// It orchestrates the device session registry, the poll rate limiter,
// the upstream provider exchange, identity resolution and token minting.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coffersec/coffer/internal/cofferd/auth/device"
	"github.com/coffersec/coffer/internal/cofferd/auth/identity"
	"github.com/coffersec/coffer/internal/cofferd/auth/token"
	"github.com/coffersec/coffer/internal/cofferd/auth/upstream"
	"github.com/coffersec/coffer/internal/cofferd/errors"
	"github.com/coffersec/coffer/internal/cofferd/ratelimit"
)

// IdentityResolver is the identity contract the auth service consumes
type IdentityResolver interface {
	Resolve(ctx context.Context, profile *upstream.Profile) (*identity.User, []uuid.UUID, error)
	Lookup(ctx context.Context, userID uuid.UUID) (*identity.User, []uuid.UUID, error)
}

// StartResult is returned to a client beginning a device login
type StartResult struct {
	DeviceCode      string
	UserCode        string
	VerificationURI string
	// ExpiresIn is seconds until the device code expires
	ExpiresIn int
	// Interval is the poll interval in seconds
	Interval int
}

// LoginResult is returned when a device login completes
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         *identity.User
}

// RefreshResult is returned on a successful token refresh
type RefreshResult struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Service implements the device login flow and token lifecycle
type Service struct {
	registry  device.Registry
	limiter   ratelimit.Service
	exchanger upstream.Exchanger
	resolver  IdentityResolver
	jwt       *token.JWT
	refresh   *token.RefreshManager
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates the auth service
func NewService(
	registry device.Registry,
	limiter ratelimit.Service,
	exchanger upstream.Exchanger,
	resolver IdentityResolver,
	jwt *token.JWT,
	refresh *token.RefreshManager,
	logger *slog.Logger,
) *Service {
	return &Service{
		registry:  registry,
		limiter:   limiter,
		exchanger: exchanger,
		resolver:  resolver,
		jwt:       jwt,
		refresh:   refresh,
		logger:    logger,
		now:       time.Now,
	}
}

// StartLogin begins a device login: it obtains a device code from the
// upstream provider and registers a local session the client can poll.
func (s *Service) StartLogin(ctx context.Context) (*StartResult, error) {
	const op = "AuthService.StartLogin"

	grant, err := s.exchanger.RequestDeviceCode(ctx)
	if err != nil {
		s.logger.Error("device code request failed", "error", err)
		return nil, errors.NewError("SERVER_ERROR", "failed to start device login", op, errors.ErrServerError)
	}

	now := s.now()
	session := &device.Session{
		DeviceCode:      grant.DeviceCode,
		UserCode:        grant.UserCode,
		VerificationURI: grant.VerificationURI,
		IssuedAt:        now,
		ExpiresAt:       now.Add(time.Duration(grant.ExpiresIn) * time.Second),
		PollInterval:    grant.Interval,
	}
	if err := s.registry.Put(session); err != nil {
		s.logger.Error("device session registration failed", "error", err)
		return nil, errors.NewError("SERVER_ERROR", "failed to start device login", op, errors.ErrServerError)
	}

	s.logger.Info("device login started",
		"userCode", grant.UserCode,
		"expiresIn", grant.ExpiresIn,
	)

	return &StartResult{
		DeviceCode:      grant.DeviceCode,
		UserCode:        grant.UserCode,
		VerificationURI: grant.VerificationURI,
		ExpiresIn:       grant.ExpiresIn,
		Interval:        grant.Interval,
	}, nil
}

// Poll drives one iteration of a pending device login. Outcomes map to
// the auth failure taxonomy: unknown or expired codes are Unauthorized
// and terminal, a user who has not acted yet is AuthorizationPending
// with a retry hint, and callers polling too fast are RateLimited.
func (s *Service) Poll(ctx context.Context, deviceCode, deviceID, origin string) (*LoginResult, error) {
	const op = "AuthService.Poll"

	now := s.now()
	s.registry.Sweep(now)

	session, err := s.registry.Get(deviceCode)
	if err != nil {
		return nil, unauthorizedPoll(op, "unknown or expired code")
	}
	if session.IsExpired(now) {
		s.registry.Delete(deviceCode)
		return nil, unauthorizedPoll(op, "expired")
	}

	if err := s.limiter.Allow(ctx, ratelimit.LimitKey{
		Type:     ratelimit.TypeDevicePoll,
		DeviceID: deviceID,
		RemoteIP: origin,
	}); err != nil {
		if le, ok := ratelimit.AsLimitError(err); ok {
			return nil, errors.NewRetryableError("RATE_LIMITED", "polling too fast", op,
				errors.ErrRateLimited, le.RetryAfterSeconds())
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result, err := s.exchanger.Exchange(ctx, deviceCode)
	if err != nil {
		s.logger.Error("upstream exchange failed", "error", err)
		return nil, errors.NewError("SERVER_ERROR", "upstream provider error", op, errors.ErrServerError)
	}

	switch result.Status {
	case upstream.StatusPending, upstream.StatusSlowDown:
		interval := session.PollInterval
		if result.Interval > interval {
			interval = result.Interval
			if err := s.registry.RaisePollInterval(deviceCode, interval); err != nil {
				s.logger.Warn("failed to raise poll interval", "error", err)
			}
		}
		if interval < 1 {
			interval = 1
		}
		return nil, errors.NewRetryableError("AUTHORIZATION_PENDING", "authorization pending", op,
			errors.ErrAuthorizationPending, interval)

	case upstream.StatusGranted:
		login, err := s.completeLogin(ctx, result.AccessToken, deviceID)
		if err != nil {
			return nil, err
		}
		s.registry.Delete(deviceCode)
		return login, nil

	default:
		// StatusExpired and StatusDenied are both terminal
		s.registry.Delete(deviceCode)
		return nil, unauthorizedPoll(op, "expired")
	}
}

func (s *Service) completeLogin(ctx context.Context, upstreamToken, deviceID string) (*LoginResult, error) {
	const op = "AuthService.completeLogin"

	profile, err := s.exchanger.FetchProfile(ctx, upstreamToken)
	if err != nil {
		s.logger.Error("profile fetch failed", "error", err)
		return nil, errors.NewError("SERVER_ERROR", "upstream provider error", op, errors.ErrServerError)
	}

	user, teamIDs, err := s.resolver.Resolve(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	accessToken, expiresAt, err := s.jwt.Sign(&token.Claims{
		UserID:  user.ID,
		OrgID:   user.OrgID,
		IsAdmin: user.IsAdmin,
		TeamIDs: teamIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err := s.refresh.Issue(ctx, user.ID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info("device login completed",
		"userID", user.ID,
		"orgID", user.OrgID,
	)

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		User:         user,
	}, nil
}

// Refresh trades a valid refresh token for a new access token. Claims
// are re-resolved from the identity store so role and team changes take
// effect without re-login.
func (s *Service) Refresh(ctx context.Context, refreshToken, deviceID string) (*RefreshResult, error) {
	const op = "AuthService.Refresh"

	userID, err := s.refresh.Verify(ctx, refreshToken, deviceID)
	if err != nil {
		return nil, err
	}

	user, teamIDs, err := s.resolver.Lookup(ctx, userID)
	if err != nil {
		if errors.IsNotFound(err) || err == identity.ErrUserNotFound {
			return nil, errors.NewError("UNAUTHORIZED", "invalid refresh token", op, errors.ErrUnauthorized)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	accessToken, expiresAt, err := s.jwt.Sign(&token.Claims{
		UserID:  user.ID,
		OrgID:   user.OrgID,
		IsAdmin: user.IsAdmin,
		TeamIDs: teamIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RefreshResult{
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
	}, nil
}

// Logout revokes a refresh token. Idempotent.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.refresh.Revoke(ctx, refreshToken)
}

// VerifyAccess checks an access token and returns its claims
func (s *Service) VerifyAccess(tokenString string) (*token.Claims, error) {
	return s.jwt.Verify(tokenString)
}

func unauthorizedPoll(op, message string) error {
	return errors.NewError("UNAUTHORIZED", message, op, errors.ErrUnauthorized)
}
