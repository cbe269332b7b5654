package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	cerrors "github.com/coffersec/coffer/internal/cofferd/errors"
)

// refreshTokenBytes is the entropy of an opaque refresh token
const refreshTokenBytes = 48

// ErrRecordNotFound indicates no refresh token row matches a lookup
var ErrRecordNotFound = errors.New("refresh token not found")

// RefreshRecord is the durable state behind an opaque refresh token.
// A record is valid iff it is not revoked, not expired, and presented
// from the device it was issued to.
type RefreshRecord struct {
	Token     string
	UserID    uuid.UUID
	DeviceID  string
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// RefreshRepository defines storage operations for refresh tokens
type RefreshRepository interface {
	Save(ctx context.Context, record *RefreshRecord) error
	Find(ctx context.Context, token string) (*RefreshRecord, error)

	// Revoke soft-deletes all non-revoked rows matching the token.
	// Revoking an absent or already-revoked token is not an error.
	Revoke(ctx context.Context, token string, at time.Time) error
}

// RefreshManager issues, verifies and revokes refresh tokens
type RefreshManager struct {
	repo RefreshRepository
	ttl  time.Duration
	now  func() time.Time
}

// NewRefreshManager creates a refresh token manager
func NewRefreshManager(repo RefreshRepository, ttl time.Duration) *RefreshManager {
	return &RefreshManager{
		repo: repo,
		ttl:  ttl,
		now:  time.Now,
	}
}

// Issue generates a refresh token bound to (user, device) and persists
// it. The returned string is the only time the token is exposed.
func (m *RefreshManager) Issue(ctx context.Context, userID uuid.UUID, deviceID string) (string, error) {
	const op = "RefreshManager.Issue"

	raw := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", cerrors.NewError("SERVER_ERROR", "failed to generate token", op, err)
	}
	tokenStr := base64.RawURLEncoding.EncodeToString(raw)

	record := &RefreshRecord{
		Token:     tokenStr,
		UserID:    userID,
		DeviceID:  deviceID,
		ExpiresAt: m.now().Add(m.ttl),
	}
	if err := m.repo.Save(ctx, record); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return tokenStr, nil
}

// Verify checks a presented refresh token against its record and returns
// the owning user ID. Absent, revoked, expired and device-mismatched
// tokens all fail with the same unauthorized error.
func (m *RefreshManager) Verify(ctx context.Context, tokenStr, deviceID string) (uuid.UUID, error) {
	const op = "RefreshManager.Verify"

	record, err := m.repo.Find(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return uuid.Nil, cerrors.NewError("UNAUTHORIZED", "invalid refresh token", op, cerrors.ErrUnauthorized)
		}
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if record.RevokedAt != nil ||
		!record.ExpiresAt.After(m.now()) ||
		record.DeviceID != deviceID {
		return uuid.Nil, cerrors.NewError("UNAUTHORIZED", "invalid refresh token", op, cerrors.ErrUnauthorized)
	}

	return record.UserID, nil
}

// Revoke soft-deletes a refresh token. Idempotent.
func (m *RefreshManager) Revoke(ctx context.Context, tokenStr string) error {
	const op = "RefreshManager.Revoke"

	if err := m.repo.Revoke(ctx, tokenStr, m.now()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
