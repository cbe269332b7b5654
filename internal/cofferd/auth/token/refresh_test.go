package token

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/coffersec/coffer/internal/cofferd/errors"
)

// fakeRefreshRepo is an in-memory refresh token store for tests
type fakeRefreshRepo struct {
	mu      sync.Mutex
	records map[string]*RefreshRecord
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{records: make(map[string]*RefreshRecord)}
}

func (f *fakeRefreshRepo) Save(ctx context.Context, record *RefreshRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *record
	f.records[record.Token] = &copied
	return nil
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*RefreshRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[token]
	if !ok {
		return nil, ErrRecordNotFound
	}
	copied := *record
	return &copied, nil
}

func (f *fakeRefreshRepo) Revoke(ctx context.Context, token string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record, ok := f.records[token]; ok && record.RevokedAt == nil {
		record.RevokedAt = &at
	}
	return nil
}

func TestIssueAndVerify(t *testing.T) {
	repo := newFakeRefreshRepo()
	mgr := NewRefreshManager(repo, 30*24*time.Hour)
	userID := uuid.New()

	tokenStr, err := mgr.Issue(context.Background(), userID, "device-1")
	require.NoError(t, err)
	assert.NotEmpty(t, tokenStr)

	got, err := mgr.Verify(context.Background(), tokenStr, "device-1")
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestVerifyRejectsWrongDevice(t *testing.T) {
	mgr := NewRefreshManager(newFakeRefreshRepo(), 30*24*time.Hour)

	tokenStr, err := mgr.Issue(context.Background(), uuid.New(), "device-1")
	require.NoError(t, err)

	_, err = mgr.Verify(context.Background(), tokenStr, "device-2")
	assert.ErrorIs(t, err, cerrors.ErrUnauthorized)

	// The issuing device still verifies
	_, err = mgr.Verify(context.Background(), tokenStr, "device-1")
	assert.NoError(t, err)
}

func TestVerifyRejectsUnknownToken(t *testing.T) {
	mgr := NewRefreshManager(newFakeRefreshRepo(), 30*24*time.Hour)
	_, err := mgr.Verify(context.Background(), "no-such-token", "device-1")
	assert.ErrorIs(t, err, cerrors.ErrUnauthorized)
}

func TestVerifyRejectsRevokedToken(t *testing.T) {
	mgr := NewRefreshManager(newFakeRefreshRepo(), 30*24*time.Hour)

	tokenStr, err := mgr.Issue(context.Background(), uuid.New(), "device-1")
	require.NoError(t, err)

	require.NoError(t, mgr.Revoke(context.Background(), tokenStr))

	// Revoked before expiry, still rejected
	_, err = mgr.Verify(context.Background(), tokenStr, "device-1")
	assert.ErrorIs(t, err, cerrors.ErrUnauthorized)
}

func TestRevokeIsIdempotent(t *testing.T) {
	mgr := NewRefreshManager(newFakeRefreshRepo(), 30*24*time.Hour)

	tokenStr, err := mgr.Issue(context.Background(), uuid.New(), "device-1")
	require.NoError(t, err)

	require.NoError(t, mgr.Revoke(context.Background(), tokenStr))
	require.NoError(t, mgr.Revoke(context.Background(), tokenStr))
	require.NoError(t, mgr.Revoke(context.Background(), "never-issued"))
}

func TestVerifyRejectsExpiredRefreshToken(t *testing.T) {
	repo := newFakeRefreshRepo()
	mgr := NewRefreshManager(repo, 30*24*time.Hour)

	issued := time.Now().Add(-31 * 24 * time.Hour)
	mgr.now = func() time.Time { return issued }
	tokenStr, err := mgr.Issue(context.Background(), uuid.New(), "device-1")
	require.NoError(t, err)

	mgr.now = time.Now
	_, err = mgr.Verify(context.Background(), tokenStr, "device-1")
	assert.ErrorIs(t, err, cerrors.ErrUnauthorized)
}

func TestIssuedTokensAreUnique(t *testing.T) {
	mgr := NewRefreshManager(newFakeRefreshRepo(), time.Hour)

	a, err := mgr.Issue(context.Background(), uuid.New(), "device-1")
	require.NoError(t, err)
	b, err := mgr.Issue(context.Background(), uuid.New(), "device-1")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
