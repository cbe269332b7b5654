package auth

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffersec/coffer/internal/cofferd/auth/device"
	"github.com/coffersec/coffer/internal/cofferd/auth/identity"
	"github.com/coffersec/coffer/internal/cofferd/auth/token"
	"github.com/coffersec/coffer/internal/cofferd/auth/upstream"
	"github.com/coffersec/coffer/internal/cofferd/errors"
	"github.com/coffersec/coffer/internal/cofferd/ratelimit"
	"github.com/coffersec/coffer/internal/cofferd/ratelimit/memory"
)

// fakeExchanger scripts upstream behavior per device code
type fakeExchanger struct {
	mu      sync.Mutex
	grant   *upstream.DeviceGrant
	results map[string]*upstream.ExchangeResult
	profile *upstream.Profile
}

func (f *fakeExchanger) RequestDeviceCode(ctx context.Context) (*upstream.DeviceGrant, error) {
	return f.grant, nil
}

func (f *fakeExchanger) Exchange(ctx context.Context, deviceCode string) (*upstream.ExchangeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if result, ok := f.results[deviceCode]; ok {
		return result, nil
	}
	return &upstream.ExchangeResult{Status: upstream.StatusPending}, nil
}

func (f *fakeExchanger) FetchProfile(ctx context.Context, accessToken string) (*upstream.Profile, error) {
	return f.profile, nil
}

func (f *fakeExchanger) setResult(deviceCode string, result *upstream.ExchangeResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[deviceCode] = result
}

// fakeResolver hands back a fixed user with mutable team memberships
type fakeResolver struct {
	mu      sync.Mutex
	user    *identity.User
	teamIDs []uuid.UUID
}

func (f *fakeResolver) Resolve(ctx context.Context, profile *upstream.Profile) (*identity.User, []uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user, f.teamIDs, nil
}

func (f *fakeResolver) Lookup(ctx context.Context, userID uuid.UUID) (*identity.User, []uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.user == nil || f.user.ID != userID {
		return nil, nil, identity.ErrUserNotFound
	}
	return f.user, f.teamIDs, nil
}

type fakeRefreshRepo struct {
	mu      sync.Mutex
	records map[string]*token.RefreshRecord
}

func (f *fakeRefreshRepo) Save(ctx context.Context, record *token.RefreshRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *record
	f.records[record.Token] = &copied
	return nil
}

func (f *fakeRefreshRepo) Find(ctx context.Context, tokenStr string) (*token.RefreshRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[tokenStr]
	if !ok {
		return nil, token.ErrRecordNotFound
	}
	copied := *record
	return &copied, nil
}

func (f *fakeRefreshRepo) Revoke(ctx context.Context, tokenStr string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record, ok := f.records[tokenStr]; ok && record.RevokedAt == nil {
		record.RevokedAt = &at
	}
	return nil
}

type serviceHarness struct {
	service   *Service
	exchanger *fakeExchanger
	resolver  *fakeResolver
	registry  device.Registry
}

func newServiceHarness(t *testing.T) *serviceHarness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))

	exchanger := &fakeExchanger{
		grant: &upstream.DeviceGrant{
			DeviceCode:      "dc-test",
			UserCode:        "ABCD-1234",
			VerificationURI: "https://github.com/login/device",
			ExpiresIn:       900,
			Interval:        5,
		},
		results: make(map[string]*upstream.ExchangeResult),
		profile: &upstream.Profile{ProviderID: "42", Login: "octocat", Email: "octo@example.com"},
	}
	resolver := &fakeResolver{
		user: &identity.User{
			ID:          uuid.New(),
			OrgID:       uuid.New(),
			Email:       "octo@example.com",
			DisplayName: "octocat",
		},
	}

	registry := device.NewRegistry()
	limiter := ratelimit.NewService(memory.NewStore(), logger)
	require.NoError(t, limiter.RegisterLimit(ratelimit.TypeDevicePoll, ratelimit.Limit{
		Rate:   5,
		Period: 10 * time.Second,
	}))

	svc := NewService(
		registry,
		limiter,
		exchanger,
		resolver,
		token.NewJWT("test-secret", 15*time.Minute),
		token.NewRefreshManager(&fakeRefreshRepo{records: make(map[string]*token.RefreshRecord)}, 30*24*time.Hour),
		logger,
	)

	return &serviceHarness{
		service:   svc,
		exchanger: exchanger,
		resolver:  resolver,
		registry:  registry,
	}
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestStartLogin(t *testing.T) {
	h := newServiceHarness(t)

	start, err := h.service.StartLogin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dc-test", start.DeviceCode)
	assert.Equal(t, "ABCD-1234", start.UserCode)
	assert.Equal(t, 900, start.ExpiresIn)
	assert.Equal(t, 5, start.Interval)

	// The session is registered under the upstream device code
	session, err := h.registry.Get("dc-test")
	require.NoError(t, err)
	assert.Equal(t, 5, session.PollInterval)
}

func TestPollUnknownCode(t *testing.T) {
	h := newServiceHarness(t)

	_, err := h.service.Poll(context.Background(), "never-issued", "device-1", "10.0.0.1")
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestPollPendingThenGranted(t *testing.T) {
	h := newServiceHarness(t)

	start, err := h.service.StartLogin(context.Background())
	require.NoError(t, err)

	// User has not approved yet
	_, err = h.service.Poll(context.Background(), start.DeviceCode, "device-1", "10.0.0.1")
	assert.ErrorIs(t, err, errors.ErrAuthorizationPending)
	assert.Equal(t, 5, errors.RetryAfter(err))

	// User approves upstream
	h.exchanger.setResult(start.DeviceCode, &upstream.ExchangeResult{
		Status:      upstream.StatusGranted,
		AccessToken: "gho_abc",
	})

	login, err := h.service.Poll(context.Background(), start.DeviceCode, "device-1", "10.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, login.AccessToken)
	assert.NotEmpty(t, login.RefreshToken)
	assert.Equal(t, h.resolver.user.ID, login.User.ID)

	claims, err := h.service.VerifyAccess(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, h.resolver.user.ID, claims.UserID)
	assert.Equal(t, h.resolver.user.OrgID, claims.OrgID)

	// The session is gone; further polls on the same code fail terminally
	_, err = h.service.Poll(context.Background(), start.DeviceCode, "device-1", "10.0.0.1")
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestPollSlowDownRaisesInterval(t *testing.T) {
	h := newServiceHarness(t)

	start, err := h.service.StartLogin(context.Background())
	require.NoError(t, err)

	h.exchanger.setResult(start.DeviceCode, &upstream.ExchangeResult{
		Status:   upstream.StatusSlowDown,
		Interval: 10,
	})

	_, err = h.service.Poll(context.Background(), start.DeviceCode, "device-1", "10.0.0.1")
	assert.ErrorIs(t, err, errors.ErrAuthorizationPending)
	assert.Equal(t, 10, errors.RetryAfter(err))

	session, err := h.registry.Get(start.DeviceCode)
	require.NoError(t, err)
	assert.Equal(t, 10, session.PollInterval)

	// A later, lower upstream suggestion never lowers it
	h.exchanger.setResult(start.DeviceCode, &upstream.ExchangeResult{
		Status:   upstream.StatusSlowDown,
		Interval: 5,
	})
	_, err = h.service.Poll(context.Background(), start.DeviceCode, "device-1", "10.0.0.1")
	assert.ErrorIs(t, err, errors.ErrAuthorizationPending)
	assert.Equal(t, 10, errors.RetryAfter(err))
}

func TestPollExpiredUpstream(t *testing.T) {
	h := newServiceHarness(t)

	start, err := h.service.StartLogin(context.Background())
	require.NoError(t, err)

	h.exchanger.setResult(start.DeviceCode, &upstream.ExchangeResult{Status: upstream.StatusExpired})

	_, err = h.service.Poll(context.Background(), start.DeviceCode, "device-1", "10.0.0.1")
	assert.ErrorIs(t, err, errors.ErrUnauthorized)

	// Expired codes stay terminal, never pending again
	_, err = h.service.Poll(context.Background(), start.DeviceCode, "device-1", "10.0.0.1")
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestPollDeniedUpstream(t *testing.T) {
	h := newServiceHarness(t)

	start, err := h.service.StartLogin(context.Background())
	require.NoError(t, err)

	h.exchanger.setResult(start.DeviceCode, &upstream.ExchangeResult{Status: upstream.StatusDenied})

	_, err = h.service.Poll(context.Background(), start.DeviceCode, "device-1", "10.0.0.1")
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestPollExpiredSession(t *testing.T) {
	h := newServiceHarness(t)

	start, err := h.service.StartLogin(context.Background())
	require.NoError(t, err)

	h.service.now = func() time.Time { return time.Now().Add(time.Hour) }

	_, err = h.service.Poll(context.Background(), start.DeviceCode, "device-1", "10.0.0.1")
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestPollRateLimited(t *testing.T) {
	h := newServiceHarness(t)

	start, err := h.service.StartLogin(context.Background())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err = h.service.Poll(context.Background(), start.DeviceCode, "device-1", "10.0.0.1")
		assert.ErrorIs(t, err, errors.ErrAuthorizationPending)
	}

	// Sixth poll inside the window is rejected with a retry hint
	_, err = h.service.Poll(context.Background(), start.DeviceCode, "device-1", "10.0.0.1")
	assert.ErrorIs(t, err, errors.ErrRateLimited)
	assert.GreaterOrEqual(t, errors.RetryAfter(err), 1)

	// A different device is counted independently
	_, err = h.service.Poll(context.Background(), start.DeviceCode, "device-2", "10.0.0.1")
	assert.ErrorIs(t, err, errors.ErrAuthorizationPending)
}

func TestRefreshReResolvesClaims(t *testing.T) {
	h := newServiceHarness(t)

	start, err := h.service.StartLogin(context.Background())
	require.NoError(t, err)
	h.exchanger.setResult(start.DeviceCode, &upstream.ExchangeResult{
		Status:      upstream.StatusGranted,
		AccessToken: "gho_abc",
	})
	login, err := h.service.Poll(context.Background(), start.DeviceCode, "device-1", "10.0.0.1")
	require.NoError(t, err)

	// Wrong device fails
	_, err = h.service.Refresh(context.Background(), login.RefreshToken, "device-2")
	assert.ErrorIs(t, err, errors.ErrUnauthorized)

	// Role and team changes since issuance show up in the new token
	teamID := uuid.New()
	h.resolver.mu.Lock()
	h.resolver.user.IsAdmin = true
	h.resolver.teamIDs = []uuid.UUID{teamID}
	h.resolver.mu.Unlock()

	refreshed, err := h.service.Refresh(context.Background(), login.RefreshToken, "device-1")
	require.NoError(t, err)

	claims, err := h.service.VerifyAccess(refreshed.AccessToken)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, []uuid.UUID{teamID}, claims.TeamIDs)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	h := newServiceHarness(t)

	start, err := h.service.StartLogin(context.Background())
	require.NoError(t, err)
	h.exchanger.setResult(start.DeviceCode, &upstream.ExchangeResult{
		Status:      upstream.StatusGranted,
		AccessToken: "gho_abc",
	})
	login, err := h.service.Poll(context.Background(), start.DeviceCode, "device-1", "10.0.0.1")
	require.NoError(t, err)

	require.NoError(t, h.service.Logout(context.Background(), login.RefreshToken))

	_, err = h.service.Refresh(context.Background(), login.RefreshToken, "device-1")
	assert.ErrorIs(t, err, errors.ErrUnauthorized)

	// Logout is idempotent
	require.NoError(t, h.service.Logout(context.Background(), login.RefreshToken))
}
