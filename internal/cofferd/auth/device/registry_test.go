package device

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(code string, expiresAt time.Time) *Session {
	return &Session{
		DeviceCode:      code,
		UserCode:        "WXYZ-ABCD",
		VerificationURI: "https://github.com/login/device",
		IssuedAt:        time.Now(),
		ExpiresAt:       expiresAt,
		PollInterval:    5,
	}
}

func TestPutAndGet(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Put(newSession("code-1", time.Now().Add(15*time.Minute))))

	got, err := reg.Get("code-1")
	require.NoError(t, err)
	assert.Equal(t, "code-1", got.DeviceCode)
	assert.Equal(t, 5, got.PollInterval)
}

func TestPutDuplicateRejected(t *testing.T) {
	reg := NewRegistry()
	expires := time.Now().Add(15 * time.Minute)
	require.NoError(t, reg.Put(newSession("code-1", expires)))
	assert.ErrorIs(t, reg.Put(newSession("code-1", expires)), ErrSessionExists)
}

func TestGetUnknown(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRaisePollIntervalNeverLowers(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Put(newSession("code-1", time.Now().Add(15*time.Minute))))

	require.NoError(t, reg.RaisePollInterval("code-1", 10))
	got, err := reg.Get("code-1")
	require.NoError(t, err)
	assert.Equal(t, 10, got.PollInterval)

	// A lower suggestion is ignored
	require.NoError(t, reg.RaisePollInterval("code-1", 3))
	got, err = reg.Get("code-1")
	require.NoError(t, err)
	assert.Equal(t, 10, got.PollInterval)
}

func TestSweepRemovesExpired(t *testing.T) {
	reg := NewRegistry()
	now := time.Now()
	require.NoError(t, reg.Put(newSession("live", now.Add(time.Minute))))
	require.NoError(t, reg.Put(newSession("dead", now.Add(-time.Minute))))

	reg.Sweep(now)

	_, err := reg.Get("dead")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = reg.Get("live")
	assert.NoError(t, err)
}

func TestDeleteIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	reg.Delete("missing")

	require.NoError(t, reg.Put(newSession("code-1", time.Now().Add(time.Minute))))
	reg.Delete("code-1")
	reg.Delete("code-1")

	_, err := reg.Get("code-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
