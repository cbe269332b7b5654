package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/coffersec/coffer/internal/cofferd/errors"
)

func testClaims() *Claims {
	return &Claims{
		UserID:  uuid.New(),
		OrgID:   uuid.New(),
		IsAdmin: true,
		TeamIDs: []uuid.UUID{uuid.New(), uuid.New()},
	}
}

func TestSignAndVerify(t *testing.T) {
	j := NewJWT("test-secret", 15*time.Minute)
	claims := testClaims()

	signed, expiresAt, err := j.Sign(claims)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	got, err := j.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, claims.UserID, got.UserID)
	assert.Equal(t, claims.OrgID, got.OrgID)
	assert.True(t, got.IsAdmin)
	assert.Equal(t, claims.TeamIDs, got.TeamIDs)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	j := NewJWT("test-secret", 15*time.Minute)
	signed, _, err := j.Sign(testClaims())
	require.NoError(t, err)

	tampered := signed[:len(signed)-2] + "xx"
	_, err = j.Verify(tampered)
	assert.ErrorIs(t, err, cerrors.ErrUnauthorized)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	j := NewJWT("test-secret", 15*time.Minute)
	signed, _, err := j.Sign(testClaims())
	require.NoError(t, err)

	other := NewJWT("other-secret", 15*time.Minute)
	_, err = other.Verify(signed)
	assert.ErrorIs(t, err, cerrors.ErrUnauthorized)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	j := NewJWT("test-secret", 15*time.Minute)

	past := time.Now().Add(-time.Hour)
	j.now = func() time.Time { return past }
	signed, _, err := j.Sign(testClaims())
	require.NoError(t, err)

	j.now = time.Now
	_, err = j.Verify(signed)
	assert.ErrorIs(t, err, cerrors.ErrUnauthorized)
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	j := NewJWT("test-secret", 15*time.Minute)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS384, jwt.MapClaims{
		"sub":   uuid.New().String(),
		"org":   uuid.New().String(),
		"adm":   false,
		"teams": []string{},
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = j.Verify(signed)
	assert.ErrorIs(t, err, cerrors.ErrUnauthorized)
}

func TestVerifyRejectsMissingClaims(t *testing.T) {
	j := NewJWT("test-secret", 15*time.Minute)

	tests := []struct {
		name   string
		claims jwt.MapClaims
	}{
		{
			name: "missing subject",
			claims: jwt.MapClaims{
				"org": uuid.New().String(), "adm": false, "teams": []string{},
				"exp": time.Now().Add(time.Hour).Unix(),
			},
		},
		{
			name: "missing org",
			claims: jwt.MapClaims{
				"sub": uuid.New().String(), "adm": false, "teams": []string{},
				"exp": time.Now().Add(time.Hour).Unix(),
			},
		},
		{
			name: "mistyped admin flag",
			claims: jwt.MapClaims{
				"sub": uuid.New().String(), "org": uuid.New().String(),
				"adm": "yes", "teams": []string{},
				"exp": time.Now().Add(time.Hour).Unix(),
			},
		},
		{
			name: "mistyped teams",
			claims: jwt.MapClaims{
				"sub": uuid.New().String(), "org": uuid.New().String(),
				"adm": false, "teams": "not-a-list",
				"exp": time.Now().Add(time.Hour).Unix(),
			},
		},
		{
			name: "missing expiry",
			claims: jwt.MapClaims{
				"sub": uuid.New().String(), "org": uuid.New().String(),
				"adm": false, "teams": []string{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := jwt.NewWithClaims(jwt.SigningMethodHS256, tt.claims)
			signed, err := tok.SignedString([]byte("test-secret"))
			require.NoError(t, err)

			_, err = j.Verify(signed)
			assert.ErrorIs(t, err, cerrors.ErrUnauthorized)
		})
	}
}
