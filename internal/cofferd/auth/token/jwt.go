package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/coffersec/coffer/internal/cofferd/errors"
)

// JWT signs and verifies HS256 access tokens
type JWT struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWT creates an access token signer/verifier with a fixed TTL
func NewJWT(secret string, ttl time.Duration) *JWT {
	return &JWT{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Sign mints an access token for the given claims and returns it with
// its expiry time
func (j *JWT) Sign(claims *Claims) (string, time.Time, error) {
	const op = "JWT.Sign"

	now := j.now()
	expiresAt := now.Add(j.ttl)

	teams := make([]string, 0, len(claims.TeamIDs))
	for _, id := range claims.TeamIDs {
		teams = append(teams, id.String())
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   claims.UserID.String(),
		"org":   claims.OrgID.String(),
		"adm":   claims.IsAdmin,
		"teams": teams,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	})

	signed, err := tok.SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, errors.NewError("SIGNING_ERROR", "failed to sign token", op, err)
	}
	return signed, expiresAt, nil
}

// Verify checks a token's signature and expiry and returns its claims.
// Every failure mode is folded into a single unauthorized error so the
// response doesn't reveal whether the signature, shape or expiry was at
// fault.
func (j *JWT) Verify(tokenString string) (*Claims, error) {
	const op = "JWT.Verify"

	parsed, err := jwt.Parse(tokenString,
		func(t *jwt.Token) (interface{}, error) {
			return j.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil || !parsed.Valid {
		return nil, unauthorized(op)
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, unauthorized(op)
	}

	// Required claims are type-checked; a missing or mistyped field is a
	// hard failure, never a default
	userID, ok := parseUUIDClaim(mapClaims, "sub")
	if !ok {
		return nil, unauthorized(op)
	}
	orgID, ok := parseUUIDClaim(mapClaims, "org")
	if !ok {
		return nil, unauthorized(op)
	}
	isAdmin, ok := mapClaims["adm"].(bool)
	if !ok {
		return nil, unauthorized(op)
	}
	teamIDs, ok := parseUUIDListClaim(mapClaims, "teams")
	if !ok {
		return nil, unauthorized(op)
	}

	return &Claims{
		UserID:  userID,
		OrgID:   orgID,
		IsAdmin: isAdmin,
		TeamIDs: teamIDs,
	}, nil
}

func parseUUIDClaim(claims jwt.MapClaims, name string) (uuid.UUID, bool) {
	raw, ok := claims[name].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func parseUUIDListClaim(claims jwt.MapClaims, name string) ([]uuid.UUID, bool) {
	raw, ok := claims[name].([]interface{})
	if !ok {
		return nil, false
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, entry := range raw {
		s, ok := entry.(string)
		if !ok {
			return nil, false
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

func unauthorized(op string) error {
	return errors.NewError("UNAUTHORIZED", "invalid token", op, errors.ErrUnauthorized)
}
