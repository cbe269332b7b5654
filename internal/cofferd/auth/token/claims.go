// Package token issues and verifies the credentials Coffer hands out:
// short-lived signed access tokens and long-lived opaque refresh tokens
// bound to a device.
package token

import (
	"github.com/google/uuid"
)

// Claims is the identity and role data carried by an access token.
// Claims are immutable once issued; a new token must be minted to
// reflect role or team changes.
type Claims struct {
	UserID  uuid.UUID
	OrgID   uuid.UUID
	IsAdmin bool
	TeamIDs []uuid.UUID
}

// MemberOf reports whether the claims include the given team
func (c *Claims) MemberOf(teamID uuid.UUID) bool {
	for _, id := range c.TeamIDs {
		if id == teamID {
			return true
		}
	}
	return false
}
