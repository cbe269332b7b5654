// Package secret implements organization secrets: storage, sharing via
// ACLs, and the permission engine deciding who may read or write them.
package secret

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNotFound         = errors.New("secret not found")
	ErrInvalidPrincipal = errors.New("invalid acl principal")
)

// Principal classifies who an ACL grant applies to
type Principal string

const (
	// PrincipalOrg grants to every member of the owning organization
	PrincipalOrg Principal = "org"
	// PrincipalTeam grants to members of one team
	PrincipalTeam Principal = "team"
	// PrincipalUser grants to a single user
	PrincipalUser Principal = "user"
)

// Secret is a named value owned by an organization
type Secret struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	Name      string
	Value     string
	CreatedBy uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Version is one entry in a secret's append-only history
type Version struct {
	Version   int
	Value     string
	ChangedBy uuid.UUID
	ChangedAt time.Time
}

// AclEntry grants read/write on a secret to a principal.
// PrincipalID is nil exactly when Principal is PrincipalOrg.
type AclEntry struct {
	Principal   Principal
	PrincipalID *uuid.UUID
	CanRead     bool
	CanWrite    bool
}

// Validate checks the principal/principalID pairing
func (e *AclEntry) Validate() error {
	switch e.Principal {
	case PrincipalOrg:
		if e.PrincipalID != nil {
			return ErrInvalidPrincipal
		}
	case PrincipalTeam, PrincipalUser:
		if e.PrincipalID == nil {
			return ErrInvalidPrincipal
		}
	default:
		return ErrInvalidPrincipal
	}
	return nil
}

// UserContext is the identity a permission decision runs under. For
// view-as evaluation the fields are substituted with the target user's
// and Substituted is set.
type UserContext struct {
	ID      uuid.UUID
	OrgID   uuid.UUID
	IsAdmin bool
	TeamIDs []uuid.UUID
	// Substituted marks a view-as context. Admin-implicit access never
	// applies to a substituted context.
	Substituted bool
}

// MemberOfTeam reports whether the context includes a team
func (u *UserContext) MemberOfTeam(teamID uuid.UUID) bool {
	for _, id := range u.TeamIDs {
		if id == teamID {
			return true
		}
	}
	return false
}

// PermissionResult is the outcome of a permission resolution
type PermissionResult struct {
	Read  bool
	Write bool
}
