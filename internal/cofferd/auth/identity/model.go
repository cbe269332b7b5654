// Package identity maps upstream provider profiles onto local accounts.
package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Provider name recorded against users created via the GitHub device flow
const ProviderGitHub = "github"

// ErrUserNotFound indicates no local account matches a lookup
var ErrUserNotFound = errors.New("user not found")

// ErrOrgNotFound indicates no organization matches a lookup
var ErrOrgNotFound = errors.New("organization not found")

// User is a local account linked to an upstream identity
type User struct {
	ID          uuid.UUID
	OrgID       uuid.UUID
	Email       string
	DisplayName string
	IsAdmin     bool
	Provider    string
	ProviderID  string
}

// Organization groups users, teams and secrets under one tenant
type Organization struct {
	ID   uuid.UUID
	Name string
}

// Repository defines storage operations for accounts and memberships.
// InTx runs a function against a transaction-scoped repository; resolver
// upserts go through it so a login never leaves partial state behind.
type Repository interface {
	InTx(ctx context.Context, fn func(Repository) error) error

	FindUserByProvider(ctx context.Context, provider, providerID string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	CreateUser(ctx context.Context, user *User) error
	UpdateUser(ctx context.Context, user *User) error

	FindOrgByName(ctx context.Context, name string) (*Organization, error)
	CreateOrg(ctx context.Context, org *Organization) error

	// ListTeamIDs returns the teams the user belongs to
	ListTeamIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}
