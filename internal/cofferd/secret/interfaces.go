package secret

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines storage operations for secrets, their ACLs and
// their history
type Repository interface {
	// GetSecret loads a secret by org and name
	GetSecret(ctx context.Context, orgID uuid.UUID, name string) (*Secret, error)

	// ListSecrets returns all secrets owned by an org, values included
	ListSecrets(ctx context.Context, orgID uuid.UUID) ([]Secret, error)

	// CreateSecret stores a new secret
	CreateSecret(ctx context.Context, secret *Secret) error

	// UpdateSecret updates a secret's value
	UpdateSecret(ctx context.Context, secret *Secret) error

	// DeleteSecret removes a secret with its ACLs and history
	DeleteSecret(ctx context.Context, id uuid.UUID) error

	// ListACLs returns the grants attached to a secret
	ListACLs(ctx context.Context, secretID uuid.UUID) ([]AclEntry, error)

	// AddACL attaches a grant, replacing an existing grant for the same
	// principal
	AddACL(ctx context.Context, secretID uuid.UUID, entry AclEntry) error

	// RemoveACL detaches a principal's grant. Removing an absent grant is
	// not an error.
	RemoveACL(ctx context.Context, secretID uuid.UUID, principal Principal, principalID *uuid.UUID) error

	// AppendHistory records a new version row
	AppendHistory(ctx context.Context, secretID uuid.UUID, version *Version) error

	// ListHistory returns a secret's versions, newest first
	ListHistory(ctx context.Context, secretID uuid.UUID) ([]Version, error)
}

// Publisher delivers secret change events to subscribers
type Publisher interface {
	Publish(event Event)
}

// IdentityDirectory resolves user contexts for view-as evaluation
type IdentityDirectory interface {
	// UserContext loads the identity fields backing a permission context
	UserContext(ctx context.Context, userID uuid.UUID) (*UserContext, error)
}
