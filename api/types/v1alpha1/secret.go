package v1alpha1

import (
	"time"

	"github.com/google/uuid"
)

// Secret is a named key/value pair owned by an organization
type Secret struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	// Value is only populated on detail reads the caller may see
	Value     string    `json:"value,omitempty"`
	OrgID     uuid.UUID `json:"org_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SecretVersion is one entry in a secret's append-only history
type SecretVersion struct {
	Version   int       `json:"version"`
	Value     string    `json:"value"`
	ChangedBy uuid.UUID `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

// AclEntry grants read/write on a secret to a principal
type AclEntry struct {
	// Principal is "org", "team" or "user"
	Principal string `json:"principal"`
	// PrincipalID identifies the team or user; empty for org grants
	PrincipalID *uuid.UUID `json:"principal_id,omitempty"`
	CanRead     bool       `json:"can_read"`
	CanWrite    bool       `json:"can_write"`
}

// SetSecretRequest creates or updates a secret value
type SetSecretRequest struct {
	Value string `json:"value"`
}

// ShareSecretRequest adds an ACL grant to a secret
type ShareSecretRequest struct {
	AclEntry
}

// SecretEvent notifies subscribers of a secret change
type SecretEvent struct {
	// Type is "SECRET_SET" or "SECRET_DELETED"
	Type      string    `json:"type"`
	SecretID  uuid.UUID `json:"secret_id"`
	Name      string    `json:"name"`
	OrgID     uuid.UUID `json:"org_id"`
	Timestamp time.Time `json:"timestamp"`
}
