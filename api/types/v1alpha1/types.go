// Package v1alpha1 contains API types for the Coffer secrets service.
package v1alpha1

import (
	"github.com/google/uuid"
)

// User is the public representation of an account
type User struct {
	// ID identifies the user
	ID uuid.UUID `json:"id"`
	// Email is the address linked from the upstream provider
	Email string `json:"email"`
	// DisplayName is the human-readable name shown in listings
	DisplayName string `json:"display_name"`
	// OrgID is the organization the user belongs to
	OrgID uuid.UUID `json:"org_id"`
	// IsAdmin reports whether the user administers their organization
	IsAdmin bool `json:"is_admin"`
}

// Organization groups users, teams and secrets under one tenant
type Organization struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Team is a named group of users within an organization
type Team struct {
	ID    uuid.UUID `json:"id"`
	OrgID uuid.UUID `json:"org_id"`
	Name  string    `json:"name"`
}

// ListResponse wraps lists of items with metadata
type ListResponse struct {
	// Items contains the listed objects
	Items []interface{} `json:"items"`
	// TotalCount is the total number of matching items
	TotalCount int `json:"totalCount,omitempty"`
}

// Error is the standard error body returned by all endpoints
type Error struct {
	// Code is a machine-readable error code
	Code string `json:"error"`
	// Message is a human-readable description
	Message string `json:"error_description,omitempty"`
}
