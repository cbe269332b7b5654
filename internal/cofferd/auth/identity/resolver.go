package identity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/coffersec/coffer/internal/cofferd/auth/upstream"
	"github.com/coffersec/coffer/internal/cofferd/errors"
)

// Resolver upserts local accounts from upstream profiles
type Resolver struct {
	repo           Repository
	defaultOrgName string
	logger         *slog.Logger
}

// NewResolver creates an identity resolver
func NewResolver(repo Repository, defaultOrgName string, logger *slog.Logger) *Resolver {
	return &Resolver{
		repo:           repo,
		defaultOrgName: defaultOrgName,
		logger:         logger,
	}
}

// Resolve upserts a local user from an upstream profile and returns the
// user with their current team memberships. Lookup order is the provider
// binding first, then email (account linking). Re-login always refreshes
// profile fields. The whole upsert runs in one transaction.
func (r *Resolver) Resolve(ctx context.Context, profile *upstream.Profile) (*User, []uuid.UUID, error) {
	const op = "IdentityResolver.Resolve"

	if profile.ProviderID == "" {
		return nil, nil, errors.NewError("INVALID_PROFILE", "profile missing provider id", op, errors.ErrInvalidInput)
	}

	var user *User
	var teamIDs []uuid.UUID

	err := r.repo.InTx(ctx, func(repo Repository) error {
		existing, err := repo.FindUserByProvider(ctx, ProviderGitHub, profile.ProviderID)
		if err != nil && err != ErrUserNotFound {
			return err
		}
		if existing == nil && profile.Email != "" {
			existing, err = repo.FindUserByEmail(ctx, profile.Email)
			if err != nil && err != ErrUserNotFound {
				return err
			}
		}

		displayName := deriveDisplayName(profile)

		if existing != nil {
			existing.DisplayName = displayName
			existing.Provider = ProviderGitHub
			existing.ProviderID = profile.ProviderID
			if profile.Email != "" {
				existing.Email = profile.Email
			}
			if err := repo.UpdateUser(ctx, existing); err != nil {
				return err
			}
			user = existing
		} else {
			org, err := r.findOrCreateDefaultOrg(ctx, repo)
			if err != nil {
				return err
			}
			user = &User{
				ID:          uuid.New(),
				OrgID:       org.ID,
				Email:       profile.Email,
				DisplayName: displayName,
				IsAdmin:     false,
				Provider:    ProviderGitHub,
				ProviderID:  profile.ProviderID,
			}
			if err := repo.CreateUser(ctx, user); err != nil {
				return err
			}
		}

		teamIDs, err = repo.ListTeamIDs(ctx, user.ID)
		return err
	})
	if err != nil {
		r.logger.Error("failed to resolve identity",
			"error", err,
			"providerID", profile.ProviderID,
		)
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, teamIDs, nil
}

// Lookup loads a user and their current team memberships. Used on token
// refresh so role and team changes take effect without re-login.
func (r *Resolver) Lookup(ctx context.Context, userID uuid.UUID) (*User, []uuid.UUID, error) {
	user, err := r.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	teamIDs, err := r.repo.ListTeamIDs(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return user, teamIDs, nil
}

func (r *Resolver) findOrCreateDefaultOrg(ctx context.Context, repo Repository) (*Organization, error) {
	org, err := repo.FindOrgByName(ctx, r.defaultOrgName)
	if err == nil {
		return org, nil
	}
	if err != ErrOrgNotFound {
		return nil, err
	}

	org = &Organization{ID: uuid.New(), Name: r.defaultOrgName}
	if err := repo.CreateOrg(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

// deriveDisplayName picks the first of name, login, email local part
func deriveDisplayName(profile *upstream.Profile) string {
	if profile.Name != "" {
		return profile.Name
	}
	if profile.Login != "" {
		return profile.Login
	}
	if i := strings.Index(profile.Email, "@"); i > 0 {
		return profile.Email[:i]
	}
	return profile.Email
}
