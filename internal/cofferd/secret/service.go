package secret

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coffersec/coffer/internal/cofferd/errors"
)

// Service implements secrets CRUD with every operation gated by the
// permission engine
type Service struct {
	repo      Repository
	events    Publisher
	directory IdentityDirectory
	// adminImplicit grants org admins full access without ACLs
	adminImplicit bool
	logger        *slog.Logger
	now           func() time.Time
}

// NewService creates the secret service
func NewService(repo Repository, events Publisher, directory IdentityDirectory, adminImplicit bool, logger *slog.Logger) *Service {
	return &Service{
		repo:          repo,
		events:        events,
		directory:     directory,
		adminImplicit: adminImplicit,
		logger:        logger,
		now:           time.Now,
	}
}

// AsUser builds a substituted permission context for view-as evaluation.
// Only admins may substitute, only within their own org, and the
// resulting context never receives admin-implicit access.
func (s *Service) AsUser(ctx context.Context, caller UserContext, targetID uuid.UUID) (UserContext, error) {
	const op = "SecretService.AsUser"

	if !caller.IsAdmin || caller.Substituted {
		return UserContext{}, errors.NewError("FORBIDDEN", "view-as requires admin", op, errors.ErrForbidden)
	}

	target, err := s.directory.UserContext(ctx, targetID)
	if err != nil {
		return UserContext{}, fmt.Errorf("%s: %w", op, err)
	}
	if target.OrgID != caller.OrgID {
		return UserContext{}, errors.NewError("NOT_FOUND", "user not found", op, errors.ErrNotFound)
	}

	substituted := *target
	substituted.Substituted = true
	return substituted, nil
}

// Get returns a secret with its value. A caller without read sees the
// secret as absent, not as forbidden.
func (s *Service) Get(ctx context.Context, user UserContext, name string) (*Secret, error) {
	const op = "SecretService.Get"

	stored, perms, err := s.load(ctx, user, name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !perms.Read {
		return nil, notFound(op)
	}
	return stored, nil
}

// List returns the secrets the caller may read, values omitted
func (s *Service) List(ctx context.Context, user UserContext) ([]Secret, error) {
	const op = "SecretService.List"

	all, err := s.repo.ListSecrets(ctx, user.OrgID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	readable := make([]Secret, 0, len(all))
	for _, stored := range all {
		acls, err := s.repo.ListACLs(ctx, stored.ID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if s.resolve(user, stored.OrgID, acls).Read {
			stored.Value = ""
			readable = append(readable, stored)
		}
	}
	return readable, nil
}

// Set creates or updates a secret. Any org member may create; updating
// an existing secret requires write. The creator receives a user-level
// read/write grant so they can manage what they created.
func (s *Service) Set(ctx context.Context, user UserContext, name, value string) (*Secret, error) {
	const op = "SecretService.Set"

	if name == "" {
		return nil, errors.NewError("INVALID_INPUT", "secret name is required", op, errors.ErrInvalidInput)
	}
	if user.Substituted {
		return nil, forbidden(op)
	}

	stored, err := s.repo.GetSecret(ctx, user.OrgID, name)
	if err != nil && !errors.IsNotFound(err) && err != ErrNotFound {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	var acls []AclEntry
	if stored != nil {
		acls, err = s.repo.ListACLs(ctx, stored.ID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !s.resolve(user, stored.OrgID, acls).Write {
			return nil, forbidden(op)
		}

		stored.Value = value
		stored.UpdatedAt = now
		if err := s.repo.UpdateSecret(ctx, stored); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else {
		stored = &Secret{
			ID:        uuid.New(),
			OrgID:     user.OrgID,
			Name:      name,
			Value:     value,
			CreatedBy: user.ID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.CreateSecret(ctx, stored); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		creatorID := user.ID
		creatorGrant := AclEntry{
			Principal:   PrincipalUser,
			PrincipalID: &creatorID,
			CanRead:     true,
			CanWrite:    true,
		}
		if err := s.repo.AddACL(ctx, stored.ID, creatorGrant); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		acls = []AclEntry{creatorGrant}
	}

	if err := s.repo.AppendHistory(ctx, stored.ID, &Version{
		Value:     value,
		ChangedBy: user.ID,
		ChangedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.publish(EventSecretSet, stored, acls)
	return stored, nil
}

// Delete removes a secret. Requires write.
func (s *Service) Delete(ctx context.Context, user UserContext, name string) error {
	const op = "SecretService.Delete"

	if user.Substituted {
		return forbidden(op)
	}

	stored, perms, err := s.load(ctx, user, name)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !perms.Read {
		return notFound(op)
	}
	if !perms.Write {
		return forbidden(op)
	}

	// Snapshot the grants before they cascade away; delivery needs them
	// to route the deletion event
	acls, err := s.repo.ListACLs(ctx, stored.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.DeleteSecret(ctx, stored.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.publish(EventSecretDeleted, stored, acls)
	return nil
}

// History returns a secret's version history, newest first. Requires read.
func (s *Service) History(ctx context.Context, user UserContext, name string) ([]Version, error) {
	const op = "SecretService.History"

	stored, perms, err := s.load(ctx, user, name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !perms.Read {
		return nil, notFound(op)
	}

	versions, err := s.repo.ListHistory(ctx, stored.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return versions, nil
}

// ListACLs returns a secret's grants. Requires read.
func (s *Service) ListACLs(ctx context.Context, user UserContext, name string) ([]AclEntry, error) {
	const op = "SecretService.ListACLs"

	stored, perms, err := s.load(ctx, user, name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !perms.Read {
		return nil, notFound(op)
	}

	acls, err := s.repo.ListACLs(ctx, stored.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return acls, nil
}

// Share attaches an ACL grant to a secret. Requires write.
func (s *Service) Share(ctx context.Context, user UserContext, name string, entry AclEntry) error {
	const op = "SecretService.Share"

	if user.Substituted {
		return forbidden(op)
	}
	if err := entry.Validate(); err != nil {
		return errors.NewError("INVALID_INPUT", "invalid acl entry", op, errors.ErrInvalidInput)
	}

	stored, perms, err := s.load(ctx, user, name)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !perms.Read {
		return notFound(op)
	}
	if !perms.Write {
		return forbidden(op)
	}

	if err := s.repo.AddACL(ctx, stored.ID, entry); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info("secret shared",
		"secretID", stored.ID,
		"principal", entry.Principal,
		"by", user.ID,
	)
	return nil
}

// Unshare removes a principal's grant from a secret. Requires write.
// Removing an absent grant is not an error.
func (s *Service) Unshare(ctx context.Context, user UserContext, name string, principal Principal, principalID *uuid.UUID) error {
	const op = "SecretService.Unshare"

	if user.Substituted {
		return forbidden(op)
	}

	stored, perms, err := s.load(ctx, user, name)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !perms.Read {
		return notFound(op)
	}
	if !perms.Write {
		return forbidden(op)
	}

	if err := s.repo.RemoveACL(ctx, stored.ID, principal, principalID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CanReadEvent reports whether a user may see a change event, judged
// against the grant snapshot the event carries
func (s *Service) CanReadEvent(user UserContext, event Event) bool {
	return s.resolve(user, event.OrgID, event.Acls).Read
}

func (s *Service) load(ctx context.Context, user UserContext, name string) (*Secret, PermissionResult, error) {
	stored, err := s.repo.GetSecret(ctx, user.OrgID, name)
	if err != nil {
		if errors.IsNotFound(err) || err == ErrNotFound {
			return nil, PermissionResult{}, errors.NewError("NOT_FOUND", "secret not found", "", errors.ErrNotFound)
		}
		return nil, PermissionResult{}, err
	}

	acls, err := s.repo.ListACLs(ctx, stored.ID)
	if err != nil {
		return nil, PermissionResult{}, err
	}
	return stored, s.resolve(user, stored.OrgID, acls), nil
}

// resolve applies the view-as rule: a substituted context never receives
// admin-implicit access
func (s *Service) resolve(user UserContext, orgID uuid.UUID, acls []AclEntry) PermissionResult {
	adminImplicit := s.adminImplicit && !user.Substituted
	return ResolvePermissions(user, orgID, acls, adminImplicit)
}

func (s *Service) publish(eventType EventType, stored *Secret, acls []AclEntry) {
	if s.events == nil {
		return
	}
	s.events.Publish(Event{
		Type:      eventType,
		SecretID:  stored.ID,
		Name:      stored.Name,
		OrgID:     stored.OrgID,
		Timestamp: s.now(),
		Acls:      append([]AclEntry{}, acls...),
	})
}

func notFound(op string) error {
	return errors.NewError("NOT_FOUND", "secret not found", op, errors.ErrNotFound)
}

func forbidden(op string) error {
	return errors.NewError("FORBIDDEN", "write access required", op, errors.ErrForbidden)
}
