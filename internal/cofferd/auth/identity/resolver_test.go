package identity_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffersec/coffer/internal/cofferd/auth/identity"
	"github.com/coffersec/coffer/internal/cofferd/auth/upstream"
)

// fakeRepo is an in-memory identity repository for resolver tests
type fakeRepo struct {
	users map[uuid.UUID]*identity.User
	orgs  map[uuid.UUID]*identity.Organization
	teams map[uuid.UUID][]uuid.UUID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users: make(map[uuid.UUID]*identity.User),
		orgs:  make(map[uuid.UUID]*identity.Organization),
		teams: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (f *fakeRepo) InTx(ctx context.Context, fn func(identity.Repository) error) error {
	return fn(f)
}

func (f *fakeRepo) FindUserByProvider(ctx context.Context, provider, providerID string) (*identity.User, error) {
	for _, u := range f.users {
		if u.Provider == provider && u.ProviderID == providerID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (f *fakeRepo) FindUserByEmail(ctx context.Context, email string) (*identity.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (f *fakeRepo) GetUser(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeRepo) CreateUser(ctx context.Context, user *identity.User) error {
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeRepo) UpdateUser(ctx context.Context, user *identity.User) error {
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeRepo) FindOrgByName(ctx context.Context, name string) (*identity.Organization, error) {
	for _, o := range f.orgs {
		if o.Name == name {
			copied := *o
			return &copied, nil
		}
	}
	return nil, identity.ErrOrgNotFound
}

func (f *fakeRepo) CreateOrg(ctx context.Context, org *identity.Organization) error {
	copied := *org
	f.orgs[org.ID] = &copied
	return nil
}

func (f *fakeRepo) ListTeamIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return f.teams[userID], nil
}

func newResolver(repo identity.Repository) *identity.Resolver {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return identity.NewResolver(repo, "default", logger)
}

func TestResolveCreatesUserAndDefaultOrg(t *testing.T) {
	repo := newFakeRepo()
	resolver := newResolver(repo)

	user, teamIDs, err := resolver.Resolve(context.Background(), &upstream.Profile{
		ProviderID: "12345",
		Login:      "octocat",
		Name:       "Octo Cat",
		Email:      "octo@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "Octo Cat", user.DisplayName)
	assert.Equal(t, "octo@example.com", user.Email)
	assert.False(t, user.IsAdmin)
	assert.Empty(t, teamIDs)

	org, err := repo.FindOrgByName(context.Background(), "default")
	require.NoError(t, err)
	assert.Equal(t, org.ID, user.OrgID)
}

func TestResolveReusesDefaultOrg(t *testing.T) {
	repo := newFakeRepo()
	resolver := newResolver(repo)

	first, _, err := resolver.Resolve(context.Background(), &upstream.Profile{
		ProviderID: "1", Login: "alice", Email: "alice@example.com",
	})
	require.NoError(t, err)

	second, _, err := resolver.Resolve(context.Background(), &upstream.Profile{
		ProviderID: "2", Login: "bob", Email: "bob@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, first.OrgID, second.OrgID)
	assert.Len(t, repo.orgs, 1)
}

func TestResolveUpdatesExistingUser(t *testing.T) {
	repo := newFakeRepo()
	resolver := newResolver(repo)

	created, _, err := resolver.Resolve(context.Background(), &upstream.Profile{
		ProviderID: "12345", Login: "octocat", Email: "octo@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "octocat", created.DisplayName)

	// Re-login refreshes profile fields in place
	updated, _, err := resolver.Resolve(context.Background(), &upstream.Profile{
		ProviderID: "12345", Login: "octocat", Name: "Octo Cat", Email: "new@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Octo Cat", updated.DisplayName)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.Len(t, repo.users, 1)
}

func TestResolveLinksByEmail(t *testing.T) {
	repo := newFakeRepo()
	resolver := newResolver(repo)

	orgID := uuid.New()
	existing := &identity.User{
		ID:          uuid.New(),
		OrgID:       orgID,
		Email:       "octo@example.com",
		DisplayName: "Imported",
		Provider:    "",
		ProviderID:  "",
	}
	require.NoError(t, repo.CreateUser(context.Background(), existing))

	user, _, err := resolver.Resolve(context.Background(), &upstream.Profile{
		ProviderID: "12345", Login: "octocat", Email: "octo@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, existing.ID, user.ID)
	assert.Equal(t, identity.ProviderGitHub, user.Provider)
	assert.Equal(t, "12345", user.ProviderID)
	assert.Equal(t, orgID, user.OrgID)
}

func TestDisplayNameFallsBackToEmailLocalPart(t *testing.T) {
	repo := newFakeRepo()
	resolver := newResolver(repo)

	user, _, err := resolver.Resolve(context.Background(), &upstream.Profile{
		ProviderID: "9", Email: "plain@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "plain", user.DisplayName)
}

func TestResolveRejectsEmptyProviderID(t *testing.T) {
	resolver := newResolver(newFakeRepo())
	_, _, err := resolver.Resolve(context.Background(), &upstream.Profile{Email: "x@example.com"})
	assert.Error(t, err)
}
