package secret

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func orgGrant(read, write bool) AclEntry {
	return AclEntry{Principal: PrincipalOrg, CanRead: read, CanWrite: write}
}

func userGrant(id uuid.UUID, read, write bool) AclEntry {
	return AclEntry{Principal: PrincipalUser, PrincipalID: &id, CanRead: read, CanWrite: write}
}

func teamGrant(id uuid.UUID, read, write bool) AclEntry {
	return AclEntry{Principal: PrincipalTeam, PrincipalID: &id, CanRead: read, CanWrite: write}
}

func TestCrossTenantDenialIsAbsolute(t *testing.T) {
	otherOrg := uuid.New()
	user := UserContext{ID: uuid.New(), OrgID: uuid.New(), IsAdmin: true}

	// Even an admin with a direct grant gets nothing outside their org
	acls := []AclEntry{
		orgGrant(true, true),
		userGrant(user.ID, true, true),
	}
	result := ResolvePermissions(user, otherOrg, acls, true)
	assert.Equal(t, PermissionResult{}, result)
}

func TestAdminImplicitAccess(t *testing.T) {
	orgID := uuid.New()
	admin := UserContext{ID: uuid.New(), OrgID: orgID, IsAdmin: true}

	// Zero ACLs, still full access
	assert.Equal(t, PermissionResult{Read: true, Write: true},
		ResolvePermissions(admin, orgID, nil, true))

	// With adminImplicit off, the admin flag carries no weight
	assert.Equal(t, PermissionResult{},
		ResolvePermissions(admin, orgID, nil, false))
}

func TestOrgGrantAppliesToEveryMember(t *testing.T) {
	orgID := uuid.New()
	member := UserContext{ID: uuid.New(), OrgID: orgID}

	result := ResolvePermissions(member, orgID, []AclEntry{orgGrant(true, false)}, true)
	assert.Equal(t, PermissionResult{Read: true}, result)
}

func TestUserGrantMatchesOnlyThatUser(t *testing.T) {
	orgID := uuid.New()
	alice := UserContext{ID: uuid.New(), OrgID: orgID}
	bob := UserContext{ID: uuid.New(), OrgID: orgID}

	acls := []AclEntry{userGrant(alice.ID, true, true)}
	assert.Equal(t, PermissionResult{Read: true, Write: true}, ResolvePermissions(alice, orgID, acls, true))
	assert.Equal(t, PermissionResult{}, ResolvePermissions(bob, orgID, acls, true))
}

func TestTeamGrantRequiresMembership(t *testing.T) {
	orgID := uuid.New()
	teamID := uuid.New()
	member := UserContext{ID: uuid.New(), OrgID: orgID, TeamIDs: []uuid.UUID{teamID}}
	outsider := UserContext{ID: uuid.New(), OrgID: orgID}

	acls := []AclEntry{teamGrant(teamID, true, false)}
	assert.Equal(t, PermissionResult{Read: true}, ResolvePermissions(member, orgID, acls, true))
	assert.Equal(t, PermissionResult{}, ResolvePermissions(outsider, orgID, acls, true))

	// A user-level write grant for the outsider unions in write only
	acls = append(acls, userGrant(outsider.ID, false, true))
	assert.Equal(t, PermissionResult{Read: false, Write: true},
		ResolvePermissions(outsider, orgID, acls, true))
}

func TestUnionIsMonotonic(t *testing.T) {
	orgID := uuid.New()
	teamID := uuid.New()
	user := UserContext{ID: uuid.New(), OrgID: orgID, TeamIDs: []uuid.UUID{teamID}}

	base := []AclEntry{teamGrant(teamID, true, false)}
	baseline := ResolvePermissions(user, orgID, base, true)
	assert.Equal(t, PermissionResult{Read: true}, baseline)

	// Adding a matching grant never decreases read or write
	widened := append(append([]AclEntry{}, base...), userGrant(user.ID, false, true))
	result := ResolvePermissions(user, orgID, widened, true)
	assert.True(t, result.Read)
	assert.True(t, result.Write)

	// Removing a non-matching grant never changes the result
	withNoise := append(append([]AclEntry{}, base...), userGrant(uuid.New(), true, true))
	assert.Equal(t, baseline, ResolvePermissions(user, orgID, withNoise, true))
}

func TestFoldOrderIndependent(t *testing.T) {
	orgID := uuid.New()
	user := UserContext{ID: uuid.New(), OrgID: orgID}

	acls := []AclEntry{
		userGrant(user.ID, false, true),
		orgGrant(true, false),
	}
	reversed := []AclEntry{acls[1], acls[0]}

	want := PermissionResult{Read: true, Write: true}
	assert.Equal(t, want, ResolvePermissions(user, orgID, acls, true))
	assert.Equal(t, want, ResolvePermissions(user, orgID, reversed, true))
}

func TestAclEntryValidate(t *testing.T) {
	id := uuid.New()

	assert.NoError(t, (&AclEntry{Principal: PrincipalOrg}).Validate())
	assert.NoError(t, (&AclEntry{Principal: PrincipalTeam, PrincipalID: &id}).Validate())
	assert.NoError(t, (&AclEntry{Principal: PrincipalUser, PrincipalID: &id}).Validate())

	assert.ErrorIs(t, (&AclEntry{Principal: PrincipalOrg, PrincipalID: &id}).Validate(), ErrInvalidPrincipal)
	assert.ErrorIs(t, (&AclEntry{Principal: PrincipalTeam}).Validate(), ErrInvalidPrincipal)
	assert.ErrorIs(t, (&AclEntry{Principal: "group"}).Validate(), ErrInvalidPrincipal)
}
