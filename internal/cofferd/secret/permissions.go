package secret

import (
	"github.com/google/uuid"
)

// ResolvePermissions decides what a user may do with a secret belonging
// to orgID under the given ACL set.
//
// Cross-tenant isolation is absolute and checked before any ACL logic.
// Admins get implicit full access within their org when adminImplicit is
// set; otherwise the result is the monotonic OR-union of all matching
// grants. There is no explicit deny.
func ResolvePermissions(user UserContext, orgID uuid.UUID, acls []AclEntry, adminImplicit bool) PermissionResult {
	if user.OrgID != orgID {
		return PermissionResult{}
	}

	if user.IsAdmin && adminImplicit {
		return PermissionResult{Read: true, Write: true}
	}

	var result PermissionResult
	for _, entry := range acls {
		if !matches(user, entry) {
			continue
		}
		result.Read = result.Read || entry.CanRead
		result.Write = result.Write || entry.CanWrite
		if result.Read && result.Write {
			break
		}
	}
	return result
}

func matches(user UserContext, entry AclEntry) bool {
	switch entry.Principal {
	case PrincipalOrg:
		return true
	case PrincipalUser:
		return entry.PrincipalID != nil && *entry.PrincipalID == user.ID
	case PrincipalTeam:
		return entry.PrincipalID != nil && user.MemberOfTeam(*entry.PrincipalID)
	default:
		return false
	}
}
