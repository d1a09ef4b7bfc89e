package authz

import (
	"github.com/google/uuid"
)

// ScopeKind is the visibility class a permission set grants over request-like
// collections.
type ScopeKind int

const (
	// ScopeAll sees every row, unfiltered.
	ScopeAll ScopeKind = iota
	// ScopeGroups sees rows whose group is one the user administers.
	ScopeGroups
	// ScopeOwn sees only rows the user submitted.
	ScopeOwn
)

// Scope is the visibility predicate derived from an Access; the query layer
// translates it into SQL.
type Scope struct {
	Kind     ScopeKind
	GroupIDs []uuid.UUID
	UserID   uuid.UUID
}

// RequestScope decides what slice of the request collections the access may
// read. Rules are evaluated top to bottom, first match wins:
// all-requests permissions beat club-scoped ones, which beat own-only.
func RequestScope(access Access) Scope {
	switch {
	case access.Has(PermViewAllRequests) || access.Has(PermManageAllRequests):
		return Scope{Kind: ScopeAll}
	case access.Has(PermViewClubRequests) || access.Has(PermManageClubRequests):
		return Scope{Kind: ScopeGroups, GroupIDs: access.GroupIDs}
	default:
		return Scope{Kind: ScopeOwn, UserID: access.UserID}
	}
}

// CanManageRequest gates status mutation of a request-like row that belongs
// to rowGroup (unset when the row has no group).
func CanManageRequest(access Access, rowGroup uuid.UUID, hasGroup bool) bool {
	if access.Has(PermManageAllRequests) {
		return true
	}
	if access.Has(PermManageClubRequests) {
		return hasGroup && access.InGroup(rowGroup)
	}
	return false
}

// CanCreateRequest reports whether the access may submit requests at all.
func CanCreateRequest(access Access) bool {
	return access.Has(PermCreateRequests)
}

// CanViewRequest gates a detail read of a single row. Denial is reported as
// access denied, never as not-found: existence is not hidden.
func CanViewRequest(access Access, ownerID uuid.UUID, rowGroup uuid.UUID, hasGroup bool) bool {
	scope := RequestScope(access)
	switch scope.Kind {
	case ScopeAll:
		return true
	case ScopeGroups:
		return hasGroup && access.InGroup(rowGroup)
	default:
		return ownerID == access.UserID
	}
}

// CanManageUsers reports whether the access may modify the target user, whose
// group membership is targetGroups. Club-level managers may only touch users
// whose groups intersect their own.
func CanManageUsers(access Access, targetGroups []uuid.UUID) bool {
	if access.Has(PermManageAllUsers) {
		return true
	}
	if !access.Has(PermManageClubUsers) {
		return false
	}
	return groupsIntersect(access.GroupIDs, targetGroups)
}

// CanManageRoles reports whether the access may create or edit roles at all.
func CanManageRoles(access Access) bool {
	return access.Has(PermManageAllRoles) || access.Has(PermManageClubRoles)
}

// AllowedRolePermissions returns the permission names the caller may put on a
// role it creates or edits. Holders of manage_all_roles may grant anything in
// the catalog; club-level role managers are limited to their own held
// permissions minus the protected tier, which blocks privilege escalation.
func AllowedRolePermissions(access Access) []string {
	if access.Has(PermManageAllRoles) {
		return All()
	}
	var allowed []string
	for _, name := range access.Permissions {
		if !Known(name) || IsProtected(name) {
			continue
		}
		allowed = append(allowed, name)
	}
	return allowed
}

// CanGrantPermissions checks a requested permission list against
// AllowedRolePermissions.
func CanGrantPermissions(access Access, requested []string) bool {
	allowed := AllowedRolePermissions(access)
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		allowedSet[name] = struct{}{}
	}
	for _, name := range requested {
		if _, ok := allowedSet[name]; !ok {
			return false
		}
	}
	return true
}

// CanAssignRole gates attaching an existing role to a user. A role carrying
// any protected-tier permission requires manage_all_roles; club-level
// managers may additionally only assign within their own groups.
func CanAssignRole(access Access, rolePermissions []string, targetGroup uuid.UUID, hasGroup bool) bool {
	if access.Has(PermManageAllRoles) {
		return true
	}
	if !access.Has(PermManageClubRoles) {
		return false
	}
	for _, name := range rolePermissions {
		if IsProtected(name) {
			return false
		}
	}
	if !hasGroup {
		// Global assignment is organization-wide authority.
		return false
	}
	return access.InGroup(targetGroup)
}

// CanScopeRoleToGroup limits club-level role managers to scoping roles only
// into groups they administer.
func CanScopeRoleToGroup(access Access, groupID uuid.UUID, isGlobal bool) bool {
	if access.Has(PermManageAllRoles) {
		return true
	}
	if !access.Has(PermManageClubRoles) {
		return false
	}
	if isGlobal {
		return false
	}
	return access.InGroup(groupID)
}

func groupsIntersect(a, b []uuid.UUID) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
