// Package authz implements the permission catalog, the per-user permission
// resolver and the access policy that scopes every read and gates every write.
package authz

// Permission names. The catalog is fixed; roles bundle these, users hold
// roles, and the policy derives visibility from the union of held names.
const (
	PermManageAllUsers    = "manage_all_users"
	PermManageAllRoles    = "manage_all_roles"
	PermViewAllRequests   = "view_all_requests"
	PermManageAllRequests = "manage_all_requests"

	PermManageClubUsers    = "manage_club_users"
	PermManageClubRoles    = "manage_club_roles"
	PermViewClubRequests   = "view_club_requests"
	PermManageClubRequests = "manage_club_requests"

	PermCreateRequests = "create_requests"
)

// Tier classifies how much authority assigning a permission requires.
type Tier string

const (
	TierProtected Tier = "protected" // organization-wide authority required
	TierClub      Tier = "club"      // club administrators may grant within their groups
	TierUser      Tier = "user"      // every member holds these
)

var catalog = map[string]Tier{
	PermManageAllUsers:     TierProtected,
	PermManageAllRoles:     TierProtected,
	PermViewAllRequests:    TierProtected,
	PermManageAllRequests:  TierProtected,
	PermManageClubUsers:    TierClub,
	PermManageClubRoles:    TierClub,
	PermViewClubRequests:   TierClub,
	PermManageClubRequests: TierClub,
	PermCreateRequests:     TierUser,
}

// IsProtected reports whether name is a protected-tier permission. Unknown
// names are not protected.
func IsProtected(name string) bool {
	return catalog[name] == TierProtected
}

// TierOf returns the tier of a catalog permission; the empty Tier for
// unknown names.
func TierOf(name string) Tier {
	return catalog[name]
}

// Known reports whether name belongs to the catalog.
func Known(name string) bool {
	_, ok := catalog[name]
	return ok
}

// All returns every catalog permission name in a stable order.
func All() []string {
	return []string{
		PermManageAllUsers,
		PermManageAllRoles,
		PermViewAllRequests,
		PermManageAllRequests,
		PermManageClubUsers,
		PermManageClubRoles,
		PermViewClubRequests,
		PermManageClubRequests,
		PermCreateRequests,
	}
}
