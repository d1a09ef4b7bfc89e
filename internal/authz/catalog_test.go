package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalog_Tiers(t *testing.T) {
	tests := []struct {
		name       string
		permission string
		tier       Tier
		protected  bool
	}{
		{name: "manage_all_users_is_protected", permission: PermManageAllUsers, tier: TierProtected, protected: true},
		{name: "manage_all_roles_is_protected", permission: PermManageAllRoles, tier: TierProtected, protected: true},
		{name: "view_all_requests_is_protected", permission: PermViewAllRequests, tier: TierProtected, protected: true},
		{name: "manage_all_requests_is_protected", permission: PermManageAllRequests, tier: TierProtected, protected: true},
		{name: "manage_club_users_is_club", permission: PermManageClubUsers, tier: TierClub, protected: false},
		{name: "view_club_requests_is_club", permission: PermViewClubRequests, tier: TierClub, protected: false},
		{name: "create_requests_is_user", permission: PermCreateRequests, tier: TierUser, protected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.tier, TierOf(tt.permission))
			assert.Equal(t, tt.protected, IsProtected(tt.permission))
			assert.True(t, Known(tt.permission))
		})
	}
}

func TestCatalog_UnknownName(t *testing.T) {
	assert.False(t, Known("launch_rockets"))
	assert.False(t, IsProtected("launch_rockets"))
	assert.Equal(t, Tier(""), TierOf("launch_rockets"))
}

func TestCatalog_AllCoversEveryPermission(t *testing.T) {
	all := All()
	assert.Len(t, all, len(catalog))
	for _, name := range all {
		assert.True(t, Known(name), "All() returned unknown permission %q", name)
	}
}
