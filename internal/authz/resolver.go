package authz

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"clubfunds/internal/database"

	"github.com/google/uuid"
)

// Access is the resolved authority of one authenticated user: the union of
// permission names across every held role, the groups the user belongs to or
// administers, and whether any assignment applies globally. Permissions are
// additive across roles, never subtractive.
type Access struct {
	UserID      uuid.UUID   `json:"user_id"`
	Permissions []string    `json:"permissions"`
	GroupIDs    []uuid.UUID `json:"group_ids"`
	GlobalScope bool        `json:"global_scope"`
}

// Has reports whether the access set contains the permission name.
func (a Access) Has(name string) bool {
	for _, p := range a.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

// InGroup reports whether groupID is one of the user's groups.
func (a Access) InGroup(groupID uuid.UUID) bool {
	for _, g := range a.GroupIDs {
		if g == groupID {
			return true
		}
	}
	return false
}

type Resolver struct {
	db     *database.Database
	cache  *Cache
	logger *slog.Logger
}

func NewResolver(db *database.Database, cache *Cache, logger *slog.Logger) *Resolver {
	return &Resolver{db: db, cache: cache, logger: logger}
}

// Resolve computes the effective access for a user. A user with no resolvable
// role gets an empty permission set, not an error: callers must treat the
// empty set as "no privileged access" (fail-closed).
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) (Access, error) {
	if access, ok := r.cache.Get(ctx, userID); ok {
		return access, nil
	}

	user, err := r.db.GetUserByID(ctx, userID)
	if err != nil {
		return Access{}, fmt.Errorf("authz: failed to load user: %w", err)
	}

	assignments, err := r.db.ListUserRoles(ctx, userID)
	if err != nil {
		return Access{}, fmt.Errorf("authz: failed to load role assignments: %w", err)
	}

	permissions, err := r.db.ListUserPermissions(ctx, userID)
	if err != nil {
		return Access{}, fmt.Errorf("authz: failed to load permissions: %w", err)
	}

	access := buildAccess(user, assignments, permissions)

	r.cache.Set(ctx, access)
	return access, nil
}

// buildAccess merges the traversal results into an Access value. Group-scoped
// and global assignments of the same role keep their distinct applicability:
// the group still appears in GroupIDs and GlobalScope only reflects the
// presence of a global assignment.
func buildAccess(user database.User, assignments []database.UserRole, permissions []string) Access {
	access := Access{
		UserID:      user.ID,
		Permissions: permissions,
	}
	if access.Permissions == nil {
		access.Permissions = []string{}
	}

	groupSet := map[uuid.UUID]struct{}{}
	if user.GroupID.IsSet {
		groupSet[user.GroupID.Val] = struct{}{}
	}
	for _, assignment := range assignments {
		if assignment.IsGlobal {
			access.GlobalScope = true
		}
		if assignment.GroupID.IsSet {
			groupSet[assignment.GroupID.Val] = struct{}{}
		}
	}

	access.GroupIDs = make([]uuid.UUID, 0, len(groupSet))
	for g := range groupSet {
		access.GroupIDs = append(access.GroupIDs, g)
	}
	sort.Slice(access.GroupIDs, func(i, j int) bool {
		return access.GroupIDs[i].String() < access.GroupIDs[j].String()
	})

	return access
}

// Invalidate drops the cached access for one user.
func (r *Resolver) Invalidate(ctx context.Context, userID uuid.UUID) {
	r.cache.Invalidate(ctx, userID)
}

// InvalidateAll drops every cached access entry. Called after role or group
// mutations, which can change any user's effective permissions.
func (r *Resolver) InvalidateAll(ctx context.Context) {
	r.cache.InvalidateAll(ctx)
}
