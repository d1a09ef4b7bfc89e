package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"clubfunds/internal/authz"
	"clubfunds/internal/database"
	"clubfunds/internal/util"

	"github.com/google/uuid"
)

// RoleGroupService administers groups, roles, role permissions and role
// assignments. Every mutation is checked against the caller's access before
// touching the database, and every successful mutation invalidates the
// permission cache: a changed role can alter any user's effective access.
type RoleGroupService struct {
	db       *database.Database
	resolver *authz.Resolver
	logger   *slog.Logger
}

func NewRoleGroupService(db *database.Database, resolver *authz.Resolver, logger *slog.Logger) *RoleGroupService {
	return &RoleGroupService{db: db, resolver: resolver, logger: logger}
}

// ListGroups is available to any authenticated user; groups are reference
// data for forms and filters.
func (s *RoleGroupService) ListGroups(ctx context.Context, userID uuid.UUID) ([]database.Group, error) {
	if _, err := s.resolver.Resolve(ctx, userID); err != nil {
		return nil, fmt.Errorf("service: failed to resolve access: %w", err)
	}
	groups, err := s.db.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list groups: %w", err)
	}
	return groups, nil
}

type UpsertGroupParams struct {
	ID   *uuid.UUID // nil creates a new group
	Name string
}

// UpsertGroup creates or renames a group. Group structure is organization
// infrastructure, so this requires organization-wide user management.
func (s *RoleGroupService) UpsertGroup(ctx context.Context, userID uuid.UUID, params UpsertGroupParams) (database.Group, error) {
	access, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return database.Group{}, fmt.Errorf("service: failed to resolve access: %w", err)
	}
	if !access.Has(authz.PermManageAllUsers) {
		return database.Group{}, ErrAccessDenied
	}

	name := strings.TrimSpace(params.Name)
	if name == "" {
		return database.Group{}, ValidationError{Field: "name", Reason: "must not be empty"}
	}

	if params.ID == nil {
		group, err := s.db.CreateGroup(ctx, database.CreateGroupParams{Name: name})
		if err != nil {
			if errors.Is(err, database.ErrDuplicateName) {
				return database.Group{}, ConflictError{Resource: "group", Name: name}
			}
			return database.Group{}, fmt.Errorf("service: failed to create group: %w", err)
		}
		s.logger.Info("group created", "group_id", group.ID, "name", name, "by", userID)
		return group, nil
	}

	if err := s.db.UpdateGroupByID(ctx, *params.ID, database.UpdateGroupParams{Name: util.Some(name)}); err != nil {
		switch {
		case errors.Is(err, database.ErrGroupNotFound):
			return database.Group{}, ErrNotFound
		case errors.Is(err, database.ErrDuplicateName):
			return database.Group{}, ConflictError{Resource: "group", Name: name}
		}
		return database.Group{}, fmt.Errorf("service: failed to update group: %w", err)
	}

	s.resolver.InvalidateAll(ctx)
	s.logger.Info("group renamed", "group_id", *params.ID, "name", name, "by", userID)
	return s.db.GetGroupByID(ctx, *params.ID)
}

// DeleteGroup removes a group that nothing references. Users still in the
// group or roles still scoped to it block the delete.
func (s *RoleGroupService) DeleteGroup(ctx context.Context, userID uuid.UUID, groupID uuid.UUID) error {
	access, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return fmt.Errorf("service: failed to resolve access: %w", err)
	}
	if !access.Has(authz.PermManageAllUsers) {
		return ErrAccessDenied
	}

	members, err := s.db.CountUsersInGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("service: failed to count group members: %w", err)
	}
	if members > 0 {
		return ReferentialIntegrityError{Resource: "group", Dependent: "user", Count: members}
	}

	references, err := s.db.CountGroupRoleReferences(ctx, groupID)
	if err != nil {
		return fmt.Errorf("service: failed to count group role references: %w", err)
	}
	if references > 0 {
		return ReferentialIntegrityError{Resource: "group", Dependent: "role assignment", Count: references}
	}

	if err := s.db.DeleteGroupByID(ctx, groupID); err != nil {
		if errors.Is(err, database.ErrGroupNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("service: failed to delete group: %w", err)
	}

	s.resolver.InvalidateAll(ctx)
	s.logger.Info("group deleted", "group_id", groupID, "by", userID)
	return nil
}

// RoleDetail is a role with its permissions and group scopes resolved.
type RoleDetail struct {
	Role        database.Role
	Permissions []string
	Scopes      []database.GroupRole
}

func (s *RoleGroupService) ListRoles(ctx context.Context, userID uuid.UUID) ([]RoleDetail, error) {
	access, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to resolve access: %w", err)
	}
	if !authz.CanManageRoles(access) {
		return nil, ErrAccessDenied
	}

	roles, err := s.db.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list roles: %w", err)
	}

	details := make([]RoleDetail, 0, len(roles))
	for _, role := range roles {
		permissions, err := s.db.ListRolePermissions(ctx, role.ID)
		if err != nil {
			return nil, fmt.Errorf("service: failed to list role permissions: %w", err)
		}
		scopes, err := s.db.ListRoleScopes(ctx, role.ID)
		if err != nil {
			return nil, fmt.Errorf("service: failed to list role scopes: %w", err)
		}
		details = append(details, RoleDetail{Role: role, Permissions: permissions, Scopes: scopes})
	}
	return details, nil
}

func (s *RoleGroupService) ListPermissions(ctx context.Context, userID uuid.UUID) ([]database.Permission, error) {
	access, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to resolve access: %w", err)
	}
	if !authz.CanManageRoles(access) {
		return nil, ErrAccessDenied
	}
	permissions, err := s.db.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list permissions: %w", err)
	}
	return permissions, nil
}

type UpsertRoleParams struct {
	ID          *uuid.UUID // nil creates a new role
	Name        string
	Permissions []string
	Scopes      []database.RoleScope
}

// UpsertRole creates or replaces a role's definition: name, permission set
// and group scopes, in one transaction. Club-level role managers can only
// grant permissions they hold themselves, never protected ones, and can only
// scope roles into their own groups.
func (s *RoleGroupService) UpsertRole(ctx context.Context, userID uuid.UUID, params UpsertRoleParams) (database.Role, error) {
	access, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return database.Role{}, fmt.Errorf("service: failed to resolve access: %w", err)
	}
	if !authz.CanManageRoles(access) {
		return database.Role{}, ErrAccessDenied
	}

	name := strings.TrimSpace(params.Name)
	if name == "" {
		return database.Role{}, ValidationError{Field: "name", Reason: "must not be empty"}
	}
	for _, permission := range params.Permissions {
		if !authz.Known(permission) {
			return database.Role{}, ValidationError{Field: "permissions", Reason: fmt.Sprintf("unknown permission %q", permission)}
		}
	}
	if !authz.CanGrantPermissions(access, params.Permissions) {
		return database.Role{}, ErrAccessDenied
	}
	for _, scope := range params.Scopes {
		if !authz.CanScopeRoleToGroup(access, scope.GroupID.Val, scope.IsGlobal) {
			return database.Role{}, ErrAccessDenied
		}
	}

	if params.ID == nil {
		role, err := s.db.CreateRole(ctx, database.CreateRoleParams{
			Name:            name,
			PermissionNames: params.Permissions,
			Scopes:          params.Scopes,
		})
		if err != nil {
			if errors.Is(err, database.ErrDuplicateName) {
				return database.Role{}, ConflictError{Resource: "role", Name: name}
			}
			return database.Role{}, fmt.Errorf("service: failed to create role: %w", err)
		}
		s.logger.Info("role created", "role_id", role.ID, "name", name, "by", userID)
		return role, nil
	}

	// Editing an existing role also requires authority over what the role
	// already grants and where it is currently scoped, or a club manager
	// could strip permissions from an organization-wide role or re-home
	// another club's role.
	existing, err := s.db.ListRolePermissions(ctx, *params.ID)
	if err != nil {
		return database.Role{}, fmt.Errorf("service: failed to load current role permissions: %w", err)
	}
	if !authz.CanGrantPermissions(access, existing) {
		return database.Role{}, ErrAccessDenied
	}
	if err := s.requireRoleScopeAuthority(ctx, access, *params.ID); err != nil {
		return database.Role{}, err
	}

	err = s.db.UpdateRole(ctx, *params.ID, database.UpdateRoleParams{
		Name:            util.Some(name),
		PermissionNames: util.Some(params.Permissions),
		Scopes:          util.Some(params.Scopes),
	})
	if err != nil {
		switch {
		case errors.Is(err, database.ErrRoleNotFound):
			return database.Role{}, ErrNotFound
		case errors.Is(err, database.ErrDuplicateName):
			return database.Role{}, ConflictError{Resource: "role", Name: name}
		}
		return database.Role{}, fmt.Errorf("service: failed to update role: %w", err)
	}

	s.resolver.InvalidateAll(ctx)
	s.logger.Info("role updated", "role_id", *params.ID, "name", name, "by", userID)
	return s.db.GetRoleByID(ctx, *params.ID)
}

// DeleteRole removes a role nobody holds. Active assignments block the
// delete.
func (s *RoleGroupService) DeleteRole(ctx context.Context, userID uuid.UUID, roleID uuid.UUID) error {
	access, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return fmt.Errorf("service: failed to resolve access: %w", err)
	}
	if !authz.CanManageRoles(access) {
		return ErrAccessDenied
	}

	permissions, err := s.db.ListRolePermissions(ctx, roleID)
	if err != nil {
		return fmt.Errorf("service: failed to load role permissions: %w", err)
	}
	if !authz.CanGrantPermissions(access, permissions) {
		return ErrAccessDenied
	}
	if err := s.requireRoleScopeAuthority(ctx, access, roleID); err != nil {
		return err
	}

	assignments, err := s.db.CountRoleAssignments(ctx, roleID)
	if err != nil {
		return fmt.Errorf("service: failed to count role assignments: %w", err)
	}
	if assignments > 0 {
		return ReferentialIntegrityError{Resource: "role", Dependent: "user", Count: assignments}
	}

	if err := s.db.DeleteRoleByID(ctx, roleID); err != nil {
		if errors.Is(err, database.ErrRoleNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("service: failed to delete role: %w", err)
	}

	s.resolver.InvalidateAll(ctx)
	s.logger.Info("role deleted", "role_id", roleID, "by", userID)
	return nil
}

type AssignRoleParams struct {
	UserID   uuid.UUID
	RoleID   uuid.UUID
	GroupID  *uuid.UUID // nil with IsGlobal false scopes to the user only
	IsGlobal bool
}

// AssignRole attaches a role to a user. Roles carrying protected permissions
// require organization-wide role management; club managers may only assign
// within their own groups and never globally.
func (s *RoleGroupService) AssignRole(ctx context.Context, userID uuid.UUID, params AssignRoleParams) error {
	access, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return fmt.Errorf("service: failed to resolve access: %w", err)
	}

	permissions, err := s.db.ListRolePermissions(ctx, params.RoleID)
	if err != nil {
		return fmt.Errorf("service: failed to load role permissions: %w", err)
	}

	var targetGroup uuid.UUID
	hasGroup := params.GroupID != nil
	if hasGroup {
		targetGroup = *params.GroupID
	}
	if params.IsGlobal {
		hasGroup = false
	}
	if !authz.CanAssignRole(access, permissions, targetGroup, hasGroup) {
		return ErrAccessDenied
	}

	assignParams := database.AssignUserRoleParams{
		UserID:   params.UserID,
		RoleID:   params.RoleID,
		IsGlobal: params.IsGlobal,
	}
	if params.GroupID != nil {
		assignParams.GroupID = util.Some(*params.GroupID)
	}
	if _, err := s.db.AssignUserRole(ctx, assignParams); err != nil {
		return fmt.Errorf("service: failed to assign role: %w", err)
	}

	s.resolver.Invalidate(ctx, params.UserID)
	s.logger.Info("role assigned", "role_id", params.RoleID, "user_id", params.UserID, "by", userID)
	return nil
}

// RemoveRole detaches a role from a user, under the same authority rules as
// assignment.
func (s *RoleGroupService) RemoveRole(ctx context.Context, userID uuid.UUID, targetUserID uuid.UUID, roleID uuid.UUID) error {
	access, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return fmt.Errorf("service: failed to resolve access: %w", err)
	}
	if !authz.CanManageRoles(access) {
		return ErrAccessDenied
	}

	permissions, err := s.db.ListRolePermissions(ctx, roleID)
	if err != nil {
		return fmt.Errorf("service: failed to load role permissions: %w", err)
	}
	if !authz.CanGrantPermissions(access, permissions) {
		return ErrAccessDenied
	}

	// Removal takes the same authority as assignment: every assignment of
	// this role held by the target must be within the caller's reach, or a
	// club manager could strip roles from another club's members.
	assignments, err := s.db.ListUserRoles(ctx, targetUserID)
	if err != nil {
		return fmt.Errorf("service: failed to load target assignments: %w", err)
	}
	for _, assignment := range assignments {
		if assignment.RoleID != roleID {
			continue
		}
		hasGroup := assignment.GroupID.IsSet && !assignment.IsGlobal
		if !authz.CanAssignRole(access, permissions, assignment.GroupID.Val, hasGroup) {
			return ErrAccessDenied
		}
	}

	if err := s.db.RemoveUserRole(ctx, targetUserID, roleID); err != nil {
		return fmt.Errorf("service: failed to remove role: %w", err)
	}

	s.resolver.Invalidate(ctx, targetUserID)
	s.logger.Info("role removed", "role_id", roleID, "user_id", targetUserID, "by", userID)
	return nil
}

// requireRoleScopeAuthority checks the caller's authority over every group
// the role is currently scoped to. Global scopes take organization-wide role
// management; group scopes must intersect the caller's own groups.
func (s *RoleGroupService) requireRoleScopeAuthority(ctx context.Context, access authz.Access, roleID uuid.UUID) error {
	scopes, err := s.db.ListRoleScopes(ctx, roleID)
	if err != nil {
		return fmt.Errorf("service: failed to load current role scopes: %w", err)
	}
	for _, scope := range scopes {
		if !authz.CanScopeRoleToGroup(access, scope.GroupID.Val, scope.IsGlobal) {
			return ErrAccessDenied
		}
	}
	return nil
}
