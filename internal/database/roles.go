package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clubfunds/internal/util"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RoleScope pairs a role with one group it is available in, or marks it
// available everywhere.
type RoleScope struct {
	GroupID  util.Optional[uuid.UUID]
	IsGlobal bool
}

type CreateRoleParams struct {
	Name            string
	PermissionNames []string
	Scopes          []RoleScope
}

// CreateRole inserts the role row, its permission attachments and its group
// scopes in one transaction. A failure at any step leaves no orphan role.
func (db *Database) CreateRole(ctx context.Context, params CreateRoleParams) (Role, error) {
	role := Role{
		ID:        uuid.New(),
		Name:      params.Name,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return role, fmt.Errorf("database: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `INSERT INTO tbl_role (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		role.ID, role.Name, role.CreatedAt, role.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return role, ErrDuplicateName
		}
		return role, fmt.Errorf("database: failed to insert role (name=%s): %w", role.Name, err)
	}

	if err := attachRolePermissions(ctx, tx, role.ID, params.PermissionNames); err != nil {
		return role, err
	}
	if err := attachRoleScopes(ctx, tx, role.ID, params.Scopes); err != nil {
		return role, err
	}

	if err := tx.Commit(ctx); err != nil {
		return role, fmt.Errorf("database: failed to commit role creation: %w", err)
	}
	return role, nil
}

type UpdateRoleParams struct {
	Name            util.Optional[string]
	PermissionNames util.Optional[[]string]
	Scopes          util.Optional[[]RoleScope]
}

// UpdateRole replaces the role's name, permission set and scopes as requested,
// in one transaction.
func (db *Database) UpdateRole(ctx context.Context, id uuid.UUID, params UpdateRoleParams) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("database: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if params.Name.IsSet {
		tag, err := tx.Exec(ctx, `UPDATE tbl_role SET name = $1, updated_at = $2 WHERE id = $3`,
			params.Name.Val, time.Now().UTC(), id)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateName
			}
			return fmt.Errorf("database: failed to update role (id=%s): %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrRoleNotFound
		}
	}

	if params.PermissionNames.IsSet {
		if _, err := tx.Exec(ctx, `DELETE FROM tbl_role_permission WHERE role_id = $1`, id); err != nil {
			return fmt.Errorf("database: failed to clear role permissions (role_id=%s): %w", id, err)
		}
		if err := attachRolePermissions(ctx, tx, id, params.PermissionNames.Val); err != nil {
			return err
		}
	}

	if params.Scopes.IsSet {
		if _, err := tx.Exec(ctx, `DELETE FROM tbl_group_role WHERE role_id = $1`, id); err != nil {
			return fmt.Errorf("database: failed to clear role scopes (role_id=%s): %w", id, err)
		}
		if err := attachRoleScopes(ctx, tx, id, params.Scopes.Val); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("database: failed to commit role update: %w", err)
	}
	return nil
}

func attachRolePermissions(ctx context.Context, tx pgx.Tx, roleID uuid.UUID, names []string) error {
	for _, name := range names {
		tag, err := tx.Exec(ctx, `INSERT INTO tbl_role_permission (role_id, permission_id)
			SELECT $1, id FROM tbl_permission WHERE name = $2`, roleID, name)
		if err != nil {
			return fmt.Errorf("database: failed to attach permission (role_id=%s, name=%s): %w", roleID, name, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrPermissionNotFound
		}
	}
	return nil
}

func attachRoleScopes(ctx context.Context, tx pgx.Tx, roleID uuid.UUID, scopes []RoleScope) error {
	for _, scope := range scopes {
		if _, err := tx.Exec(ctx, `INSERT INTO tbl_group_role (id, role_id, group_id, is_global, created_at) VALUES ($1, $2, $3, $4, $5)`,
			uuid.New(), roleID, scope.GroupID, scope.IsGlobal, time.Now().UTC()); err != nil {
			return fmt.Errorf("database: failed to attach role scope (role_id=%s): %w", roleID, err)
		}
	}
	return nil
}

func (db *Database) GetRoleByID(ctx context.Context, id uuid.UUID) (Role, error) {
	var role Role
	err := db.Pool.QueryRow(ctx, `SELECT id, name, created_at, updated_at FROM tbl_role WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return role, ErrRoleNotFound
		}
		return role, fmt.Errorf("database: failed to scan role: %w", err)
	}
	return role, nil
}

func (db *Database) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := db.Pool.Query(ctx, `SELECT id, name, created_at, updated_at FROM tbl_role ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, fmt.Errorf("database: failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate roles: %w", err)
	}
	return roles, nil
}

func (db *Database) DeleteRoleByID(ctx context.Context, id uuid.UUID) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("database: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM tbl_role_permission WHERE role_id = $1`, id); err != nil {
		return fmt.Errorf("database: failed to clear role permissions (role_id=%s): %w", id, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM tbl_group_role WHERE role_id = $1`, id); err != nil {
		return fmt.Errorf("database: failed to clear role scopes (role_id=%s): %w", id, err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM tbl_role WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("database: failed to delete role (id=%s): %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRoleNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("database: failed to commit role deletion: %w", err)
	}
	return nil
}

// ListRolePermissions returns the permission names attached to a role.
func (db *Database) ListRolePermissions(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `SELECT p.name FROM tbl_permission p
		JOIN tbl_role_permission rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1 ORDER BY p.name`, roleID)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list role permissions (role_id=%s): %w", roleID, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("database: failed to scan permission name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate role permissions: %w", err)
	}
	return names, nil
}

func (db *Database) ListRoleScopes(ctx context.Context, roleID uuid.UUID) ([]GroupRole, error) {
	rows, err := db.Pool.Query(ctx, `SELECT id, role_id, group_id, is_global, created_at FROM tbl_group_role WHERE role_id = $1`, roleID)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list role scopes (role_id=%s): %w", roleID, err)
	}
	defer rows.Close()

	var scopes []GroupRole
	for rows.Next() {
		var scope GroupRole
		if err := rows.Scan(&scope.ID, &scope.RoleID, &scope.GroupID, &scope.IsGlobal, &scope.CreatedAt); err != nil {
			return nil, fmt.Errorf("database: failed to scan role scope: %w", err)
		}
		scopes = append(scopes, scope)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate role scopes: %w", err)
	}
	return scopes, nil
}

func (db *Database) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := db.Pool.Query(ctx, `SELECT id, name, tier FROM tbl_permission ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list permissions: %w", err)
	}
	defer rows.Close()

	var permissions []Permission
	for rows.Next() {
		var permission Permission
		if err := rows.Scan(&permission.ID, &permission.Name, &permission.Tier); err != nil {
			return nil, fmt.Errorf("database: failed to scan permission: %w", err)
		}
		permissions = append(permissions, permission)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate permissions: %w", err)
	}
	return permissions, nil
}

type AssignUserRoleParams struct {
	UserID   uuid.UUID
	RoleID   uuid.UUID
	GroupID  util.Optional[uuid.UUID]
	IsGlobal bool
}

func (db *Database) AssignUserRole(ctx context.Context, params AssignUserRoleParams) (UserRole, error) {
	assignment := UserRole{
		ID:        uuid.New(),
		UserID:    params.UserID,
		RoleID:    params.RoleID,
		GroupID:   params.GroupID,
		IsGlobal:  params.IsGlobal,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_user_role (id, user_id, role_id, group_id, is_global, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		assignment.ID, assignment.UserID, assignment.RoleID, assignment.GroupID, assignment.IsGlobal, assignment.CreatedAt); err != nil {
		return assignment, fmt.Errorf("database: failed to assign role (user_id=%s, role_id=%s): %w", params.UserID, params.RoleID, err)
	}
	return assignment, nil
}

func (db *Database) RemoveUserRole(ctx context.Context, userID, roleID uuid.UUID) error {
	if _, err := db.Pool.Exec(ctx, `DELETE FROM tbl_user_role WHERE user_id = $1 AND role_id = $2`, userID, roleID); err != nil {
		return fmt.Errorf("database: failed to remove role (user_id=%s, role_id=%s): %w", userID, roleID, err)
	}
	return nil
}

func (db *Database) ListUserRoles(ctx context.Context, userID uuid.UUID) ([]UserRole, error) {
	rows, err := db.Pool.Query(ctx, `SELECT id, user_id, role_id, group_id, is_global, created_at FROM tbl_user_role WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list user roles (user_id=%s): %w", userID, err)
	}
	defer rows.Close()

	var assignments []UserRole
	for rows.Next() {
		var assignment UserRole
		if err := rows.Scan(&assignment.ID, &assignment.UserID, &assignment.RoleID, &assignment.GroupID, &assignment.IsGlobal, &assignment.CreatedAt); err != nil {
			return nil, fmt.Errorf("database: failed to scan user role: %w", err)
		}
		assignments = append(assignments, assignment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate user roles: %w", err)
	}
	return assignments, nil
}

// ListUserPermissions traverses user -> user_role -> role_permission ->
// permission and returns the distinct permission names held across every
// assigned role.
func (db *Database) ListUserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `SELECT DISTINCT p.name FROM tbl_permission p
		JOIN tbl_role_permission rp ON rp.permission_id = p.id
		JOIN tbl_user_role ur ON ur.role_id = rp.role_id
		WHERE ur.user_id = $1 ORDER BY p.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list user permissions (user_id=%s): %w", userID, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("database: failed to scan permission name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate user permissions: %w", err)
	}
	return names, nil
}

// CountRoleAssignments backs the referential-integrity guard on role deletion.
func (db *Database) CountRoleAssignments(ctx context.Context, roleID uuid.UUID) (int, error) {
	var count int
	err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM tbl_user_role WHERE role_id = $1`, roleID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("database: failed to count role assignments (role_id=%s): %w", roleID, err)
	}
	return count, nil
}

// CountGroupRoleReferences counts role assignments and role scopes pointing at
// a group; a group with any reference cannot be deleted.
func (db *Database) CountGroupRoleReferences(ctx context.Context, groupID uuid.UUID) (int, error) {
	var count int
	err := db.Pool.QueryRow(ctx, `SELECT
		(SELECT COUNT(*) FROM tbl_user_role WHERE group_id = $1) +
		(SELECT COUNT(*) FROM tbl_group_role WHERE group_id = $1)`, groupID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("database: failed to count group role references (group_id=%s): %w", groupID, err)
	}
	return count, nil
}
