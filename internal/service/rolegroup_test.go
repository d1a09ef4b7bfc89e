package service_test

import (
	"context"
	"testing"

	"clubfunds/internal/authz"
	"clubfunds/internal/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertGroup_RequiresOrgAuthority(t *testing.T) {
	svc, mock := newRoleGroupService(t)
	userID := uuid.New()

	// Club-level user management is not enough to reshape the org structure.
	expectResolve(mock, userID, nil, authz.PermManageClubUsers)

	_, err := svc.UpsertGroup(context.Background(), userID, service.UpsertGroupParams{Name: "Chess Club"})

	assert.ErrorIs(t, err, service.ErrAccessDenied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertGroup_DuplicateName(t *testing.T) {
	svc, mock := newRoleGroupService(t)
	userID := uuid.New()

	expectResolve(mock, userID, nil, authz.PermManageAllUsers)
	mock.ExpectExec("INSERT INTO tbl_group").
		WithArgs(pgxmock.AnyArg(), "Chess Club", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := svc.UpsertGroup(context.Background(), userID, service.UpsertGroupParams{Name: "Chess Club"})

	var conflict service.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "group", conflict.Resource)
	assert.Equal(t, "Chess Club", conflict.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertGroup_EmptyNameRejected(t *testing.T) {
	svc, mock := newRoleGroupService(t)
	userID := uuid.New()

	expectResolve(mock, userID, nil, authz.PermManageAllUsers)

	_, err := svc.UpsertGroup(context.Background(), userID, service.UpsertGroupParams{Name: "   "})

	var verr service.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteGroup_BlockedByMembers(t *testing.T) {
	svc, mock := newRoleGroupService(t)
	userID := uuid.New()
	groupID := uuid.New()

	expectResolve(mock, userID, nil, authz.PermManageAllUsers)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(groupID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	err := svc.DeleteGroup(context.Background(), userID, groupID)

	var ref service.ReferentialIntegrityError
	require.ErrorAs(t, err, &ref)
	assert.Equal(t, "group", ref.Resource)
	assert.Equal(t, "user", ref.Dependent)
	assert.Equal(t, 3, ref.Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteGroup_BlockedByRoleReferences(t *testing.T) {
	svc, mock := newRoleGroupService(t)
	userID := uuid.New()
	groupID := uuid.New()

	expectResolve(mock, userID, nil, authz.PermManageAllUsers)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(groupID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT").
		WithArgs(groupID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	err := svc.DeleteGroup(context.Background(), userID, groupID)

	var ref service.ReferentialIntegrityError
	require.ErrorAs(t, err, &ref)
	assert.Equal(t, "role assignment", ref.Dependent)
	assert.Equal(t, 2, ref.Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A club role manager cannot mint a role carrying permissions above their own
// authority.
func TestUpsertRole_EscalationDenied(t *testing.T) {
	svc, mock := newRoleGroupService(t)
	userID := uuid.New()
	groupID := uuid.New()

	expectResolve(mock, userID, &groupID, authz.PermManageClubRoles)

	_, err := svc.UpsertRole(context.Background(), userID, service.UpsertRoleParams{
		Name:        "Shadow Admin",
		Permissions: []string{authz.PermManageAllUsers},
	})

	assert.ErrorIs(t, err, service.ErrAccessDenied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Editing a role also requires authority over what it already grants, or a
// club manager could rewrite an organization-wide role.
func TestUpsertRole_CannotEditWiderRole(t *testing.T) {
	svc, mock := newRoleGroupService(t)
	userID := uuid.New()
	groupID := uuid.New()
	roleID := uuid.New()

	expectResolve(mock, userID, &groupID, authz.PermManageClubRoles)
	mock.ExpectQuery("SELECT p.name FROM tbl_permission").
		WithArgs(roleID).
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow(authz.PermManageAllUsers))

	_, err := svc.UpsertRole(context.Background(), userID, service.UpsertRoleParams{
		ID:          &roleID,
		Name:        "Renamed",
		Permissions: []string{authz.PermManageClubRoles},
	})

	assert.ErrorIs(t, err, service.ErrAccessDenied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRole_UnknownPermissionRejected(t *testing.T) {
	svc, mock := newRoleGroupService(t)
	userID := uuid.New()

	expectResolve(mock, userID, nil, authz.PermManageAllRoles)

	_, err := svc.UpsertRole(context.Background(), userID, service.UpsertRoleParams{
		Name:        "Treasurer",
		Permissions: []string{"launch_rockets"},
	})

	var verr service.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "permissions", verr.Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRole_BlockedByAssignments(t *testing.T) {
	svc, mock := newRoleGroupService(t)
	userID := uuid.New()
	roleID := uuid.New()

	expectResolve(mock, userID, nil, authz.PermManageAllRoles)
	mock.ExpectQuery("SELECT p.name FROM tbl_permission").
		WithArgs(roleID).
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow(authz.PermCreateRequests))
	mock.ExpectQuery("SELECT (.+) FROM tbl_group_role WHERE role_id").
		WithArgs(roleID).
		WillReturnRows(roleScopeRows())
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(roleID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(4))

	err := svc.DeleteRole(context.Background(), userID, roleID)

	var ref service.ReferentialIntegrityError
	require.ErrorAs(t, err, &ref)
	assert.Equal(t, "role", ref.Resource)
	assert.Equal(t, 4, ref.Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Club role managers may only assign within their own groups and never
// globally.
func TestAssignRole_GlobalDeniedForClubManager(t *testing.T) {
	svc, mock := newRoleGroupService(t)
	userID := uuid.New()
	groupID := uuid.New()
	roleID := uuid.New()

	expectResolve(mock, userID, &groupID, authz.PermManageClubRoles)
	mock.ExpectQuery("SELECT p.name FROM tbl_permission").
		WithArgs(roleID).
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow(authz.PermCreateRequests))

	err := svc.AssignRole(context.Background(), userID, service.AssignRoleParams{
		UserID:   uuid.New(),
		RoleID:   roleID,
		IsGlobal: true,
	})

	assert.ErrorIs(t, err, service.ErrAccessDenied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A club manager for group A must not be able to rewrite a role that is
// scoped only to group B, even when its permission set is within reach.
func TestUpsertRole_CannotEditRoleScopedToOtherGroup(t *testing.T) {
	svc, mock := newRoleGroupService(t)
	userID := uuid.New()
	ownGroup := uuid.New()
	otherGroup := uuid.New()
	roleID := uuid.New()

	expectResolve(mock, userID, &ownGroup, authz.PermManageClubRoles, authz.PermCreateRequests)
	mock.ExpectQuery("SELECT p.name FROM tbl_permission").
		WithArgs(roleID).
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow(authz.PermCreateRequests))
	mock.ExpectQuery("SELECT (.+) FROM tbl_group_role WHERE role_id").
		WithArgs(roleID).
		WillReturnRows(roleScopeRows(otherGroup))

	_, err := svc.UpsertRole(context.Background(), userID, service.UpsertRoleParams{
		ID:          &roleID,
		Name:        "Renamed",
		Permissions: []string{authz.PermCreateRequests},
	})

	assert.ErrorIs(t, err, service.ErrAccessDenied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRole_ScopedToOtherGroupDenied(t *testing.T) {
	svc, mock := newRoleGroupService(t)
	userID := uuid.New()
	ownGroup := uuid.New()
	otherGroup := uuid.New()
	roleID := uuid.New()

	expectResolve(mock, userID, &ownGroup, authz.PermManageClubRoles, authz.PermCreateRequests)
	mock.ExpectQuery("SELECT p.name FROM tbl_permission").
		WithArgs(roleID).
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow(authz.PermCreateRequests))
	mock.ExpectQuery("SELECT (.+) FROM tbl_group_role WHERE role_id").
		WithArgs(roleID).
		WillReturnRows(roleScopeRows(otherGroup))

	err := svc.DeleteRole(context.Background(), userID, roleID)

	assert.ErrorIs(t, err, service.ErrAccessDenied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Removing a role from a member of another club takes the same authority as
// assigning it there.
func TestRemoveRole_CrossGroupTargetDenied(t *testing.T) {
	svc, mock := newRoleGroupService(t)
	userID := uuid.New()
	ownGroup := uuid.New()
	otherGroup := uuid.New()
	roleID := uuid.New()
	targetID := uuid.New()

	expectResolve(mock, userID, &ownGroup, authz.PermManageClubRoles, authz.PermCreateRequests)
	mock.ExpectQuery("SELECT p.name FROM tbl_permission").
		WithArgs(roleID).
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow(authz.PermCreateRequests))
	mock.ExpectQuery("SELECT (.+) FROM tbl_user_role WHERE user_id").
		WithArgs(targetID).
		WillReturnRows(userRoleRows(targetID, roleID, &otherGroup, false))

	err := svc.RemoveRole(context.Background(), userID, targetID, roleID)

	assert.ErrorIs(t, err, service.ErrAccessDenied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveRole_WithinOwnGroup(t *testing.T) {
	svc, mock := newRoleGroupService(t)
	userID := uuid.New()
	ownGroup := uuid.New()
	roleID := uuid.New()
	targetID := uuid.New()

	expectResolve(mock, userID, &ownGroup, authz.PermManageClubRoles, authz.PermCreateRequests)
	mock.ExpectQuery("SELECT p.name FROM tbl_permission").
		WithArgs(roleID).
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow(authz.PermCreateRequests))
	mock.ExpectQuery("SELECT (.+) FROM tbl_user_role WHERE user_id").
		WithArgs(targetID).
		WillReturnRows(userRoleRows(targetID, roleID, &ownGroup, false))
	mock.ExpectExec("DELETE FROM tbl_user_role").
		WithArgs(targetID, roleID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := svc.RemoveRole(context.Background(), userID, targetID, roleID)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignRole_WithinOwnGroup(t *testing.T) {
	svc, mock := newRoleGroupService(t)
	userID := uuid.New()
	groupID := uuid.New()
	roleID := uuid.New()
	targetID := uuid.New()

	expectResolve(mock, userID, &groupID, authz.PermManageClubRoles)
	mock.ExpectQuery("SELECT p.name FROM tbl_permission").
		WithArgs(roleID).
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow(authz.PermCreateRequests))
	mock.ExpectExec("INSERT INTO tbl_user_role").
		WithArgs(pgxmock.AnyArg(), targetID, roleID, pgxmock.AnyArg(), false, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := svc.AssignRole(context.Background(), userID, service.AssignRoleParams{
		UserID:  targetID,
		RoleID:  roleID,
		GroupID: &groupID,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
