package database_test

import (
	"context"
	"testing"

	"clubfunds/internal/database"
	"clubfunds/internal/util"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRole(t *testing.T) {
	db, mock := newMockDB(t)
	group := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO tbl_role ").
		WithArgs(pgxmock.AnyArg(), "Treasurer", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO tbl_role_permission").
		WithArgs(pgxmock.AnyArg(), "view_club_requests").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO tbl_role_permission").
		WithArgs(pgxmock.AnyArg(), "manage_club_requests").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO tbl_group_role").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), false, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	role, err := db.CreateRole(context.Background(), database.CreateRoleParams{
		Name:            "Treasurer",
		PermissionNames: []string{"view_club_requests", "manage_club_requests"},
		Scopes:          []database.RoleScope{{GroupID: util.Some(group)}},
	})

	require.NoError(t, err)
	assert.Equal(t, "Treasurer", role.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// An unknown permission name must abort the whole transaction; no commit, no
// orphan role row.
func TestCreateRole_UnknownPermissionRollsBack(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO tbl_role ").
		WithArgs(pgxmock.AnyArg(), "Treasurer", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO tbl_role_permission").
		WithArgs(pgxmock.AnyArg(), "launch_rockets").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectRollback()

	_, err := db.CreateRole(context.Background(), database.CreateRoleParams{
		Name:            "Treasurer",
		PermissionNames: []string{"launch_rockets"},
	})

	assert.ErrorIs(t, err, database.ErrPermissionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRole_ReplacesPermissions(t *testing.T) {
	db, mock := newMockDB(t)
	roleID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM tbl_role_permission").
		WithArgs(roleID).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec("INSERT INTO tbl_role_permission").
		WithArgs(roleID, "create_requests").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := db.UpdateRole(context.Background(), roleID, database.UpdateRoleParams{
		PermissionNames: util.Some([]string{"create_requests"}),
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRoleByID(t *testing.T) {
	db, mock := newMockDB(t)
	roleID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM tbl_role_permission").
		WithArgs(roleID).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec("DELETE FROM tbl_group_role").
		WithArgs(roleID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM tbl_role ").
		WithArgs(roleID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	assert.NoError(t, db.DeleteRoleByID(context.Background(), roleID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRoleByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	roleID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM tbl_role_permission").
		WithArgs(roleID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("DELETE FROM tbl_group_role").
		WithArgs(roleID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("DELETE FROM tbl_role ").
		WithArgs(roleID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	err := db.DeleteRoleByID(context.Background(), roleID)

	assert.ErrorIs(t, err, database.ErrRoleNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUserPermissions(t *testing.T) {
	db, mock := newMockDB(t)
	userID := uuid.New()

	mock.ExpectQuery("SELECT DISTINCT p.name FROM tbl_permission").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"name"}).
			AddRow("create_requests").
			AddRow("view_club_requests"))

	names, err := db.ListUserPermissions(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, []string{"create_requests", "view_club_requests"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountRoleAssignments(t *testing.T) {
	db, mock := newMockDB(t)
	roleID := uuid.New()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(roleID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	count, err := db.CountRoleAssignments(context.Background(), roleID)

	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
