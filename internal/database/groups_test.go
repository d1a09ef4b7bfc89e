package database_test

import (
	"context"
	"testing"

	"clubfunds/internal/database"
	"clubfunds/internal/util"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (database.Database, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return database.New(mock), mock
}

func TestCreateGroup(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec("INSERT INTO tbl_group").
		WithArgs(pgxmock.AnyArg(), "Chess Club", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	group, err := db.CreateGroup(context.Background(), database.CreateGroupParams{Name: "Chess Club"})

	require.NoError(t, err)
	assert.Equal(t, "Chess Club", group.Name)
	assert.NotEqual(t, uuid.Nil, group.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateGroup_DuplicateName(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec("INSERT INTO tbl_group").
		WithArgs(pgxmock.AnyArg(), "Chess Club", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := db.CreateGroup(context.Background(), database.CreateGroupParams{Name: "Chess Club"})

	assert.ErrorIs(t, err, database.ErrDuplicateName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteGroupByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	groupID := uuid.New()

	mock.ExpectExec("DELETE FROM tbl_group").
		WithArgs(groupID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := db.DeleteGroupByID(context.Background(), groupID)

	assert.ErrorIs(t, err, database.ErrGroupNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateGroupByID_RenameMissingGroup(t *testing.T) {
	db, mock := newMockDB(t)
	groupID := uuid.New()

	mock.ExpectExec("UPDATE tbl_group SET").
		WithArgs("Renamed", pgxmock.AnyArg(), groupID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := db.UpdateGroupByID(context.Background(), groupID, database.UpdateGroupParams{Name: util.Some("Renamed")})

	assert.ErrorIs(t, err, database.ErrGroupNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountUsersInGroup(t *testing.T) {
	db, mock := newMockDB(t)
	groupID := uuid.New()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(groupID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	count, err := db.CountUsersInGroup(context.Background(), groupID)

	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
