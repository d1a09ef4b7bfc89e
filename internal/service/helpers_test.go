package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"clubfunds/internal/authz"
	"clubfunds/internal/config"
	"clubfunds/internal/database"
	"clubfunds/internal/notifications"
	"clubfunds/internal/service"
	"clubfunds/internal/storage"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMockDB(t *testing.T) (database.Database, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return database.New(mock), mock
}

func newResolver(db *database.Database) *authz.Resolver {
	logger := discardLogger()
	return authz.NewResolver(db, authz.NewCache(nil, 0, logger), logger)
}

// expectResolve queues the three queries the access resolver runs on a cache
// miss: the user row, the role assignments and the merged permission names.
func expectResolve(mock pgxmock.PgxPoolIface, userID uuid.UUID, groupID *uuid.UUID, permissions ...string) {
	now := time.Now().UTC()

	var group any
	if groupID != nil {
		group = groupID.String()
	}
	mock.ExpectQuery("SELECT (.+) FROM tbl_user WHERE 1=1 AND id").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "email", "phone", "password_hash", "group_id", "created_at", "updated_at",
		}).AddRow(userID.String(), "Test User", "test@club.ca", nil, "hash", group, now, now))

	mock.ExpectQuery("SELECT (.+) FROM tbl_user_role WHERE user_id").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "role_id", "group_id", "is_global", "created_at"}))

	names := pgxmock.NewRows([]string{"name"})
	for _, permission := range permissions {
		names.AddRow(permission)
	}
	mock.ExpectQuery("SELECT DISTINCT p.name FROM tbl_permission").
		WithArgs(userID).
		WillReturnRows(names)
}

func requestRow(id, ownerID uuid.UUID, groupID *uuid.UUID, status database.RequestStatus, updatedAt time.Time) *pgxmock.Rows {
	var group any
	if groupID != nil {
		group = groupID.String()
	}
	return pgxmock.NewRows([]string{
		"id", "reference_code", "user_id", "group_id", "full_name", "email_address",
		"amount_requested_cad", "status", "payment_timeframe", "budget_line", "payment_details",
		"receipt_key", "submitted_at", "created_at", "updated_at",
	}).AddRow(
		id.String(), "REQ-20230101-abcdef12", ownerID.String(), group, "Ada Lovelace", "ada@club.ca",
		42.5, status, nil, nil, []byte(`{}`),
		nil, updatedAt, updatedAt, updatedAt,
	)
}

// roleScopeRows builds a tbl_group_role result set; each argument adds one
// group-scoped row.
func roleScopeRows(groupIDs ...uuid.UUID) *pgxmock.Rows {
	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "role_id", "group_id", "is_global", "created_at"})
	for _, groupID := range groupIDs {
		rows.AddRow(uuid.New().String(), uuid.New().String(), groupID.String(), false, now)
	}
	return rows
}

// userRoleRows builds a tbl_user_role result set with a single assignment.
func userRoleRows(userID, roleID uuid.UUID, groupID *uuid.UUID, isGlobal bool) *pgxmock.Rows {
	var group any
	if groupID != nil {
		group = groupID.String()
	}
	return pgxmock.NewRows([]string{"id", "user_id", "role_id", "group_id", "is_global", "created_at"}).
		AddRow(uuid.New().String(), userID.String(), roleID.String(), group, isGlobal, time.Now().UTC())
}

func newUser(id uuid.UUID, email string) database.User {
	return database.User{ID: id, Name: "Ada Lovelace", Email: email}
}

type failingEmailSender struct{}

func (failingEmailSender) SendEmail(ctx context.Context, to string, subject string, body string) error {
	return errors.New("smtp down")
}

func newRequestService(t *testing.T, policy config.PolicyConfig, email notifications.EmailSender) (*service.RequestService, pgxmock.PgxPoolIface) {
	t.Helper()
	db, mock := newMockDB(t)
	logger := discardLogger()

	if email == nil {
		email = notifications.NewLogEmailSender(logger)
	}
	notifier := notifications.NewNotifier(email, notifications.NewLogSMSSender(logger),
		config.NotificationsConfig{EmailFrom: "treasurer@clubfunds.local"}, logger)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	svc := service.NewRequestService(&db, newResolver(&db), notifier, store, policy, logger)
	return svc, mock
}

func newRoleGroupService(t *testing.T) (*service.RoleGroupService, pgxmock.PgxPoolIface) {
	t.Helper()
	db, mock := newMockDB(t)
	return service.NewRoleGroupService(&db, newResolver(&db), discardLogger()), mock
}
