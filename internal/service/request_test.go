package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"clubfunds/internal/authz"
	"clubfunds/internal/config"
	"clubfunds/internal/database"
	"clubfunds/internal/service"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Club-level visibility with no administered group must see nothing at all;
// the query layer is never reached.
func TestRequestList_ClubScopeWithoutGroupsSeesNothing(t *testing.T) {
	svc, mock := newRequestService(t, config.PolicyConfig{}, nil)
	userID := uuid.New()

	expectResolve(mock, userID, nil, authz.PermViewClubRequests)

	requests, err := svc.List(context.Background(), userID, service.ListRequestsFilter{})

	require.NoError(t, err)
	assert.Empty(t, requests)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestList_OwnScopeFiltersByUser(t *testing.T) {
	svc, mock := newRequestService(t, config.PolicyConfig{}, nil)
	userID := uuid.New()

	expectResolve(mock, userID, nil, authz.PermCreateRequests)
	mock.ExpectQuery(`SELECT (.+) FROM tbl_payment_request WHERE 1=1 AND user_id = \$1`).
		WithArgs(userID).
		WillReturnRows(requestRow(uuid.New(), userID, nil, database.RequestStatusSubmitted, time.Now().UTC()))

	requests, err := svc.List(context.Background(), userID, service.ListRequestsFilter{})

	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, userID, requests[0].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestGet_OutsideScopeIsDenied(t *testing.T) {
	svc, mock := newRequestService(t, config.PolicyConfig{}, nil)
	userID := uuid.New()
	requestID := uuid.New()
	otherGroup := uuid.New()

	expectResolve(mock, userID, nil, authz.PermViewClubRequests)
	mock.ExpectQuery("SELECT (.+) FROM tbl_payment_request WHERE id").
		WithArgs(requestID).
		WillReturnRows(requestRow(requestID, uuid.New(), &otherGroup, database.RequestStatusSubmitted, time.Now().UTC()))

	_, err := svc.Get(context.Background(), userID, requestID)

	assert.ErrorIs(t, err, service.ErrAccessDenied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_ReimbursedLocked(t *testing.T) {
	svc, mock := newRequestService(t, config.PolicyConfig{LockReimbursed: true}, nil)
	userID := uuid.New()
	requestID := uuid.New()
	token := time.Now().UTC()

	expectResolve(mock, userID, nil, authz.PermManageAllRequests)
	mock.ExpectQuery("SELECT (.+) FROM tbl_payment_request WHERE id").
		WithArgs(requestID).
		WillReturnRows(requestRow(requestID, uuid.New(), nil, database.RequestStatusReimbursed, token))

	_, err := svc.UpdateStatus(context.Background(), userID, requestID, database.RequestStatusApproved, token)

	assert.ErrorIs(t, err, service.ErrReimbursedLocked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_StaleToken(t *testing.T) {
	svc, mock := newRequestService(t, config.PolicyConfig{}, nil)
	userID := uuid.New()
	requestID := uuid.New()
	token := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)

	expectResolve(mock, userID, nil, authz.PermManageAllRequests)
	mock.ExpectQuery("SELECT (.+) FROM tbl_payment_request WHERE id").
		WithArgs(requestID).
		WillReturnRows(requestRow(requestID, uuid.New(), nil, database.RequestStatusSubmitted, time.Now().UTC()))
	mock.ExpectExec("UPDATE tbl_payment_request SET status").
		WithArgs(database.RequestStatusApproved, pgxmock.AnyArg(), requestID, token).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	_, err := svc.UpdateStatus(context.Background(), userID, requestID, database.RequestStatusApproved, token)

	assert.ErrorIs(t, err, service.ErrStaleUpdate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_UnknownStatusRejected(t *testing.T) {
	svc, mock := newRequestService(t, config.PolicyConfig{}, nil)

	_, err := svc.UpdateStatus(context.Background(), uuid.New(), uuid.New(), "shredded", time.Now())

	var verr service.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "status", verr.Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A failed notification is logged and swallowed; the committed status change
// stands.
func TestUpdateStatus_NotificationFailureDoesNotRevert(t *testing.T) {
	svc, mock := newRequestService(t, config.PolicyConfig{}, failingEmailSender{})
	userID := uuid.New()
	ownerID := uuid.New()
	requestID := uuid.New()
	token := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	expectResolve(mock, userID, nil, authz.PermManageAllRequests)
	mock.ExpectQuery("SELECT (.+) FROM tbl_payment_request WHERE id").
		WithArgs(requestID).
		WillReturnRows(requestRow(requestID, ownerID, nil, database.RequestStatusSubmitted, token))
	mock.ExpectExec("UPDATE tbl_payment_request SET status").
		WithArgs(database.RequestStatusApproved, pgxmock.AnyArg(), requestID, token).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("SELECT (.+) FROM tbl_payment_request WHERE id").
		WithArgs(requestID).
		WillReturnRows(requestRow(requestID, ownerID, nil, database.RequestStatusApproved, now))
	mock.ExpectQuery("SELECT (.+) FROM tbl_user WHERE 1=1 AND id").
		WithArgs(ownerID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "email", "phone", "password_hash", "group_id", "created_at", "updated_at",
		}).AddRow(ownerID.String(), "Ada Lovelace", "ada@club.ca", nil, "hash", nil, now, now))

	updated, err := svc.UpdateStatus(context.Background(), userID, requestID, database.RequestStatusApproved, token)

	require.NoError(t, err)
	assert.Equal(t, database.RequestStatusApproved, updated.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachReceipt_OwnerUploads(t *testing.T) {
	svc, mock := newRequestService(t, config.PolicyConfig{}, nil)
	userID := uuid.New()
	requestID := uuid.New()

	expectResolve(mock, userID, nil, authz.PermCreateRequests)
	mock.ExpectQuery("SELECT (.+) FROM tbl_payment_request WHERE id").
		WithArgs(requestID).
		WillReturnRows(requestRow(requestID, userID, nil, database.RequestStatusSubmitted, time.Now().UTC()))
	mock.ExpectExec("UPDATE tbl_payment_request SET receipt_key").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), requestID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	request, err := svc.AttachReceipt(context.Background(), userID, requestID,
		"receipt.pdf", strings.NewReader("%PDF-1.4"), "application/pdf")

	require.NoError(t, err)
	assert.True(t, request.ReceiptKey.IsSet)
	assert.Contains(t, request.ReceiptKey.Val, "receipt.pdf")
	assert.NoError(t, mock.ExpectationsWereMet())
}
