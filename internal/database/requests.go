package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"clubfunds/internal/util"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const requestColumns = `id, reference_code, user_id, group_id, full_name, email_address,
	amount_requested_cad, status, payment_timeframe, budget_line, payment_details,
	receipt_key, submitted_at, created_at, updated_at`

func scanPaymentRequest(row pgx.Row) (PaymentRequest, error) {
	var request PaymentRequest
	err := row.Scan(&request.ID, &request.ReferenceCode, &request.UserID, &request.GroupID,
		&request.FullName, &request.EmailAddress, &request.AmountRequestedCAD, &request.Status,
		&request.PaymentTimeframe, &request.BudgetLine, &request.PaymentDetails,
		&request.ReceiptKey, &request.Timestamp, &request.CreatedAt, &request.UpdatedAt)
	return request, err
}

type CreatePaymentRequestParams struct {
	ReferenceCode      string
	UserID             uuid.UUID
	GroupID            util.Optional[uuid.UUID]
	FullName           string
	EmailAddress       string
	AmountRequestedCAD float64
	PaymentTimeframe   util.Optional[string]
	BudgetLine         util.Optional[string]
	PaymentDetails     json.RawMessage
}

func (db *Database) CreatePaymentRequest(ctx context.Context, params CreatePaymentRequestParams) (PaymentRequest, error) {
	now := time.Now().UTC()
	request := PaymentRequest{
		ID:                 uuid.New(),
		ReferenceCode:      params.ReferenceCode,
		UserID:             params.UserID,
		GroupID:            params.GroupID,
		FullName:           params.FullName,
		EmailAddress:       params.EmailAddress,
		AmountRequestedCAD: params.AmountRequestedCAD,
		Status:             RequestStatusSubmitted,
		PaymentTimeframe:   params.PaymentTimeframe,
		BudgetLine:         params.BudgetLine,
		PaymentDetails:     params.PaymentDetails,
		Timestamp:          now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if request.PaymentDetails == nil {
		request.PaymentDetails = json.RawMessage(`{}`)
	}

	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_payment_request (id, reference_code, user_id, group_id, full_name, email_address, amount_requested_cad, status, payment_timeframe, budget_line, payment_details, receipt_key, submitted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		request.ID, request.ReferenceCode, request.UserID, request.GroupID, request.FullName,
		request.EmailAddress, request.AmountRequestedCAD, request.Status, request.PaymentTimeframe,
		request.BudgetLine, request.PaymentDetails, request.ReceiptKey, request.Timestamp,
		request.CreatedAt, request.UpdatedAt); err != nil {
		return request, fmt.Errorf("database: failed to insert payment request (reference=%s): %w", request.ReferenceCode, err)
	}
	return request, nil
}

// ListPaymentRequestsParams expresses the visibility scope as SQL predicates:
// UserID restricts to own rows, GroupIDs to club rows, neither means all rows.
type ListPaymentRequestsParams struct {
	UserID     util.Optional[uuid.UUID]
	GroupIDs   []uuid.UUID
	Status     util.Optional[RequestStatus]
	BudgetLine util.Optional[string]
	Since      util.Optional[time.Time]
	Until      util.Optional[time.Time]
}

func (db *Database) ListPaymentRequests(ctx context.Context, params ListPaymentRequestsParams) ([]PaymentRequest, error) {
	var query strings.Builder
	query.WriteString(`SELECT ` + requestColumns + ` FROM tbl_payment_request WHERE 1=1`)
	var args []any
	argNum := 1

	if params.UserID.IsSet {
		query.WriteString(fmt.Sprintf(" AND user_id = $%d", argNum))
		args = append(args, params.UserID.Val)
		argNum++
	}
	if len(params.GroupIDs) > 0 {
		query.WriteString(fmt.Sprintf(" AND group_id = ANY($%d)", argNum))
		args = append(args, params.GroupIDs)
		argNum++
	}
	if params.Status.IsSet {
		query.WriteString(fmt.Sprintf(" AND status = $%d", argNum))
		args = append(args, params.Status.Val)
		argNum++
	}
	if params.BudgetLine.IsSet {
		query.WriteString(fmt.Sprintf(" AND budget_line = $%d", argNum))
		args = append(args, params.BudgetLine.Val)
		argNum++
	}
	if params.Since.IsSet {
		query.WriteString(fmt.Sprintf(" AND submitted_at >= $%d", argNum))
		args = append(args, params.Since.Val)
		argNum++
	}
	if params.Until.IsSet {
		query.WriteString(fmt.Sprintf(" AND submitted_at <= $%d", argNum))
		args = append(args, params.Until.Val)
		argNum++
	}
	query.WriteString(" ORDER BY submitted_at DESC")

	rows, err := db.Pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list payment requests: %w", err)
	}
	defer rows.Close()

	var requests []PaymentRequest
	for rows.Next() {
		request, err := scanPaymentRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("database: failed to scan payment request: %w", err)
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate payment requests: %w", err)
	}
	return requests, nil
}

func (db *Database) GetPaymentRequestByID(ctx context.Context, id uuid.UUID) (PaymentRequest, error) {
	request, err := scanPaymentRequest(db.Pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM tbl_payment_request WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return request, ErrRequestNotFound
		}
		return request, fmt.Errorf("database: failed to scan payment request: %w", err)
	}
	return request, nil
}

// UpdatePaymentRequestStatus applies an optimistic-concurrency check: the
// update only lands when updated_at still matches expectedUpdatedAt.
func (db *Database) UpdatePaymentRequestStatus(ctx context.Context, id uuid.UUID, status RequestStatus, expectedUpdatedAt time.Time) error {
	tag, err := db.Pool.Exec(ctx, `UPDATE tbl_payment_request SET status = $1, updated_at = $2 WHERE id = $3 AND updated_at = $4`,
		status, time.Now().UTC(), id, expectedUpdatedAt)
	if err != nil {
		return fmt.Errorf("database: failed to update payment request status (id=%s): %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleUpdate
	}
	return nil
}

func (db *Database) SetPaymentRequestReceipt(ctx context.Context, id uuid.UUID, receiptKey string) error {
	tag, err := db.Pool.Exec(ctx, `UPDATE tbl_payment_request SET receipt_key = $1, updated_at = $2 WHERE id = $3`,
		receiptKey, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("database: failed to set receipt (id=%s): %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}
	return nil
}
