package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clubfunds/internal/util"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const budgetFormColumns = `id, club_name, group_id, user_id, requested_funding_cad, status, created_at, updated_at`

func scanBudgetForm(row pgx.Row) (BudgetForm, error) {
	var form BudgetForm
	err := row.Scan(&form.ID, &form.ClubName, &form.GroupID, &form.UserID,
		&form.RequestedFundingCAD, &form.Status, &form.CreatedAt, &form.UpdatedAt)
	return form, err
}

type CreateBudgetFormParams struct {
	ClubName            string
	GroupID             util.Optional[uuid.UUID]
	UserID              uuid.UUID
	RequestedFundingCAD float64
}

func (db *Database) CreateBudgetForm(ctx context.Context, params CreateBudgetFormParams) (BudgetForm, error) {
	now := time.Now().UTC()
	form := BudgetForm{
		ID:                  uuid.New(),
		ClubName:            params.ClubName,
		GroupID:             params.GroupID,
		UserID:              params.UserID,
		RequestedFundingCAD: params.RequestedFundingCAD,
		Status:              RequestStatusSubmitted,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_budget_form (id, club_name, group_id, user_id, requested_funding_cad, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		form.ID, form.ClubName, form.GroupID, form.UserID, form.RequestedFundingCAD, form.Status, form.CreatedAt, form.UpdatedAt); err != nil {
		return form, fmt.Errorf("database: failed to insert budget form (club=%s): %w", form.ClubName, err)
	}
	return form, nil
}

type ListBudgetFormsParams struct {
	UserID   util.Optional[uuid.UUID]
	GroupIDs []uuid.UUID
	Status   util.Optional[RequestStatus]
}

func (db *Database) ListBudgetForms(ctx context.Context, params ListBudgetFormsParams) ([]BudgetForm, error) {
	var query strings.Builder
	query.WriteString(`SELECT ` + budgetFormColumns + ` FROM tbl_budget_form WHERE 1=1`)
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
	query.WriteString(" ORDER BY created_at DESC")

	rows, err := db.Pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list budget forms: %w", err)
	}
	defer rows.Close()

	var forms []BudgetForm
	for rows.Next() {
		form, err := scanBudgetForm(rows)
		if err != nil {
			return nil, fmt.Errorf("database: failed to scan budget form: %w", err)
		}
		forms = append(forms, form)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate budget forms: %w", err)
	}
	return forms, nil
}

func (db *Database) GetBudgetFormByID(ctx context.Context, id uuid.UUID) (BudgetForm, error) {
	form, err := scanBudgetForm(db.Pool.QueryRow(ctx, `SELECT `+budgetFormColumns+` FROM tbl_budget_form WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return form, ErrBudgetFormNotFound
		}
		return form, fmt.Errorf("database: failed to scan budget form: %w", err)
	}
	return form, nil
}

func (db *Database) UpdateBudgetFormStatus(ctx context.Context, id uuid.UUID, status RequestStatus, expectedUpdatedAt time.Time) error {
	tag, err := db.Pool.Exec(ctx, `UPDATE tbl_budget_form SET status = $1, updated_at = $2 WHERE id = $3 AND updated_at = $4`,
		status, time.Now().UTC(), id, expectedUpdatedAt)
	if err != nil {
		return fmt.Errorf("database: failed to update budget form status (id=%s): %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleUpdate
	}
	return nil
}

type ListBudgetRowsParams struct {
	GroupIDs []uuid.UUID
	RowType  util.Optional[BudgetRowType]
}

func (db *Database) ListBudgetRows(ctx context.Context, params ListBudgetRowsParams) ([]BudgetFormRow, error) {
	var query strings.Builder
	query.WriteString(`SELECT id, form_id, group_id, row_type, label, allocated_cad, col_values, created_at FROM tbl_budget_form_row WHERE 1=1`)
	var args []any
	argNum := 1

	if len(params.GroupIDs) > 0 {
		query.WriteString(fmt.Sprintf(" AND group_id = ANY($%d)", argNum))
		args = append(args, params.GroupIDs)
		argNum++
	}
	if params.RowType.IsSet {
		query.WriteString(fmt.Sprintf(" AND row_type = $%d", argNum))
		args = append(args, params.RowType.Val)
		argNum++
	}
	query.WriteString(" ORDER BY label")

	rows, err := db.Pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list budget rows: %w", err)
	}
	defer rows.Close()

	var result []BudgetFormRow
	for rows.Next() {
		var row BudgetFormRow
		if err := rows.Scan(&row.ID, &row.FormID, &row.GroupID, &row.RowType, &row.Label,
			&row.AllocatedCAD, &row.ColValues, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("database: failed to scan budget row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate budget rows: %w", err)
	}
	return result, nil
}
