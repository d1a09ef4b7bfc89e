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

const userColumns = `id, name, email, phone, password_hash, group_id, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Phone, &user.PasswordHash,
		&user.GroupID, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

type CreateUserParams struct {
	Name         string
	Email        string
	Phone        util.Optional[string]
	PasswordHash string
	GroupID      util.Optional[uuid.UUID]
}

func (db *Database) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	user := User{
		ID:           uuid.New(),
		Name:         params.Name,
		Email:        params.Email,
		Phone:        params.Phone,
		PasswordHash: params.PasswordHash,
		GroupID:      params.GroupID,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_user (id, name, email, phone, password_hash, group_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Name, user.Email, user.Phone, user.PasswordHash, user.GroupID, user.CreatedAt, user.UpdatedAt); err != nil {
		return user, fmt.Errorf("database: failed to insert user (email=%s): %w", user.Email, err)
	}
	return user, nil
}

type GetUserParams struct {
	ID    util.Optional[uuid.UUID]
	Email util.Optional[string]
}

func (db *Database) GetUser(ctx context.Context, params GetUserParams) (User, error) {
	var query strings.Builder
	query.WriteString(`SELECT ` + userColumns + ` FROM tbl_user WHERE 1=1`)
	var args []any
	argNum := 1

	if params.ID.IsSet {
		query.WriteString(fmt.Sprintf(" AND id = $%d", argNum))
		args = append(args, params.ID.Val)
		argNum++
	}
	if params.Email.IsSet {
		query.WriteString(fmt.Sprintf(" AND email = $%d", argNum))
		args = append(args, params.Email.Val)
		argNum++
	}

	user, err := scanUser(db.Pool.QueryRow(ctx, query.String(), args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user, ErrUserNotFound
		}
		return user, fmt.Errorf("database: failed to scan user: %w", err)
	}
	return user, nil
}

func (db *Database) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return db.GetUser(ctx, GetUserParams{ID: util.Some(id)})
}

func (db *Database) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return db.GetUser(ctx, GetUserParams{Email: util.Some(email)})
}

type ListUsersParams struct {
	GroupIDs []uuid.UUID // empty means no group filter
	Limit    util.Optional[int]
	Offset   util.Optional[int]
}

func (db *Database) ListUsers(ctx context.Context, params ListUsersParams) ([]User, error) {
	var query strings.Builder
	query.WriteString(`SELECT ` + userColumns + ` FROM tbl_user WHERE 1=1`)
	var args []any
	argNum := 1

	if len(params.GroupIDs) > 0 {
		query.WriteString(fmt.Sprintf(" AND group_id = ANY($%d)", argNum))
		args = append(args, params.GroupIDs)
		argNum++
	}
	query.WriteString(" ORDER BY created_at DESC")
	if params.Limit.IsSet {
		query.WriteString(fmt.Sprintf(" LIMIT $%d", argNum))
		args = append(args, params.Limit.Val)
		argNum++
	}
	if params.Offset.IsSet {
		query.WriteString(fmt.Sprintf(" OFFSET $%d", argNum))
		args = append(args, params.Offset.Val)
		argNum++
	}

	rows, err := db.Pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("database: failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate users: %w", err)
	}
	return users, nil
}

type UpdateUserParams struct {
	Name    util.Optional[string]
	Phone   util.Optional[string]
	GroupID util.Optional[util.Optional[uuid.UUID]]
}

func (db *Database) UpdateUserByID(ctx context.Context, id uuid.UUID, params UpdateUserParams) error {
	var query strings.Builder
	query.WriteString(`UPDATE tbl_user SET `)
	var args []any
	argNum := 1

	if params.Name.IsSet {
		query.WriteString(fmt.Sprintf("name = $%d, ", argNum))
		args = append(args, params.Name.Val)
		argNum++
	}
	if params.Phone.IsSet {
		query.WriteString(fmt.Sprintf("phone = $%d, ", argNum))
		args = append(args, params.Phone.Val)
		argNum++
	}
	if params.GroupID.IsSet {
		query.WriteString(fmt.Sprintf("group_id = $%d, ", argNum))
		args = append(args, params.GroupID.Val)
		argNum++
	}

	query.WriteString(fmt.Sprintf("updated_at = $%d WHERE id = $%d", argNum, argNum+1))
	args = append(args, time.Now().UTC(), id)

	tag, err := db.Pool.Exec(ctx, query.String(), args...)
	if err != nil {
		return fmt.Errorf("database: failed to update user (id=%s): %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CountUsersInGroup backs the referential-integrity guard on group deletion.
func (db *Database) CountUsersInGroup(ctx context.Context, groupID uuid.UUID) (int, error) {
	var count int
	err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM tbl_user WHERE group_id = $1`, groupID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("database: failed to count users in group (group_id=%s): %w", groupID, err)
	}
	return count, nil
}
