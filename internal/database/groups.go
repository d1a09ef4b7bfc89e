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

type CreateGroupParams struct {
	Name string
}

func (db *Database) CreateGroup(ctx context.Context, params CreateGroupParams) (Group, error) {
	group := Group{
		ID:        uuid.New(),
		Name:      params.Name,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_group (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		group.ID, group.Name, group.CreatedAt, group.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return group, ErrDuplicateName
		}
		return group, fmt.Errorf("database: failed to insert group (name=%s): %w", group.Name, err)
	}
	return group, nil
}

type GetGroupParams struct {
	ID   util.Optional[uuid.UUID]
	Name util.Optional[string]
}

func (db *Database) GetGroup(ctx context.Context, params GetGroupParams) (Group, error) {
	var group Group

	var query strings.Builder
	query.WriteString(`SELECT id, name, created_at, updated_at FROM tbl_group WHERE 1=1`)
	var args []any
	argNum := 1

	if params.ID.IsSet {
		query.WriteString(fmt.Sprintf(" AND id = $%d", argNum))
		args = append(args, params.ID.Val)
		argNum++
	}
	if params.Name.IsSet {
		query.WriteString(fmt.Sprintf(" AND name = $%d", argNum))
		args = append(args, params.Name.Val)
		argNum++
	}

	err := db.Pool.QueryRow(ctx, query.String(), args...).Scan(&group.ID, &group.Name, &group.CreatedAt, &group.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return group, ErrGroupNotFound
		}
		return group, fmt.Errorf("database: failed to scan group: %w", err)
	}
	return group, nil
}

func (db *Database) GetGroupByID(ctx context.Context, id uuid.UUID) (Group, error) {
	return db.GetGroup(ctx, GetGroupParams{ID: util.Some(id)})
}

func (db *Database) ListGroups(ctx context.Context) ([]Group, error) {
	rows, err := db.Pool.Query(ctx, `SELECT id, name, created_at, updated_at FROM tbl_group ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		var group Group
		if err := rows.Scan(&group.ID, &group.Name, &group.CreatedAt, &group.UpdatedAt); err != nil {
			return nil, fmt.Errorf("database: failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate groups: %w", err)
	}
	return groups, nil
}

type UpdateGroupParams struct {
	Name util.Optional[string]
}

func (db *Database) UpdateGroupByID(ctx context.Context, id uuid.UUID, params UpdateGroupParams) error {
	var query strings.Builder
	query.WriteString(`UPDATE tbl_group SET `)
	var args []any
	argNum := 1

	if params.Name.IsSet {
		query.WriteString(fmt.Sprintf("name = $%d, ", argNum))
		args = append(args, params.Name.Val)
		argNum++
	}

	query.WriteString(fmt.Sprintf("updated_at = $%d WHERE id = $%d", argNum, argNum+1))
	args = append(args, time.Now().UTC(), id)

	tag, err := db.Pool.Exec(ctx, query.String(), args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("database: failed to update group (id=%s): %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGroupNotFound
	}
	return nil
}

func (db *Database) DeleteGroupByID(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM tbl_group WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("database: failed to delete group (id=%s): %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGroupNotFound
	}
	return nil
}
