package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"clubfunds/internal/util"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the subset of pgxpool.Pool the database layer relies on. Declared
// as an interface so tests can substitute a pgxmock pool.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

type Database struct {
	Pool Pool
}

func New(pool Pool) Database {
	return Database{Pool: pool}
}

func Connect(ctx context.Context, connString string) (Database, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return Database{}, fmt.Errorf("database: unable to parse configuration: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return Database{}, fmt.Errorf("database: unable to create pool: %w", err)
	}

	return Database{Pool: pool}, nil
}

func (db *Database) Close() {
	db.Pool.Close()
}

func (db *Database) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

type RequestStatus string

const (
	RequestStatusSubmitted  RequestStatus = "submitted"
	RequestStatusInProgress RequestStatus = "in_progress"
	RequestStatusApproved   RequestStatus = "approved"
	RequestStatusRejected   RequestStatus = "rejected"
	RequestStatusReimbursed RequestStatus = "reimbursed"
)

// ValidRequestStatus reports whether s is a known lifecycle status.
func ValidRequestStatus(s RequestStatus) bool {
	switch s {
	case RequestStatusSubmitted, RequestStatusInProgress, RequestStatusApproved,
		RequestStatusRejected, RequestStatusReimbursed:
		return true
	}
	return false
}

type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	Phone        util.Optional[string]
	PasswordHash string
	GroupID      util.Optional[uuid.UUID]
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Group struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Role struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Permission struct {
	ID   uuid.UUID
	Name string
	Tier string
}

// UserRole assigns a role to a user, either globally or scoped to one group.
type UserRole struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	RoleID    uuid.UUID
	GroupID   util.Optional[uuid.UUID]
	IsGlobal  bool
	CreatedAt time.Time
}

// GroupRole declares which groups a role is available to be assigned within.
type GroupRole struct {
	ID        uuid.UUID
	RoleID    uuid.UUID
	GroupID   util.Optional[uuid.UUID]
	IsGlobal  bool
	CreatedAt time.Time
}

type PaymentRequest struct {
	ID                 uuid.UUID
	ReferenceCode      string
	UserID             uuid.UUID
	GroupID            util.Optional[uuid.UUID]
	FullName           string
	EmailAddress       string
	AmountRequestedCAD float64
	Status             RequestStatus
	PaymentTimeframe   util.Optional[string]
	BudgetLine         util.Optional[string]
	PaymentDetails     json.RawMessage
	ReceiptKey         util.Optional[string]
	Timestamp          time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type BudgetForm struct {
	ID                  uuid.UUID
	ClubName            string
	GroupID             util.Optional[uuid.UUID]
	UserID              uuid.UUID
	RequestedFundingCAD float64
	Status              RequestStatus
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type BudgetRowType string

const (
	BudgetRowTypeData  BudgetRowType = "data"
	BudgetRowTypeTotal BudgetRowType = "total"
)

// BudgetFormRow is analytics input only; the application never mutates it.
type BudgetFormRow struct {
	ID           uuid.UUID
	FormID       util.Optional[uuid.UUID]
	GroupID      util.Optional[uuid.UUID]
	RowType      BudgetRowType
	Label        string
	AllocatedCAD float64
	ColValues    json.RawMessage
	CreatedAt    time.Time
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrGroupNotFound      = errors.New("group not found")
	ErrRoleNotFound       = errors.New("role not found")
	ErrPermissionNotFound = errors.New("permission not found")
	ErrRequestNotFound    = errors.New("payment request not found")
	ErrBudgetFormNotFound = errors.New("budget form not found")
	ErrStaleUpdate        = errors.New("row was modified concurrently")
	ErrDuplicateName      = errors.New("name already exists")
)

// isUniqueViolation reports whether err is a postgres unique constraint error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
