package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"clubfunds/internal/authz"
	"clubfunds/internal/config"
	"clubfunds/internal/database"
	"clubfunds/internal/util"

	"github.com/google/uuid"
)

// BudgetService handles annual budget forms, which follow the same lifecycle
// and visibility rules as payment requests, plus the read-only budget rows
// that feed the analytics comparison.
type BudgetService struct {
	db       *database.Database
	resolver *authz.Resolver
	policy   config.PolicyConfig
	logger   *slog.Logger
}

func NewBudgetService(db *database.Database, resolver *authz.Resolver, policy config.PolicyConfig, logger *slog.Logger) *BudgetService {
	return &BudgetService{db: db, resolver: resolver, policy: policy, logger: logger}
}

type CreateBudgetFormParams struct {
	ClubName            string  `validate:"required,max=200"`
	RequestedFundingCAD float64 `validate:"required,gt=0"`
}

func (s *BudgetService) CreateForm(ctx context.Context, userID uuid.UUID, params CreateBudgetFormParams) (database.BudgetForm, error) {
	access, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return database.BudgetForm{}, fmt.Errorf("service: failed to resolve access: %w", err)
	}
	if !authz.CanCreateRequest(access) {
		return database.BudgetForm{}, ErrAccessDenied
	}

	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return database.BudgetForm{}, fmt.Errorf("service: failed to load user: %w", err)
	}

	form, err := s.db.CreateBudgetForm(ctx, database.CreateBudgetFormParams{
		ClubName:            params.ClubName,
		GroupID:             user.GroupID,
		UserID:              userID,
		RequestedFundingCAD: params.RequestedFundingCAD,
	})
	if err != nil {
		return database.BudgetForm{}, fmt.Errorf("service: failed to create budget form: %w", err)
	}

	s.logger.Info("budget form submitted", "form_id", form.ID, "user_id", userID, "club", form.ClubName)
	return form, nil
}

func (s *BudgetService) ListForms(ctx context.Context, userID uuid.UUID, status util.Optional[database.RequestStatus]) ([]database.BudgetForm, error) {
	access, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to resolve access: %w", err)
	}

	params := database.ListBudgetFormsParams{Status: status}
	scope := authz.RequestScope(access)
	switch scope.Kind {
	case authz.ScopeAll:
	case authz.ScopeGroups:
		if len(scope.GroupIDs) == 0 {
			return []database.BudgetForm{}, nil
		}
		params.GroupIDs = scope.GroupIDs
	default:
		params.UserID = util.Some(scope.UserID)
	}

	forms, err := s.db.ListBudgetForms(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list budget forms: %w", err)
	}
	return forms, nil
}

func (s *BudgetService) UpdateFormStatus(ctx context.Context, userID uuid.UUID, formID uuid.UUID, status database.RequestStatus, expectedUpdatedAt time.Time) (database.BudgetForm, error) {
	if !database.ValidRequestStatus(status) {
		return database.BudgetForm{}, ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}

	access, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return database.BudgetForm{}, fmt.Errorf("service: failed to resolve access: %w", err)
	}

	form, err := s.db.GetBudgetFormByID(ctx, formID)
	if err != nil {
		if errors.Is(err, database.ErrBudgetFormNotFound) {
			return database.BudgetForm{}, ErrNotFound
		}
		return database.BudgetForm{}, fmt.Errorf("service: failed to load budget form: %w", err)
	}

	if !authz.CanManageRequest(access, form.GroupID.Val, form.GroupID.IsSet) {
		return database.BudgetForm{}, ErrAccessDenied
	}
	if s.policy.LockReimbursed && form.Status == database.RequestStatusReimbursed {
		return database.BudgetForm{}, ErrReimbursedLocked
	}

	if err := s.db.UpdateBudgetFormStatus(ctx, formID, status, expectedUpdatedAt); err != nil {
		if errors.Is(err, database.ErrStaleUpdate) {
			return database.BudgetForm{}, ErrStaleUpdate
		}
		return database.BudgetForm{}, fmt.Errorf("service: failed to update budget form: %w", err)
	}

	updated, err := s.db.GetBudgetFormByID(ctx, formID)
	if err != nil {
		return database.BudgetForm{}, fmt.Errorf("service: failed to reload budget form: %w", err)
	}

	s.logger.Info("budget form status changed", "form_id", formID, "from", form.Status, "to", status, "changed_by", userID)
	return updated, nil
}

// ListRows returns the budget rows visible to the caller. Rows are read-only
// analytics input; visibility follows the same scope as requests.
func (s *BudgetService) ListRows(ctx context.Context, userID uuid.UUID, rowType util.Optional[database.BudgetRowType]) ([]database.BudgetFormRow, error) {
	access, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to resolve access: %w", err)
	}

	params := database.ListBudgetRowsParams{RowType: rowType}
	scope := authz.RequestScope(access)
	switch scope.Kind {
	case authz.ScopeAll:
	case authz.ScopeGroups:
		if len(scope.GroupIDs) == 0 {
			return []database.BudgetFormRow{}, nil
		}
		params.GroupIDs = scope.GroupIDs
	default:
		// Own-only visibility has no budget rows to show.
		return []database.BudgetFormRow{}, nil
	}

	rows, err := s.db.ListBudgetRows(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list budget rows: %w", err)
	}
	return rows, nil
}
