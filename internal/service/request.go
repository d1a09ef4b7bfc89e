package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"clubfunds/internal/authz"
	"clubfunds/internal/config"
	"clubfunds/internal/database"
	"clubfunds/internal/notifications"
	"clubfunds/internal/storage"
	"clubfunds/internal/util"

	"github.com/google/uuid"
)

type RequestService struct {
	db       *database.Database
	resolver *authz.Resolver
	notifier *notifications.Notifier
	store    storage.Storage
	policy   config.PolicyConfig
	logger   *slog.Logger
}

func NewRequestService(db *database.Database, resolver *authz.Resolver, notifier *notifications.Notifier, store storage.Storage, policy config.PolicyConfig, logger *slog.Logger) *RequestService {
	return &RequestService{db: db, resolver: resolver, notifier: notifier, store: store, policy: policy, logger: logger}
}

type ListRequestsFilter struct {
	Status     util.Optional[database.RequestStatus]
	BudgetLine util.Optional[string]
	Since      util.Optional[time.Time]
	Until      util.Optional[time.Time]
}

// List returns the payment requests the caller may see, scoped in SQL.
func (s *RequestService) List(ctx context.Context, userID uuid.UUID, filter ListRequestsFilter) ([]database.PaymentRequest, error) {
	access, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to resolve access: %w", err)
	}

	params := database.ListPaymentRequestsParams{
		Status:     filter.Status,
		BudgetLine: filter.BudgetLine,
		Since:      filter.Since,
		Until:      filter.Until,
	}
	scope := authz.RequestScope(access)
	switch scope.Kind {
	case authz.ScopeAll:
	case authz.ScopeGroups:
		if len(scope.GroupIDs) == 0 {
			// Club visibility with no administered group sees nothing.
			return []database.PaymentRequest{}, nil
		}
		params.GroupIDs = scope.GroupIDs
	default:
		params.UserID = util.Some(scope.UserID)
	}

	requests, err := s.db.ListPaymentRequests(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list requests: %w", err)
	}
	return requests, nil
}

// Get loads one request. A row outside the caller's scope is reported as
// access denied, not as missing.
func (s *RequestService) Get(ctx context.Context, userID uuid.UUID, requestID uuid.UUID) (database.PaymentRequest, error) {
	access, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return database.PaymentRequest{}, fmt.Errorf("service: failed to resolve access: %w", err)
	}

	request, err := s.db.GetPaymentRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, database.ErrRequestNotFound) {
			return database.PaymentRequest{}, ErrNotFound
		}
		return database.PaymentRequest{}, fmt.Errorf("service: failed to load request: %w", err)
	}

	if !authz.CanViewRequest(access, request.UserID, request.GroupID.Val, request.GroupID.IsSet) {
		return database.PaymentRequest{}, ErrAccessDenied
	}
	return request, nil
}

type CreateRequestParams struct {
	FullName           string  `validate:"required,max=200"`
	AmountRequestedCAD float64 `validate:"required,gt=0"`
	PaymentTimeframe   string  `validate:"omitempty,max=100"`
	BudgetLine         string  `validate:"omitempty,max=200"`
	PaymentDetails     json.RawMessage
}

// Create submits a request on behalf of the caller. The request inherits the
// caller's email and group membership at submission time.
func (s *RequestService) Create(ctx context.Context, userID uuid.UUID, params CreateRequestParams) (database.PaymentRequest, error) {
	access, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return database.PaymentRequest{}, fmt.Errorf("service: failed to resolve access: %w", err)
	}
	if !authz.CanCreateRequest(access) {
		return database.PaymentRequest{}, ErrAccessDenied
	}

	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return database.PaymentRequest{}, fmt.Errorf("service: failed to load user: %w", err)
	}

	timeframe := util.None[string]()
	if params.PaymentTimeframe != "" {
		timeframe = util.Some(params.PaymentTimeframe)
	}
	budgetLine := util.None[string]()
	if params.BudgetLine != "" {
		budgetLine = util.Some(params.BudgetLine)
	}

	request, err := s.db.CreatePaymentRequest(ctx, database.CreatePaymentRequestParams{
		ReferenceCode:      newReferenceCode(),
		UserID:             userID,
		GroupID:            user.GroupID,
		FullName:           params.FullName,
		EmailAddress:       user.Email,
		AmountRequestedCAD: params.AmountRequestedCAD,
		PaymentTimeframe:   timeframe,
		BudgetLine:         budgetLine,
		PaymentDetails:     params.PaymentDetails,
	})
	if err != nil {
		return database.PaymentRequest{}, fmt.Errorf("service: failed to create request: %w", err)
	}

	s.logger.Info("payment request submitted",
		"request_id", request.ID,
		"reference_code", request.ReferenceCode,
		"user_id", userID,
		"amount_cad", request.AmountRequestedCAD,
	)
	return request, nil
}

// UpdateStatus moves a request to a new status. The caller must be allowed to
// manage the row, the expected timestamp must still match (stale writes are
// rejected), and reimbursed rows may be frozen by policy. The requester is
// notified after the write commits; notification failure never reverts it.
func (s *RequestService) UpdateStatus(ctx context.Context, userID uuid.UUID, requestID uuid.UUID, status database.RequestStatus, expectedUpdatedAt time.Time) (database.PaymentRequest, error) {
	if !database.ValidRequestStatus(status) {
		return database.PaymentRequest{}, ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}

	access, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return database.PaymentRequest{}, fmt.Errorf("service: failed to resolve access: %w", err)
	}

	request, err := s.db.GetPaymentRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, database.ErrRequestNotFound) {
			return database.PaymentRequest{}, ErrNotFound
		}
		return database.PaymentRequest{}, fmt.Errorf("service: failed to load request: %w", err)
	}

	if !authz.CanManageRequest(access, request.GroupID.Val, request.GroupID.IsSet) {
		return database.PaymentRequest{}, ErrAccessDenied
	}
	if s.policy.LockReimbursed && request.Status == database.RequestStatusReimbursed {
		return database.PaymentRequest{}, ErrReimbursedLocked
	}

	if err := s.db.UpdatePaymentRequestStatus(ctx, requestID, status, expectedUpdatedAt); err != nil {
		if errors.Is(err, database.ErrStaleUpdate) {
			return database.PaymentRequest{}, ErrStaleUpdate
		}
		return database.PaymentRequest{}, fmt.Errorf("service: failed to update status: %w", err)
	}

	updated, err := s.db.GetPaymentRequestByID(ctx, requestID)
	if err != nil {
		return database.PaymentRequest{}, fmt.Errorf("service: failed to reload request: %w", err)
	}

	s.logger.Info("request status changed",
		"request_id", requestID,
		"from", request.Status,
		"to", status,
		"changed_by", userID,
	)

	if owner, err := s.db.GetUserByID(ctx, updated.UserID); err != nil {
		s.logger.Error("status change notification skipped", "request_id", requestID, "error", err)
	} else {
		s.notifier.NotifyStatusChange(context.WithoutCancel(ctx), updated, owner)
	}

	return updated, nil
}

// AttachReceipt uploads a receipt file and records its storage key on the
// request. Owners may attach to their own requests; managers to any request
// in their scope.
func (s *RequestService) AttachReceipt(ctx context.Context, userID uuid.UUID, requestID uuid.UUID, filename string, content io.Reader, contentType string) (database.PaymentRequest, error) {
	access, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return database.PaymentRequest{}, fmt.Errorf("service: failed to resolve access: %w", err)
	}

	request, err := s.db.GetPaymentRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, database.ErrRequestNotFound) {
			return database.PaymentRequest{}, ErrNotFound
		}
		return database.PaymentRequest{}, fmt.Errorf("service: failed to load request: %w", err)
	}

	isOwner := request.UserID == userID
	if !isOwner && !authz.CanManageRequest(access, request.GroupID.Val, request.GroupID.IsSet) {
		return database.PaymentRequest{}, ErrAccessDenied
	}

	key, err := s.store.StoreReceipt(ctx, userID, requestID, filename, content, contentType)
	if err != nil {
		return database.PaymentRequest{}, fmt.Errorf("service: failed to store receipt: %w", err)
	}

	if err := s.db.SetPaymentRequestReceipt(ctx, requestID, key); err != nil {
		// Best effort: do not leave an orphan file behind.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logger.Error("orphan receipt cleanup failed", "key", key, "error", delErr)
		}
		return database.PaymentRequest{}, fmt.Errorf("service: failed to record receipt: %w", err)
	}

	request.ReceiptKey = util.Some(key)
	return request, nil
}

// ReceiptURL returns a download link for a request's receipt.
func (s *RequestService) ReceiptURL(ctx context.Context, userID uuid.UUID, requestID uuid.UUID) (string, error) {
	request, err := s.Get(ctx, userID, requestID)
	if err != nil {
		return "", err
	}
	if !request.ReceiptKey.IsSet {
		return "", ErrNotFound
	}
	url, err := s.store.URL(ctx, request.ReceiptKey.Val, 15*time.Minute)
	if err != nil {
		return "", fmt.Errorf("service: failed to build receipt URL: %w", err)
	}
	return url, nil
}

func newReferenceCode() string {
	buf := make([]byte, 4)
	rand.Read(buf)
	return fmt.Sprintf("REQ-%s-%s", time.Now().UTC().Format("20060102"), hex.EncodeToString(buf))
}
