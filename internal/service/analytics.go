package service

import (
	"context"
	"fmt"

	"clubfunds/internal/analytics"
	"clubfunds/internal/database"
	"clubfunds/internal/util"

	"github.com/google/uuid"
)

// AnalyticsService assembles the dashboard summary: it fetches the caller's
// visible requests and budget rows through the scoped services, then runs the
// pure aggregation transforms over them.
type AnalyticsService struct {
	db       *database.Database
	requests *RequestService
	budgets  *BudgetService
}

func NewAnalyticsService(db *database.Database, requests *RequestService, budgets *BudgetService) *AnalyticsService {
	return &AnalyticsService{db: db, requests: requests, budgets: budgets}
}

func (s *AnalyticsService) Summary(ctx context.Context, userID uuid.UUID) (analytics.Summary, error) {
	requests, err := s.requests.List(ctx, userID, ListRequestsFilter{})
	if err != nil {
		return analytics.Summary{}, err
	}

	rows, err := s.budgets.ListRows(ctx, userID, util.Some(database.BudgetRowTypeData))
	if err != nil {
		return analytics.Summary{}, err
	}

	groups, err := s.db.ListGroups(ctx)
	if err != nil {
		return analytics.Summary{}, fmt.Errorf("service: failed to list groups: %w", err)
	}
	groupNames := make(map[uuid.UUID]string, len(groups))
	for _, group := range groups {
		groupNames[group.ID] = group.Name
	}

	return analytics.Build(requests, groupNames, rows), nil
}
