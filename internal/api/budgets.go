package api

import (
	"encoding/json"
	"time"

	"clubfunds/internal/database"
	"clubfunds/internal/middleware"
	"clubfunds/internal/service"
	"clubfunds/internal/util"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func (h *Handler) ListBudgetForms(c *fiber.Ctx) error {
	userID, okAuth := middleware.UserID(c)
	if !okAuth {
		return h.fail(c, service.ErrUnauthenticated)
	}

	status := util.None[database.RequestStatus]()
	if raw := c.Query("status"); raw != "" {
		if !database.ValidRequestStatus(database.RequestStatus(raw)) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "unknown status"})
		}
		status = util.Some(database.RequestStatus(raw))
	}

	forms, err := h.budgets.ListForms(c.Context(), userID, status)
	if err != nil {
		return h.fail(c, err)
	}

	views := make([]budgetFormView, len(forms))
	for i, form := range forms {
		views[i] = presentBudgetForm(form)
	}
	return c.JSON(fiber.Map{"budget_forms": views})
}

func (h *Handler) CreateBudgetForm(c *fiber.Ctx) error {
	userID, okAuth := middleware.UserID(c)
	if !okAuth {
		return h.fail(c, service.ErrUnauthenticated)
	}

	var params service.CreateBudgetFormParams
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validate.Validate(params); err != nil {
		return h.fail(c, err)
	}

	form, err := h.budgets.CreateForm(c.Context(), userID, params)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(presentBudgetForm(form))
}

func (h *Handler) UpdateBudgetFormStatus(c *fiber.Ctx) error {
	userID, okAuth := middleware.UserID(c)
	if !okAuth {
		return h.fail(c, service.ErrUnauthenticated)
	}
	formID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "invalid form id"})
	}

	var body updateStatusBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validate.Validate(body); err != nil {
		return h.fail(c, err)
	}

	form, err := h.budgets.UpdateFormStatus(c.Context(), userID, formID, database.RequestStatus(body.Status), body.ExpectedUpdatedAt)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(presentBudgetForm(form))
}

func (h *Handler) ListBudgetRows(c *fiber.Ctx) error {
	userID, okAuth := middleware.UserID(c)
	if !okAuth {
		return h.fail(c, service.ErrUnauthenticated)
	}

	rowType := util.None[database.BudgetRowType]()
	if raw := c.Query("row_type"); raw != "" {
		switch database.BudgetRowType(raw) {
		case database.BudgetRowTypeData, database.BudgetRowTypeTotal:
			rowType = util.Some(database.BudgetRowType(raw))
		default:
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "unknown row type"})
		}
	}

	rows, err := h.budgets.ListRows(c.Context(), userID, rowType)
	if err != nil {
		return h.fail(c, err)
	}

	views := make([]budgetRowView, len(rows))
	for i, row := range rows {
		views[i] = presentBudgetRow(row)
	}
	return c.JSON(fiber.Map{"budget_rows": views})
}

type budgetFormView struct {
	ID                  uuid.UUID                `json:"id"`
	ClubName            string                   `json:"club_name"`
	GroupID             util.Optional[uuid.UUID] `json:"group_id"`
	UserID              uuid.UUID                `json:"user_id"`
	RequestedFundingCAD float64                  `json:"requested_funding_cad"`
	Status              database.RequestStatus   `json:"status"`
	UpdatedAt           time.Time                `json:"updated_at"`
}

func presentBudgetForm(form database.BudgetForm) budgetFormView {
	return budgetFormView{
		ID:                  form.ID,
		ClubName:            form.ClubName,
		GroupID:             form.GroupID,
		UserID:              form.UserID,
		RequestedFundingCAD: form.RequestedFundingCAD,
		Status:              form.Status,
		UpdatedAt:           form.UpdatedAt,
	}
}

type budgetRowView struct {
	ID           uuid.UUID                `json:"id"`
	GroupID      util.Optional[uuid.UUID] `json:"group_id"`
	RowType      database.BudgetRowType   `json:"row_type"`
	Label        string                   `json:"label"`
	AllocatedCAD float64                  `json:"allocated_cad"`
	ColValues    json.RawMessage          `json:"col_values"`
}

func presentBudgetRow(row database.BudgetFormRow) budgetRowView {
	return budgetRowView{
		ID:           row.ID,
		GroupID:      row.GroupID,
		RowType:      row.RowType,
		Label:        row.Label,
		AllocatedCAD: row.AllocatedCAD,
		ColValues:    row.ColValues,
	}
}

func (h *Handler) GetAnalytics(c *fiber.Ctx) error {
	userID, okAuth := middleware.UserID(c)
	if !okAuth {
		return h.fail(c, service.ErrUnauthenticated)
	}

	summary, err := h.analytics.Summary(c.Context(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(summary)
}
