package api

import (
	"time"

	"clubfunds/internal/database"
	"clubfunds/internal/middleware"
	"clubfunds/internal/service"
	"clubfunds/internal/util"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func (h *Handler) ListRequests(c *fiber.Ctx) error {
	userID, okAuth := middleware.UserID(c)
	if !okAuth {
		return h.fail(c, service.ErrUnauthenticated)
	}

	filter := service.ListRequestsFilter{}
	if status := c.Query("status"); status != "" {
		if !database.ValidRequestStatus(database.RequestStatus(status)) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "unknown status"})
		}
		filter.Status = util.Some(database.RequestStatus(status))
	}
	if line := c.Query("budget_line"); line != "" {
		filter.BudgetLine = util.Some(line)
	}
	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "since must be RFC3339"})
		}
		filter.Since = util.Some(t)
	}
	if until := c.Query("until"); until != "" {
		t, err := time.Parse(time.RFC3339, until)
		if err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "until must be RFC3339"})
		}
		filter.Until = util.Some(t)
	}

	requests, err := h.requests.List(c.Context(), userID, filter)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"requests": presentRequests(requests)})
}

func (h *Handler) GetRequest(c *fiber.Ctx) error {
	userID, okAuth := middleware.UserID(c)
	if !okAuth {
		return h.fail(c, service.ErrUnauthenticated)
	}
	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "invalid request id"})
	}

	request, err := h.requests.Get(c.Context(), userID, requestID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(presentRequest(request))
}

func (h *Handler) CreateRequest(c *fiber.Ctx) error {
	userID, okAuth := middleware.UserID(c)
	if !okAuth {
		return h.fail(c, service.ErrUnauthenticated)
	}

	var params service.CreateRequestParams
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validate.Validate(params); err != nil {
		return h.fail(c, err)
	}

	request, err := h.requests.Create(c.Context(), userID, params)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(presentRequest(request))
}

type updateStatusBody struct {
	Status            string    `json:"status" validate:"required,request_status"`
	ExpectedUpdatedAt time.Time `json:"expected_updated_at" validate:"required"`
}

func (h *Handler) UpdateRequestStatus(c *fiber.Ctx) error {
	userID, okAuth := middleware.UserID(c)
	if !okAuth {
		return h.fail(c, service.ErrUnauthenticated)
	}
	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "invalid request id"})
	}

	var body updateStatusBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validate.Validate(body); err != nil {
		return h.fail(c, err)
	}

	request, err := h.requests.UpdateStatus(c.Context(), userID, requestID, database.RequestStatus(body.Status), body.ExpectedUpdatedAt)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(presentRequest(request))
}

func (h *Handler) AttachReceipt(c *fiber.Ctx) error {
	userID, okAuth := middleware.UserID(c)
	if !okAuth {
		return h.fail(c, service.ErrUnauthenticated)
	}
	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "invalid request id"})
	}

	fileHeader, err := c.FormFile("receipt")
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "receipt file is required"})
	}
	file, err := fileHeader.Open()
	if err != nil {
		return h.fail(c, err)
	}
	defer file.Close()

	request, err := h.requests.AttachReceipt(c.Context(), userID, requestID, fileHeader.Filename, file, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(presentRequest(request))
}

func (h *Handler) GetReceiptURL(c *fiber.Ctx) error {
	userID, okAuth := middleware.UserID(c)
	if !okAuth {
		return h.fail(c, service.ErrUnauthenticated)
	}
	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "invalid request id"})
	}

	url, err := h.requests.ReceiptURL(c.Context(), userID, requestID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"url": url})
}

type requestView struct {
	ID                 uuid.UUID                `json:"id"`
	ReferenceCode      string                   `json:"reference_code"`
	UserID             uuid.UUID                `json:"user_id"`
	GroupID            util.Optional[uuid.UUID] `json:"group_id"`
	FullName           string                   `json:"full_name"`
	EmailAddress       string                   `json:"email_address"`
	AmountRequestedCAD float64                  `json:"amount_requested_cad"`
	Status             database.RequestStatus   `json:"status"`
	PaymentTimeframe   util.Optional[string]    `json:"payment_timeframe"`
	BudgetLine         util.Optional[string]    `json:"budget_line"`
	HasReceipt         bool                     `json:"has_receipt"`
	Timestamp          time.Time                `json:"timestamp"`
	UpdatedAt          time.Time                `json:"updated_at"`
}

func presentRequest(r database.PaymentRequest) requestView {
	return requestView{
		ID:                 r.ID,
		ReferenceCode:      r.ReferenceCode,
		UserID:             r.UserID,
		GroupID:            r.GroupID,
		FullName:           r.FullName,
		EmailAddress:       r.EmailAddress,
		AmountRequestedCAD: r.AmountRequestedCAD,
		Status:             r.Status,
		PaymentTimeframe:   r.PaymentTimeframe,
		BudgetLine:         r.BudgetLine,
		HasReceipt:         r.ReceiptKey.IsSet,
		Timestamp:          r.Timestamp,
		UpdatedAt:          r.UpdatedAt,
	}
}

func presentRequests(requests []database.PaymentRequest) []requestView {
	views := make([]requestView, len(requests))
	for i, r := range requests {
		views[i] = presentRequest(r)
	}
	return views
}
