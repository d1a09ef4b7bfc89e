package api

import (
	"clubfunds/internal/authz"
	"clubfunds/internal/middleware"
	"clubfunds/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type emailNotifBody struct {
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	Body    string `json:"body" validate:"required,max=5000"`
}

// SendEmailNotif lets request managers push an ad-hoc email, e.g. asking a
// requester for a missing receipt.
func (h *Handler) SendEmailNotif(c *fiber.Ctx) error {
	userID, okAuth := middleware.UserID(c)
	if !okAuth {
		return h.fail(c, service.ErrUnauthenticated)
	}
	if err := h.requireManager(c, userID); err != nil {
		return h.fail(c, err)
	}

	var body emailNotifBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validate.Validate(body); err != nil {
		return h.fail(c, err)
	}

	if err := h.notifier.SendEmail(c.Context(), body.To, body.Subject, body.Body); err != nil {
		h.logger.Error("ad-hoc email failed", "to", body.To, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "email delivery failed"})
	}
	return ok(c, "email sent")
}

type smsNotifBody struct {
	To   string `json:"to" validate:"required,e164"`
	Body string `json:"body" validate:"required,max=480"`
}

func (h *Handler) SendSMSNotif(c *fiber.Ctx) error {
	userID, okAuth := middleware.UserID(c)
	if !okAuth {
		return h.fail(c, service.ErrUnauthenticated)
	}
	if err := h.requireManager(c, userID); err != nil {
		return h.fail(c, err)
	}

	var body smsNotifBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validate.Validate(body); err != nil {
		return h.fail(c, err)
	}

	if err := h.notifier.SendSMS(c.Context(), body.To, body.Body); err != nil {
		h.logger.Error("ad-hoc sms failed", "to", body.To, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "sms delivery failed"})
	}
	return ok(c, "sms sent")
}

func (h *Handler) requireManager(c *fiber.Ctx, userID uuid.UUID) error {
	profile, err := h.users.Me(c.Context(), userID)
	if err != nil {
		return err
	}
	if !profile.Access.Has(authz.PermManageAllRequests) && !profile.Access.Has(authz.PermManageClubRequests) {
		return service.ErrAccessDenied
	}
	return nil
}
