package api

import (
	"errors"

	"clubfunds/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// fail maps a service error onto the wire: 401 unauthenticated, 403 denied,
// 404 missing, 409 conflicts and stale writes, 422 validation, 500 for
// everything else. Internal details are logged, never sent to the client.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	var (
		validationErr  service.ValidationError
		conflictErr    service.ConflictError
		referentialErr service.ReferentialIntegrityError
		fieldErrs      validator.ValidationErrors
	)

	switch {
	case errors.Is(err, service.ErrUnauthenticated), errors.Is(err, service.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrAccessDenied):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access denied"})
	case errors.Is(err, service.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, service.ErrStaleUpdate), errors.Is(err, service.ErrReimbursedLocked):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &conflictErr), errors.As(err, &referentialErr):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &fieldErrs):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": fieldErrs.Error()})
	}

	h.logger.Error("request failed", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

func ok(c *fiber.Ctx, message string) error {
	return c.JSON(fiber.Map{"message": message})
}
