package api

import (
	"github.com/gofiber/fiber/v2"
)

// Health reports liveness of the database and, when enabled, the cache.
func (h *Handler) Health(c *fiber.Ctx) error {
	checks := fiber.Map{"database": "ok"}
	healthy := true

	if err := h.db.Ping(c.Context()); err != nil {
		checks["database"] = "unreachable"
		healthy = false
	}

	if h.redis != nil {
		checks["cache"] = "ok"
		if err := h.redis.Ping(c.Context()).Err(); err != nil {
			checks["cache"] = "unreachable"
			healthy = false
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if !healthy {
		status = fiber.StatusServiceUnavailable
		overall = "degraded"
	}
	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": checks,
	})
}
