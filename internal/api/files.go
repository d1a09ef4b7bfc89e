package api

import (
	"path/filepath"
	"strings"

	"clubfunds/internal/middleware"
	"clubfunds/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ServeFile streams a locally stored receipt to an authenticated caller.
// Receipt URLs built by the local backend point here; the S3 backend hands
// out presigned URLs instead. Keys embed two UUIDs, so they are not
// enumerable.
func (h *Handler) ServeFile(c *fiber.Ctx) error {
	if _, okAuth := middleware.UserID(c); !okAuth {
		return h.fail(c, service.ErrUnauthenticated)
	}

	key := c.Params("*")
	reader, err := h.files.Retrieve(c.Context(), key)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "file not found"})
	}

	// fasthttp closes the stream once the body is sent.
	if ext := filepath.Ext(key); ext != "" {
		c.Type(strings.TrimPrefix(ext, "."))
	}
	return c.SendStream(reader)
}
