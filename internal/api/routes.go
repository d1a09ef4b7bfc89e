package api

import (
	"time"

	"clubfunds/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// RegisterRoutes wires every endpoint onto the app. Everything under /api
// requires an authenticated session or bearer token.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Use(recover.New())
	app.Use(middleware.SecurityHeaders())
	app.Use(middleware.Logger(h.logger))

	app.Get("/health", h.Health)

	authLimiter := limiter.New(limiter.Config{
		Max:        10,
		Expiration: 15 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many attempts, try again later",
			})
		},
	})

	app.Post("/auth/sign-up", authLimiter, h.SignUp)
	app.Post("/auth/login", authLimiter, h.Login)
	app.Post("/auth/logout", h.Logout)

	// Locally stored receipts; URLs come from the storage backend.
	app.Get("/files/*", middleware.Authenticated(h.store, h.cfg.Auth.JWTSecret), h.ServeFile)

	api := app.Group("/api", middleware.Authenticated(h.store, h.cfg.Auth.JWTSecret))

	api.Get("/me", h.Me)
	api.Get("/users", h.ListUsers)
	api.Post("/update-user", h.UpdateUser)

	api.Get("/groups", h.ListGroups)
	api.Post("/update-group", h.UpdateGroup)
	api.Delete("/groups/:id", h.DeleteGroup)

	api.Get("/roles", h.ListRoles)
	api.Get("/permissions", h.ListPermissions)
	api.Post("/update-role", h.UpdateRole)
	api.Delete("/roles/:id", h.DeleteRole)
	api.Post("/assign-role", h.AssignRole)
	api.Post("/remove-role", h.RemoveRole)

	api.Get("/requests", h.ListRequests)
	api.Post("/requests", h.CreateRequest)
	api.Get("/requests/:id", h.GetRequest)
	api.Post("/requests/:id/status", h.UpdateRequestStatus)
	api.Post("/requests/:id/receipt", h.AttachReceipt)
	api.Get("/requests/:id/receipt", h.GetReceiptURL)

	api.Get("/budget-forms", h.ListBudgetForms)
	api.Post("/budget-forms", h.CreateBudgetForm)
	api.Post("/budget-forms/:id/status", h.UpdateBudgetFormStatus)
	api.Get("/budget-rows", h.ListBudgetRows)

	api.Get("/analytics", h.GetAnalytics)

	api.Post("/send-email-notif", h.SendEmailNotif)
	api.Post("/send-sms-notif", h.SendSMSNotif)
}
