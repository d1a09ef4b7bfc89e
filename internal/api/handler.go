// Package api is the HTTP surface: fiber handlers, routing and the mapping
// from service errors to response codes.
package api

import (
	"log/slog"

	"clubfunds/internal/config"
	"clubfunds/internal/database"
	"clubfunds/internal/notifications"
	"clubfunds/internal/service"
	"clubfunds/internal/storage"
	"clubfunds/internal/validator"

	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/redis/go-redis/v9"
)

type Handler struct {
	store     *session.Store
	db        *database.Database
	redis     *redis.Client
	validate  *validator.Validator
	logger    *slog.Logger
	cfg       *config.Config
	auth      *service.AuthService
	users     *service.UserService
	requests  *service.RequestService
	budgets   *service.BudgetService
	roles     *service.RoleGroupService
	analytics *service.AnalyticsService
	notifier  *notifications.Notifier
	files     storage.Storage
}

type HandlerParams struct {
	Store     *session.Store
	DB        *database.Database
	Redis     *redis.Client
	Logger    *slog.Logger
	Config    *config.Config
	Auth      *service.AuthService
	Users     *service.UserService
	Requests  *service.RequestService
	Budgets   *service.BudgetService
	Roles     *service.RoleGroupService
	Analytics *service.AnalyticsService
	Notifier  *notifications.Notifier
	Files     storage.Storage
}

func NewHandler(params HandlerParams) *Handler {
	return &Handler{
		store:     params.Store,
		db:        params.DB,
		redis:     params.Redis,
		validate:  validator.New(),
		logger:    params.Logger,
		cfg:       params.Config,
		auth:      params.Auth,
		users:     params.Users,
		requests:  params.Requests,
		budgets:   params.Budgets,
		roles:     params.Roles,
		analytics: params.Analytics,
		notifier:  params.Notifier,
		files:     params.Files,
	}
}
