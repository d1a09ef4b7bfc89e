package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clubfunds/internal/api"
	"clubfunds/internal/authz"
	"clubfunds/internal/config"
	"clubfunds/internal/database"
	"clubfunds/internal/database/migrations"
	"clubfunds/internal/logger"
	"clubfunds/internal/notifications"
	"clubfunds/internal/service"
	"clubfunds/internal/storage"
	"clubfunds/internal/telemetry"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/postgres/v3"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Missing .env is fine; real deployments use the environment directly.
	_ = godotenv.Load()

	cfg := config.NewConfig()
	ctx := context.Background()

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	appLogger := logger.New(*cfg)

	db, err := database.Connect(ctx, cfg.Database.DSN())
	if err != nil {
		appLogger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := migrations.Up(cfg.Database.DSN()); err != nil {
		appLogger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			appLogger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
	}

	sessionStorage := postgres.New(postgres.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Name,
		Username: cfg.Database.User,
		Password: cfg.Database.Password,
		Table:    "sessions",
	})
	store := session.New(session.Config{
		Storage:        sessionStorage,
		KeyLookup:      "cookie:session_id",
		CookiePath:     "/",
		CookieSecure:   cfg.Server.Environment == "production",
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		Expiration:     cfg.Auth.SessionTTL,
	})

	receiptStore, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		appLogger.Error("failed to initialize receipt storage", "error", err)
		os.Exit(1)
	}

	cache := authz.NewCache(redisClient, cfg.Redis.CacheTTL, appLogger.Logger)
	resolver := authz.NewResolver(&db, cache, appLogger.Logger)

	notifier := notifications.NewNotifier(
		notifications.NewLogEmailSender(appLogger.Logger),
		notifications.NewLogSMSSender(appLogger.Logger),
		cfg.Notifications,
		appLogger.Logger,
	)

	authService := service.NewAuthService(&db, cfg.Auth, appLogger.Logger)
	userService := service.NewUserService(&db, resolver, appLogger.Logger)
	requestService := service.NewRequestService(&db, resolver, notifier, receiptStore, cfg.Policy, appLogger.Logger)
	budgetService := service.NewBudgetService(&db, resolver, cfg.Policy, appLogger.Logger)
	roleGroupService := service.NewRoleGroupService(&db, resolver, appLogger.Logger)
	analyticsService := service.NewAnalyticsService(&db, requestService, budgetService)

	handler := api.NewHandler(api.HandlerParams{
		Store:     store,
		DB:        &db,
		Redis:     redisClient,
		Logger:    appLogger.Logger,
		Config:    cfg,
		Auth:      authService,
		Users:     userService,
		Requests:  requestService,
		Budgets:   budgetService,
		Roles:     roleGroupService,
		Analytics: analyticsService,
		Notifier:  notifier,
		Files:     receiptStore,
	})

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		AppName:      cfg.Telemetry.ServiceName,
	})
	handler.RegisterRoutes(app)

	go func() {
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		appLogger.Info("server listening", "addr", addr)
		if err := app.Listen(addr); err != nil {
			appLogger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Error("shutdown failed", "error", err)
	}
}
