package logger

import (
	"context"
	"log/slog"
	"os"

	"clubfunds/internal/config"
	"clubfunds/internal/telemetry"
)

// Logger wraps slog.Logger with service-wide attributes.
type Logger struct {
	*slog.Logger
	config config.Config
}

func New(cfg config.Config) *Logger {
	var handler slog.Handler

	if cfg.Server.Environment == "production" {
		consoleHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: true,
		})
		otelHandler := telemetry.NewOTelHandler(&slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: true,
		})
		handler = NewMultiHandler(otelHandler, consoleHandler)
	} else {
		consoleHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
		otelHandler := telemetry.NewOTelHandler(&slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
		handler = NewMultiHandler(otelHandler, consoleHandler)
	}

	logger := slog.New(handler).With(
		"service", cfg.Telemetry.ServiceName,
		"version", cfg.Telemetry.ServiceVersion,
		"environment", cfg.Telemetry.Environment,
	)

	slog.SetDefault(logger)

	return &Logger{
		Logger: logger,
		config: cfg,
	}
}

// WithUser returns a logger carrying the acting user's identity.
func (l *Logger) WithUser(userID string) *slog.Logger {
	return l.With("user_id", userID)
}

// MultiHandler fans records out to multiple handlers.
type MultiHandler struct {
	handlers []slog.Handler
}

func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *MultiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record); err != nil {
				slog.Error("Failed to handle log record", "error", err)
			}
		}
	}
	return nil
}

func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var newHandlers []slog.Handler
	for _, handler := range h.handlers {
		newHandlers = append(newHandlers, handler.WithAttrs(attrs))
	}
	return &MultiHandler{handlers: newHandlers}
}

func (h *MultiHandler) WithGroup(name string) slog.Handler {
	var newHandlers []slog.Handler
	for _, handler := range h.handlers {
		newHandlers = append(newHandlers, handler.WithGroup(name))
	}
	return &MultiHandler{handlers: newHandlers}
}

// Silence redirects the default logger to errors only (useful in tests).
func Silence() {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})
	slog.SetDefault(slog.New(handler))
}
