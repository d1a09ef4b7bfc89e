// Package notifications sends status-change messages over email and SMS.
// Sends happen after the status write has committed and are fire-and-forget:
// a failed send is logged and never rolls the status change back.
package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"clubfunds/internal/config"
	"clubfunds/internal/database"
)

type EmailSender interface {
	SendEmail(ctx context.Context, to string, subject string, body string) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, to string, body string) error
}

// LogEmailSender writes the message to the log instead of delivering it.
// Used in development and tests.
type LogEmailSender struct {
	logger *slog.Logger
}

func NewLogEmailSender(logger *slog.Logger) *LogEmailSender {
	return &LogEmailSender{logger: logger}
}

func (s *LogEmailSender) SendEmail(ctx context.Context, to string, subject string, body string) error {
	s.logger.Info("email notification", "to", to, "subject", subject, "body", body)
	return nil
}

// LogSMSSender writes the message to the log instead of delivering it.
type LogSMSSender struct {
	logger *slog.Logger
}

func NewLogSMSSender(logger *slog.Logger) *LogSMSSender {
	return &LogSMSSender{logger: logger}
}

func (s *LogSMSSender) SendSMS(ctx context.Context, to string, body string) error {
	s.logger.Info("sms notification", "to", to, "body", body)
	return nil
}

type Notifier struct {
	email  EmailSender
	sms    SMSSender
	cfg    config.NotificationsConfig
	logger *slog.Logger
}

func NewNotifier(email EmailSender, sms SMSSender, cfg config.NotificationsConfig, logger *slog.Logger) *Notifier {
	return &Notifier{email: email, sms: sms, cfg: cfg, logger: logger}
}

// NotifyStatusChange tells the requester their request moved to a new status.
// Email always goes out; SMS only when a phone number is on file. Errors are
// logged and swallowed.
func (n *Notifier) NotifyStatusChange(ctx context.Context, request database.PaymentRequest, user database.User) {
	subject := fmt.Sprintf("Request %s is now %s", request.ReferenceCode, request.Status)
	body := fmt.Sprintf(
		"Hi %s,\n\nYour payment request %s for $%.2f CAD has been updated to %q.\n",
		request.FullName, request.ReferenceCode, request.AmountRequestedCAD, request.Status,
	)

	body += fmt.Sprintf("\n%s", n.cfg.EmailFrom)

	if err := n.email.SendEmail(ctx, request.EmailAddress, subject, body); err != nil {
		n.logger.Error("status change email failed",
			"request_id", request.ID,
			"to", request.EmailAddress,
			"error", err,
		)
	}

	if !user.Phone.IsSet {
		return
	}
	sms := fmt.Sprintf("Request %s: %s", request.ReferenceCode, request.Status)
	if err := n.sms.SendSMS(ctx, user.Phone.Val, sms); err != nil {
		n.logger.Error("status change sms failed",
			"request_id", request.ID,
			"to", user.Phone.Val,
			"error", err,
		)
	}
}

// SendEmail delivers an ad-hoc email, for the explicit notification
// endpoints. The error is returned so the handler can report delivery
// failure; status-change flows use NotifyStatusChange instead.
func (n *Notifier) SendEmail(ctx context.Context, to string, subject string, body string) error {
	return n.email.SendEmail(ctx, to, subject, body)
}

// SendSMS delivers an ad-hoc SMS.
func (n *Notifier) SendSMS(ctx context.Context, to string, body string) error {
	return n.sms.SendSMS(ctx, to, body)
}
