package service

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/fintrackapp/auth-service/internal/config"
	"go.uber.org/zap"
)

// NewNotifier returns an SMTP-backed notifier when the SMTP section is
// configured, and a log-only notifier otherwise. The log-only fallback keeps
// local development and tests working without a mail relay.
func NewNotifier(cfg config.SMTPConfig, logger *zap.Logger) Notifier {
	if cfg.Enabled() {
		return &smtpNotifier{cfg: cfg, logger: logger}
	}
	return &logNotifier{logger: logger}
}

type smtpNotifier struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
}

func (n *smtpNotifier) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := strings.Join([]string{
		"From: " + n.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%s", n.cfg.Host, n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, n.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	n.logger.Debug("notification sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

type logNotifier struct {
	logger *zap.Logger
}

func (n *logNotifier) Send(_ context.Context, to, subject, _ string) error {
	n.logger.Info("notification (smtp disabled)",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}
