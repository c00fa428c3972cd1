// Package notify sends transactional email (application approvals,
// registration confirmations) over SMTP.
package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/inkfest/backend/config"
)

// Mailer sends plain-text email via SMTP. When no SMTP host is configured it
// logs the message instead of failing, so development environments work
// without a mail relay.
type Mailer struct {
	cfg    config.EmailConfig
	logger *zap.Logger
}

// NewMailer creates a mailer from email configuration.
func NewMailer(cfg config.EmailConfig, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{cfg: cfg, logger: logger}
}

// Send delivers a plain-text message to a single recipient.
func (m *Mailer) Send(to, subject, body string) error {
	if m.cfg.SMTPHost == "" {
		m.logger.Info("smtp not configured, skipping email",
			zap.String("to", to), zap.String("subject", subject))
		return nil
	}

	from := m.cfg.FromAddress
	headers := []string{
		fmt.Sprintf("From: %s <%s>", m.cfg.FromName, from),
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="utf-8"`,
	}
	msg := strings.Join(headers, "\r\n") + "\r\n\r\n" + body

	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	var auth smtp.Auth
	if m.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPass, m.cfg.SMTPHost)
	}
	if err := smtp.SendMail(addr, auth, from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	m.logger.Debug("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
