// Package mail provides outbound email delivery for account flows
// (verification links, password reset links). Settings come from env config;
// when no SMTP host is configured the service falls back to logging the
// message so development works without a mail server.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Mailer is the delivery contract consumed by the auth service. Token flows
// only need to hand off a recipient, subject, and body; transport details
// stay in this package.
type Mailer interface {
	SendMail(ctx context.Context, to []string, subject, body string) error
	IsConfigured(ctx context.Context) bool
}

// SMTPMailer sends mail through a configured SMTP relay using STARTTLS-
// capable plain auth via net/smtp.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPMailer creates a mailer for the given relay settings.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// IsConfigured returns true when a relay host is set.
func (m *SMTPMailer) IsConfigured(ctx context.Context) bool {
	return m.host != ""
}

// SendMail sends a plain-text email to the given recipients.
func (m *SMTPMailer) SendMail(ctx context.Context, to []string, subject, body string) error {
	if !m.IsConfigured(ctx) {
		return fmt.Errorf("smtp not configured")
	}

	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	msg := buildMessage(m.from, to, subject, body)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	if err := smtp.SendMail(addr, auth, m.from, to, []byte(msg)); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}

	return nil
}

// buildMessage assembles RFC 5322 headers and body.
func buildMessage(from string, to []string, subject, body string) string {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.String()
}

// LogMailer is the development fallback. It never sends anything; it logs
// the message so the verification or reset link can be copied from the
// server output.
type LogMailer struct{}

// NewLogMailer creates the logging mailer.
func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

// IsConfigured always returns true so callers take the delivery path and
// the message shows up in the log.
func (m *LogMailer) IsConfigured(ctx context.Context) bool {
	return true
}

// SendMail logs the message instead of delivering it.
func (m *LogMailer) SendMail(ctx context.Context, to []string, subject, body string) error {
	slog.Info("mail (dev mode, not sent)",
		slog.String("to", strings.Join(to, ", ")),
		slog.String("subject", subject),
		slog.String("body", body),
	)
	return nil
}
