// Package mailer sends the transactional emails of the account lifecycle:
// address confirmation and password reset.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/RoberAF/chatbot/config"
	"github.com/RoberAF/chatbot/pkg/logger"
)

// Mailer delivers account lifecycle emails. Delivery failures are reported
// to the caller, which decides whether the surrounding operation still
// succeeds.
type Mailer interface {
	SendConfirmationEmail(ctx context.Context, to, token string) error
	SendResetPasswordEmail(ctx context.Context, to, token string) error
}

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	host        string
	port        int
	username    string
	password    string
	from        string
	frontendURL string

	// send is swapped in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		host:        cfg.Mail.Host,
		port:        cfg.Mail.Port,
		username:    cfg.Mail.Username,
		password:    cfg.Mail.Password,
		from:        cfg.Mail.From,
		frontendURL: strings.TrimRight(cfg.App.FrontendURL, "/"),
		send:        smtp.SendMail,
	}
}

func (m *SMTPMailer) SendConfirmationEmail(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/auth/confirm?token=%s", m.frontendURL, token)
	body := fmt.Sprintf(
		"Welcome! Confirm your email address by visiting the link below:\r\n\r\n%s\r\n\r\nThe link expires in one hour.\r\n",
		link,
	)
	return m.deliver(ctx, to, "Confirm your email", body)
}

func (m *SMTPMailer) SendResetPasswordEmail(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/auth/reset-password?token=%s", m.frontendURL, token)
	body := fmt.Sprintf(
		"A password reset was requested for your account. Visit the link below to choose a new password:\r\n\r\n%s\r\n\r\nThe link expires in one hour. If you did not request this, ignore this message.\r\n",
		link,
	)
	return m.deliver(ctx, to, "Reset your password", body)
}

func (m *SMTPMailer) deliver(ctx context.Context, to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	if err := m.send(addr, auth, m.from, []string{to}, []byte(msg)); err != nil {
		logger.ErrorWithContext(ctx, "Failed to send email").
			String("to", to).
			String("subject", subject).
			Err(err).
			Log()
		return fmt.Errorf("failed to send email: %w", err)
	}

	logger.InfoWithContext(ctx, "Email sent").
		String("to", to).
		String("subject", subject).
		Log()
	return nil
}

// NopMailer drops all mail. Used when mail delivery is disabled and in
// tests.
type NopMailer struct{}

func (NopMailer) SendConfirmationEmail(ctx context.Context, to, _ string) error {
	logger.InfoWithContext(ctx, "Mail delivery disabled, skipping confirmation email").
		String("to", to).
		Log()
	return nil
}

func (NopMailer) SendResetPasswordEmail(ctx context.Context, to, _ string) error {
	logger.InfoWithContext(ctx, "Mail delivery disabled, skipping reset email").
		String("to", to).
		Log()
	return nil
}
