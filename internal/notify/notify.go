// Package notify delivers transactional email.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
)

// Mailer sends one-time passcodes to users.
type Mailer interface {
	SendOTP(ctx context.Context, name, email, code string) error
}

const otpSubject = "Your OTP For Verification"

func otpBody(name, code string) string {
	return fmt.Sprintf("Hello %s,\n\nYour OTP is: %s\n\nThis OTP is valid for 2 minutes.", name, code)
}

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type smtpMailer struct {
	addr   string
	host   string
	from   string
	auth   smtp.Auth
	send   sendFunc
	logger zerolog.Logger
}

// NewSMTPMailer creates a Mailer that sends plain text mail through an SMTP
// relay using PLAIN auth when a username is set.
func NewSMTPMailer(host string, port int, username, password, from string, logger zerolog.Logger) Mailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &smtpMailer{
		addr:   fmt.Sprintf("%s:%d", host, port),
		host:   host,
		from:   from,
		auth:   auth,
		send:   smtp.SendMail,
		logger: logger.With().Str("component", "smtp-mailer").Logger(),
	}
}

func (m *smtpMailer) SendOTP(ctx context.Context, name, email, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMessage(m.from, email, otpSubject, otpBody(name, code))
	if err := m.send(m.addr, m.auth, m.from, []string{email}, msg); err != nil {
		m.logger.Error().Err(err).Str("email", email).Msg("failed to send otp email")
		return fmt.Errorf("failed to send otp email: %w", err)
	}

	m.logger.Info().Str("email", email).Msg("otp email sent")
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

type logMailer struct {
	logger zerolog.Logger
}

// NewLogMailer returns a Mailer that writes passcodes to the log. Used in
// development when no SMTP relay is configured.
func NewLogMailer(logger zerolog.Logger) Mailer {
	return &logMailer{logger: logger.With().Str("component", "log-mailer").Logger()}
}

func (m *logMailer) SendOTP(ctx context.Context, name, email, code string) error {
	m.logger.Info().
		Str("email", email).
		Str("otp", code).
		Msg("smtp not configured, otp logged instead of sent")
	return nil
}
