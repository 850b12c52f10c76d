// Package mail delivers verification codes over SMTP.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer sends a verification code to a recipient.
type Mailer interface {
	SendOTP(ctx context.Context, to, name, code string) error
}

// SMTPConfig holds SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends verification emails through an SMTP relay.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer builds a mailer from the relay config.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = "no-reply@bookswap.local"
	}
	return &SMTPMailer{cfg: cfg}, nil
}

// SendOTP emails the verification code. The code expires ten minutes after
// issue; the body says so.
func (m *SMTPMailer) SendOTP(ctx context.Context, to, name, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		name = to
	}
	msg := buildOTPMessage(m.cfg.From, to, name, code)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send otp mail: %w", err)
	}
	return nil
}

func buildOTPMessage(from, to, name, code string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: \"BookSwap\" <%s>\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	b.WriteString("Subject: Your BookSwap verification code\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Hello %s,\r\n\r\n", name)
	fmt.Fprintf(&b, "Your BookSwap verification code is: %s\r\n\r\n", code)
	b.WriteString("This code expires in 10 minutes.\r\n\r\n")
	b.WriteString("If you did not request this, you can ignore this email.\r\n\r\n")
	b.WriteString("BookSwap Team\r\n")
	return []byte(b.String())
}
