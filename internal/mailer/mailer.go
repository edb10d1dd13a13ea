package mailer

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"stemlab/internal/config"
	"stemlab/internal/logging"
)

const dialTimeout = 15 * time.Second

// Mailer delivers verification codes over SMTP on a best-effort basis. When
// no transport is configured, or delivery fails, the code is logged so the
// verification flow stays usable.
type Mailer struct {
	smtp    config.SMTP
	logger  *slog.Logger
	deliver func(cfg config.SMTP, to string, message []byte) error
}

// New constructs a mailer from SMTP configuration.
func New(smtpCfg config.SMTP, logger *slog.Logger) *Mailer {
	return &Mailer{
		smtp:    smtpCfg,
		logger:  logging.WithComponent(logger, "mailer"),
		deliver: sendSMTP,
	}
}

// SendVerificationCode delivers the code to email. Failures never propagate to
// the caller; the code remains redeemable and is logged as a fallback.
func (m *Mailer) SendVerificationCode(email, code string) {
	if m.smtp.Host == "" || m.smtp.From == "" {
		m.logFallback(email, code)
		return
	}

	message := fmt.Appendf(nil,
		"From: %s\r\nTo: %s\r\nSubject: Stem Lab verification code\r\n\r\nYour verification code is: %s\r\n",
		m.smtp.From, email, code)

	if err := m.deliver(m.smtp, email, message); err != nil {
		m.logger.Warn("could not send verification email, falling back to log",
			logging.String("email", email), logging.Error(err))
		m.logFallback(email, code)
		return
	}
	m.logger.Info("verification email sent", logging.String("email", email))
}

func (m *Mailer) logFallback(email, code string) {
	m.logger.Info("verification code issued",
		logging.String("email", email), logging.String("code", code))
}

func sendSMTP(cfg config.SMTP, to string, message []byte) error {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if cfg.UseTLS {
		if err := client.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if cfg.Username != "" && cfg.Password != "" {
		auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(cfg.From); err != nil {
		return fmt.Errorf("smtp mail: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}
	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := writer.Write(message); err != nil {
		writer.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	return client.Quit()
}
