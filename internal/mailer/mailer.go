package mailer

import (
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"
)

type Config struct {
	Host     string
	Port     int
	From     string
	Password string
}

// SendRegistrationEmail notifies a member about a registration lifecycle
// change. Best effort: callers log the error and move on.
func SendRegistrationEmail(log *zerolog.Logger, cfg Config, eventTitle, status, recipientEmail string, timeoutMinutes int) error {
	if cfg.Host == "" {
		log.Debug().Msg("smtp not configured, skipping email")
		return nil
	}

	var subject, body string
	switch status {
	case "confirmed":
		subject = "Your registration is confirmed"
		body = fmt.Sprintf("Hello!\n\nYour registration for \"%s\" is confirmed. See you there!", eventTitle)
	case "payment_pending":
		subject = "Complete your registration payment"
		body = fmt.Sprintf("Hello!\n\nYou started registering for \"%s\". Please complete the payment within %d minutes or your registration will be cancelled.", eventTitle, timeoutMinutes)
	case "cancelled":
		subject = "Your registration was cancelled"
		body = fmt.Sprintf("Hello!\n\nYour registration for \"%s\" was cancelled because the payment window expired.", eventTitle)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		cfg.From, recipientEmail, subject, body,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	auth := smtp.PlainAuth("", cfg.From, cfg.Password, cfg.Host)

	if err := smtp.SendMail(addr, auth, cfg.From, []string{recipientEmail}, []byte(msg)); err != nil {
		log.Warn().Msgf("failed to send email to %s: %v", recipientEmail, err)
		return fmt.Errorf("send email: %w", err)
	}

	log.Info().Msgf("email sent to %s (status: %s)", recipientEmail, status)
	return nil
}
