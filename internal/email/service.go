package email

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/clinic-api/internal/config"
)

// Service delivers transactional mail.
type Service interface {
	SendPasswordReset(ctx context.Context, to, name, token string) error
}

type smtpService struct {
	dialer   *gomail.Dialer
	from     string
	resetURL string
}

func NewSMTPService(cfg config.EmailConfig) Service {
	return &smtpService{
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:     cfg.From,
		resetURL: cfg.ResetURL,
	}
}

func (s *smtpService) SendPasswordReset(ctx context.Context, to, name, token string) error {
	link := ResetLink(s.resetURL, token)

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Reset your password")
	m.SetBody("text/plain", fmt.Sprintf(
		"Hi %s,\n\nUse the link below to choose a new password. It expires in one hour.\n\n%s\n\nIf you did not ask for this, ignore this email.\n",
		name, link))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	log.Ctx(ctx).Info().Str("to", to).Msg("Password reset email sent")
	return nil
}

// ResetLink appends the token to the configured reset page URL.
func ResetLink(base, token string) string {
	return base + "?token=" + token
}
