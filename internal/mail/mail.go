// Package mail delivers password-reset links over SMTP. The API consumes the
// auth.ResetMailer interface, so deployments without SMTP credentials fall
// back to LogSender and the reset flow stays testable end to end.
package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"restomap.org/internal/config"
	"restomap.org/internal/obs"
)

// SMTPSender sends reset emails through an authenticated SMTP relay.
type SMTPSender struct {
	client *gomail.Client
	from   string
}

// NewSMTPSender builds a sender from the SMTP section of the configuration.
func NewSMTPSender(cfg config.Config) (*SMTPSender, error) {
	client, err := gomail.NewClient(cfg.SMTPHost,
		gomail.WithPort(cfg.SMTPPort),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.SMTPUsername),
		gomail.WithPassword(cfg.SMTPPassword),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("create mail client: %w", err)
	}
	return &SMTPSender{client: client, from: cfg.MailFrom}, nil
}

// SendResetLink emails the single-use reset link to the account owner.
func (s *SMTPSender) SendResetLink(ctx context.Context, to, link string) error {
	msg := gomail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("set mail sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set mail recipient: %w", err)
	}
	msg.Subject("Réinitialisation de votre mot de passe")
	msg.SetBodyString(gomail.TypeTextPlain, resetBody(link))

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func resetBody(link string) string {
	return "Bonjour,\n\n" +
		"Une réinitialisation de mot de passe a été demandée pour votre compte.\n" +
		"Ouvrez ce lien pour choisir un nouveau mot de passe (valable 15 minutes) :\n\n" +
		link + "\n\n" +
		"Si vous n'êtes pas à l'origine de cette demande, ignorez ce message.\n"
}

// LogSender logs the reset link instead of emailing it. Development use only.
type LogSender struct{}

func (LogSender) SendResetLink(_ context.Context, to, link string) error {
	obs.LogEvent("info", "reset_link_issued", map[string]any{
		"to":   to,
		"link": link,
	})
	return nil
}
