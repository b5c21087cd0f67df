package app

import (
	"fmt"

	"github.com/resend/resend-go/v2"

	"github.com/HelpRelance/helprelance/app/config"
)

// Mailer is the outbound notification collaborator.
type Mailer interface {
	SendVerificationCode(email, code string) error
}

// ResendMailer delivers verification codes through the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
}

func NewResendMailer(cfg config.MailConfig) *ResendMailer {
	return &ResendMailer{
		client: resend.NewClient(cfg.ResendAPIKey),
		from:   cfg.FromAddress,
	}
}

func (m *ResendMailer) SendVerificationCode(email, code string) error {
	html := "<h1>Bienvenue sur HelpRelance !</h1>" +
		"<p>Votre code de vérification est :</p>" +
		"<h2 style=\"font-size: 32px; letter-spacing: 5px; color: #10b981;\">" + code + "</h2>" +
		"<p>Ce code est valable pendant 10 minutes.</p>"

	_, err := m.client.Emails.Send(&resend.SendEmailRequest{
		From:    m.from,
		To:      []string{email},
		Subject: "Votre code de vérification HelpRelance",
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}
