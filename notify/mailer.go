package notify

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Mailer sends a single email to one recipient
type Mailer interface {
	Send(toEmail, toName, subject, htmlContent, plainText string) error
}

// SendGridMailer sends email through SendGrid
type SendGridMailer struct {
	APIKey   string
	From     string
	FromName string
}

// Send sends an email using SendGrid
func (m SendGridMailer) Send(toEmail, toName, subject, htmlContent, plainText string) error {
	from := mail.NewEmail(m.FromName, m.From)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)
	client := sendgrid.NewSendClient(m.APIKey)
	response, err := client.Send(message)
	if err != nil {
		zap.S().Errorw("failed to send email", "error", err, "to", toEmail)
		return err
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "to", toEmail)
		return fmt.Errorf("sendgrid error: status %d", response.StatusCode)
	}
	zap.S().Infow("email sent successfully", "to", toEmail, "subject", subject)
	return nil
}
