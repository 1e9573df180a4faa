// Package managers handles the sending of emails for email verification and
// confirmation using the Mailgun service and the Hermes package for email
// formatting.
package managers

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/matcornic/hermes/v2"
	log "github.com/sirupsen/logrus"
)

// MailMgr is an interface that outlines the contract for email management.
type MailMgr interface {
	SendVerificationMail(email, username, code string) error
	SendConfirmationMail(email, username string) error
}

// MailManager is a concrete implementation of the MailMgr interface.
// It uses the Mailgun service for sending emails and the Hermes package for
// formatting them.
type MailManager struct {
	Hermes  *hermes.Hermes
	Mailgun *mailgun.MailgunImpl
}

var from = "Admin Core <noreply@admin-core.dev>"
var environment string

// SendVerificationMail sends an email with a code to verify the address of a
// freshly registered account.
func (mm *MailManager) SendVerificationMail(email, username, code string) error {
	if environment != "production" {
		log.Info("Skipping verification mail in development mode")
		return nil
	}

	mailBody := hermes.Email{
		Body: hermes.Body{
			Name: username,
			Intros: []string{
				"Welcome to Admin Core! We're very excited to have you on board.",
			},
			Actions: []hermes.Action{
				{
					Instructions: "To verify your email address, please login and enter the following code:",
					InviteCode:   code,
				},
			},
			Outros: []string{
				"If you did not create this account, no further action is required.",
			},
		},
	}

	emailBody, err := mm.Hermes.GenerateHTML(mailBody)
	if err != nil {
		return err
	}

	return mm.send(email, "Verify your email address", emailBody)
}

// SendConfirmationMail confirms to a user that their email was verified.
func (mm *MailManager) SendConfirmationMail(email, username string) error {
	if environment != "production" {
		log.Info("Skipping confirmation mail in development mode")
		return nil
	}

	mailBody := hermes.Email{
		Body: hermes.Body{
			Name: username,
			Intros: []string{
				"Your email address has been successfully verified!",
			},
			Outros: []string{
				"Have fun using Admin Core.",
			},
		},
	}

	emailBody, err := mm.Hermes.GenerateHTML(mailBody)
	if err != nil {
		return err
	}

	return mm.send(email, "Email address verified", emailBody)
}

func (mm *MailManager) send(email, subject, body string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	message := mm.Mailgun.NewMessage(from, subject, "", email)
	message.SetHtml(body)
	if _, _, err := mm.Mailgun.Send(ctx, message); err != nil {
		log.Warning("Error sending mail: " + err.Error())
		return err
	}

	log.Debug("Mail sent to ", email)
	return nil
}

// NewMailManager initializes a new MailManager instance with configured
// Mailgun and Hermes settings. Outside production no mail leaves the process.
func NewMailManager() MailMgr {
	log.Info("Initializing mail manager")
	environment = os.Getenv("ENVIRONMENT")

	if environment != "production" {
		log.Info("Running in development mode, email will not be sent to users")
	}

	domain := os.Getenv("MAILGUN_DOMAIN")
	if domain == "" {
		domain = "mail.admin-core.dev"
	}
	mailgunInstance := mailgun.NewMailgun(domain, os.Getenv("MAILGUN_API_KEY"))

	return &MailManager{
		Hermes: &hermes.Hermes{
			Theme:         new(hermes.Default),
			TextDirection: hermes.TDLeftToRight,
			Product: hermes.Product{
				Name:      "Admin Core",
				Link:      fmt.Sprintf("https://%s/", domain),
				Copyright: "© Admin Core",
			},
		},
		Mailgun: mailgunInstance,
	}
}
