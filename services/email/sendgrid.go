package email

import (
	"fmt"
	"log"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendGridMailer delivers messages through the SendGrid v3 API.
type SendGridMailer struct {
	key  string
	from *sgmail.Email
}

var _ Mailer = (*SendGridMailer)(nil)

// NewSendGridMailer creates a SendGrid mailer
func NewSendGridMailer(key, appName, fromEmail string) *SendGridMailer {
	return &SendGridMailer{
		key:  key,
		from: sgmail.NewEmail(appName, fromEmail),
	}
}

// Send delivers one message.
func (m *SendGridMailer) Send(msg Message) error {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToAddress))

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.AddPersonalizations(p)
	v3.AddContent(
		sgmail.NewContent("text/plain", msg.TextBody),
		sgmail.NewContent("text/html", msg.HTMLBody),
	)

	req := sendgrid.GetRequest(m.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(v3)

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid returned status %d: %s", res.StatusCode, res.Body)
	}

	log.Printf("Email sent to %s: %s", msg.ToAddress, msg.Subject)
	return nil
}

// NewMailer picks the SendGrid mailer when a key is configured and falls
// back to the console mailer otherwise.
func NewMailer(key, appName, fromEmail string) Mailer {
	if key == "" {
		log.Println("SENDGRID_API_KEY not set, emails will be logged to console")
		return NewConsoleMailer()
	}
	return NewSendGridMailer(key, appName, fromEmail)
}
