// Package email delivers transactional mail. Callers depend on the
// Mailer interface; the SendGrid implementation is swapped for the
// console one when no API key is configured, so local development never
// needs credentials.
package email

import (
	"fmt"
	"log"
)

// Message is a rendered email ready for delivery.
type Message struct {
	ToName    string
	ToAddress string
	Subject   string
	TextBody  string
	HTMLBody  string
}

// Mailer sends transactional email. Send is best-effort from the
// caller's point of view; delivery failures are the mailer's problem to
// log, not the request handler's to surface.
type Mailer interface {
	Send(msg Message) error
}

// ConsoleMailer writes messages to the process log instead of sending
// them. Used when SENDGRID_API_KEY is unset.
type ConsoleMailer struct{}

// NewConsoleMailer creates a console mailer
func NewConsoleMailer() *ConsoleMailer {
	return &ConsoleMailer{}
}

// Send logs the message.
func (m *ConsoleMailer) Send(msg Message) error {
	log.Printf("MAIL to=%s subject=%q\n%s", msg.ToAddress, msg.Subject, msg.TextBody)
	return nil
}

// PasswordReset builds the password reset message.
func PasswordReset(name, address, appURL, token string) Message {
	link := fmt.Sprintf("%s/reset-password?token=%s", appURL, token)
	return Message{
		ToName:    name,
		ToAddress: address,
		Subject:   "Reset your password",
		TextBody: fmt.Sprintf(
			"Hello %s,\n\nWe received a request to reset your password. "+
				"Open the link below to choose a new one. The link expires in 1 hour.\n\n%s\n\n"+
				"If you did not request this, ignore this email.\n", name, link),
		HTMLBody: fmt.Sprintf(
			"<p>Hello %s,</p><p>We received a request to reset your password. "+
				"Click the link below to choose a new one. The link expires in 1 hour.</p>"+
				"<p><a href=%q>Reset password</a></p>"+
				"<p>If you did not request this, ignore this email.</p>", name, link),
	}
}

// Welcome builds the post-registration message.
func Welcome(name, address string) Message {
	return Message{
		ToName:    name,
		ToAddress: address,
		Subject:   "Welcome aboard",
		TextBody: fmt.Sprintf(
			"Hello %s,\n\nYour account is ready. Browse the catalog and enroll in your first course.\n", name),
		HTMLBody: fmt.Sprintf(
			"<p>Hello %s,</p><p>Your account is ready. Browse the catalog and enroll in your first course.</p>", name),
	}
}

// PurchaseReceipt builds the payment confirmation message.
func PurchaseReceipt(name, address, courseTitle, reference string, amount float64) Message {
	return Message{
		ToName:    name,
		ToAddress: address,
		Subject:   "Your purchase receipt",
		TextBody: fmt.Sprintf(
			"Hello %s,\n\nYour purchase of %q for $%.2f was successful.\nTransaction: %s\n",
			name, courseTitle, amount, reference),
		HTMLBody: fmt.Sprintf(
			"<p>Hello %s,</p><p>Your purchase of <strong>%s</strong> for $%.2f was successful.</p>"+
				"<p>Transaction: <code>%s</code></p>",
			name, courseTitle, amount, reference),
	}
}

// CertificateIssued builds the certificate notification message.
func CertificateIssued(name, address, courseTitle, code string) Message {
	return Message{
		ToName:    name,
		ToAddress: address,
		Subject:   "Your certificate is ready",
		TextBody: fmt.Sprintf(
			"Congratulations %s,\n\nYou completed %q. Your certificate code is %s.\n",
			name, courseTitle, code),
		HTMLBody: fmt.Sprintf(
			"<p>Congratulations %s,</p><p>You completed <strong>%s</strong>. "+
				"Your certificate code is <code>%s</code>.</p>",
			name, courseTitle, code),
	}
}
