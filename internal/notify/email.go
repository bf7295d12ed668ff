package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

// mailDialer is the part of *gomail.Dialer the sender uses.
type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSender implements Sender over SMTP.
type EmailSender struct {
	from   string
	dialer mailDialer
}

// NewEmailSender creates an SMTP sender.
func NewEmailSender(host string, port int, username, password, from string) *EmailSender {
	return &EmailSender{
		from:   from,
		dialer: gomail.NewDialer(host, port, username, password),
	}
}

// Channel implements Sender.
func (e *EmailSender) Channel() domain.Channel { return domain.ChannelEmail }

// Send implements Sender. The context is not observed; gomail has no
// cancellation hook.
func (e *EmailSender) Send(_ context.Context, msg *Message) error {
	if msg.To == "" {
		return fmt.Errorf("no email address for user %s", msg.UserID)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)

	if err := e.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("sending email to %s: %w", msg.To, err)
	}
	return nil
}
