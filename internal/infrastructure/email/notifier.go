package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"IntakeRobot/internal/ports"
)

// Notifier delivers operator alerts over SMTP.
type Notifier struct {
	host     string
	port     int
	sender   string
	password string
	send     func(*gomail.Message) error
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers SMTP relay settings and the sending identity.
func NewNotifier(host string, port int, sender, password string) *Notifier {
	n := &Notifier{
		host:     host,
		port:     port,
		sender:   sender,
		password: password,
	}
	n.send = func(m *gomail.Message) error {
		dialer := gomail.NewDialer(n.host, n.port, n.sender, n.password)
		return dialer.DialAndSend(m)
	}
	return n
}

// Alert sends one plain-text message to the recipient. The caller treats
// a returned error as log-only; this method never panics.
func (n *Notifier) Alert(ctx context.Context, recipient, subject, body string) error {
	if n.host == "" || n.sender == "" {
		return fmt.Errorf("smtp notifier misconfigured")
	}
	if recipient == "" {
		return fmt.Errorf("alert recipient is empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.sender)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := n.send(m); err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	return nil
}
