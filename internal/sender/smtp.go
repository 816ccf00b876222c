package sender

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

// mailDialer matches gomail's Dialer so tests can stub the SMTP hop.
type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender delivers email through an SMTP relay.
type SMTPSender struct {
	dialer mailDialer
	from   string
}

func NewSMTPSender(host string, port int, username, password, from string) (*SMTPSender, error) {
	if strings.TrimSpace(host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("smtp sender address is required")
	}

	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   strings.TrimSpace(from),
	}, nil
}

func newSMTPSenderWithDialer(dialer mailDialer, from string) (*SMTPSender, error) {
	if dialer == nil {
		return nil, fmt.Errorf("dialer is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("smtp sender address is required")
	}
	return &SMTPSender{dialer: dialer, from: strings.TrimSpace(from)}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) (*Result, error) {
	if s == nil || s.dialer == nil {
		return nil, fmt.Errorf("sender is not initialized")
	}
	if strings.TrimSpace(msg.To) == "" {
		return nil, &SendError{Message: "recipient is required", Transient: false}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	subject := strings.TrimSpace(msg.Subject)
	if subject == "" {
		subject = "Hello from " + s.from
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", msg.Content)
	m.AddAlternative("text/html", "<html><body>"+strings.ReplaceAll(msg.Content, "\n", "<br>")+"</body></html>")

	if err := s.dialer.DialAndSend(m); err != nil {
		// SMTP relays fail mostly on connectivity; treat as retryable.
		return nil, &SendError{
			Message:   "smtp delivery failed",
			Transient: true,
			Cause:     err,
		}
	}

	return &Result{DeliveryID: uuid.NewString()}, nil
}
