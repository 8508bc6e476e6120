package channels

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/Daskott/rightguard/server/models"
	"github.com/Daskott/rightguard/shared"
)

var ErrNoEmail = errors.New("contact has no email address")

// SendMailFunc matches smtp.SendMail
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type EmailSender struct {
	config   shared.EmailConfig
	sendMail SendMailFunc
}

func NewEmailSender(config shared.EmailConfig) (*EmailSender, error) {
	if config.SMTPServer == "" || config.SMTPPort == 0 || config.Username == "" || config.Password == "" {
		return nil, fmt.Errorf("missing email configuration: smtpServer, smtpPort, username, or password is empty")
	}
	return &EmailSender{config: config, sendMail: smtp.SendMail}, nil
}

func (s *EmailSender) Channel() models.Channel {
	return models.Email
}

// Send delivers the email in the background so ctx can abandon a hung smtp
// conversation, the conversation itself is not interrupted.
func (s *EmailSender) Send(ctx context.Context, delivery Delivery) (string, error) {
	to := delivery.Contact.Email
	if to == "" {
		return "", ErrNoEmail
	}

	from := s.config.From
	if from == "" {
		from = s.config.Username
	}

	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.SMTPServer)
	addr := fmt.Sprintf("%s:%d", s.config.SMTPServer, s.config.SMTPPort)
	msg := buildEmail(from, to, delivery)

	done := make(chan error, 1)
	go func() {
		done <- s.sendMail(addr, auth, from, []string{to}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("failed to send email to %s: %w", to, err)
		}
		return NewMessageID(models.Email), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func buildEmail(from, to string, delivery Delivery) []byte {
	subject := EmailSubject
	if delivery.Test {
		subject = "RightGuard Test Alert"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	fmt.Fprintf(&b, "Dear %s,\r\n\r\n", delivery.Contact.Name)
	b.WriteString(strings.ReplaceAll(AlertBody(delivery), "\n", "\r\n"))
	b.WriteString("\r\n")

	return []byte(b.String())
}
