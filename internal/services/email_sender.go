package services

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"
)

// MailDialer is satisfied by *gomail.Dialer.
type MailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSender delivers codes over SMTP.
type EmailSender struct {
	dialer MailDialer
	from   string
}

func NewEmailSender(host string, port int, user, pass, from string) *EmailSender {
	return &EmailSender{dialer: gomail.NewDialer(host, port, user, pass), from: from}
}

// NewEmailSenderWithDialer is used when the dialer needs to be swapped out.
func NewEmailSenderWithDialer(d MailDialer, from string) *EmailSender {
	return &EmailSender{dialer: d, from: from}
}

func (s *EmailSender) Send(ctx context.Context, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("empty recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
