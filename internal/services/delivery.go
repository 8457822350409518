package services

import (
	"context"
	"fmt"
	"time"

	"github.com/AnshRaj112/partsdesk-auth/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// OtpMessage is what the ledger hands to the dispatcher after the code is stored.
type OtpMessage struct {
	Channel   models.Channel
	Target    string
	Code      string
	Purpose   models.Purpose
	ExpiresIn time.Duration
}

// DeliveryDispatcher sends a stored code to its target.
type DeliveryDispatcher interface {
	Send(ctx context.Context, msg OtpMessage) error
}

// Sender is a single transport (SMTP, SMS gateway, log).
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ChannelDispatcher routes messages to the sender registered for their channel.
type ChannelDispatcher struct {
	senders map[models.Channel]Sender
	appName string
}

func NewChannelDispatcher(appName string, email, sms Sender) *ChannelDispatcher {
	d := &ChannelDispatcher{senders: map[models.Channel]Sender{}, appName: appName}
	if email != nil {
		d.senders[models.ChannelEmail] = email
	}
	if sms != nil {
		d.senders[models.ChannelSMS] = sms
	}
	return d
}

func (d *ChannelDispatcher) Send(ctx context.Context, msg OtpMessage) error {
	s, ok := d.senders[msg.Channel]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTransportUnavailable, msg.Channel)
	}
	subject, body := d.render(msg)
	return s.Send(ctx, msg.Target, subject, body)
}

func (d *ChannelDispatcher) render(msg OtpMessage) (string, string) {
	title := cases.Title(language.English)
	action := "sign in"
	if msg.Purpose == models.PurposeForgot {
		action = "reset your password"
	}
	subject := fmt.Sprintf("%s %s code", title.String(d.appName), title.String(string(msg.Purpose)))
	body := fmt.Sprintf("Your %s code is %s. Use it to %s. It expires in %d minutes.",
		d.appName, msg.Code, action, int(msg.ExpiresIn.Minutes()))
	return subject, body
}
