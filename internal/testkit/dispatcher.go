package testkit

import (
	"context"
	"errors"
	"sync"

	"github.com/AnshRaj112/partsdesk-auth/internal/services"
)

// ErrSendFailed is returned by a Dispatcher with Fail set.
var ErrSendFailed = errors.New("testkit: send failed")

// Dispatcher records every message it is asked to deliver.
type Dispatcher struct {
	mu   sync.Mutex
	Fail bool
	sent []services.OtpMessage
}

func (d *Dispatcher) Send(_ context.Context, msg services.OtpMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, msg)
	if d.Fail {
		return ErrSendFailed
	}
	return nil
}

// Sent returns the recorded messages.
func (d *Dispatcher) Sent() []services.OtpMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]services.OtpMessage(nil), d.sent...)
}

// LastCode returns the code of the most recent message, or "".
func (d *Dispatcher) LastCode() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sent) == 0 {
		return ""
	}
	return d.sent[len(d.sent)-1].Code
}
