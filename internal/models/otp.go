package models

import "time"

// OtpTTL is how long an issued code stays verifiable.
const OtpTTL = 10 * time.Minute

// Channel is the delivery medium of a one-time code.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Valid reports whether c is a supported channel.
func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelSMS
}

// Purpose scopes which flow may consume a code.
type Purpose string

const (
	PurposeLogin  Purpose = "login"
	PurposeForgot Purpose = "forgot"
)

// Valid reports whether p is a supported purpose.
func (p Purpose) Valid() bool {
	return p == PurposeLogin || p == PurposeForgot
}

// OtpCode is one row of the code ledger. Rows are append-only; Consumed only
// ever moves from false to true.
type OtpCode struct {
	ID         int64      `json:"id"`
	Target     string     `json:"target"`
	Channel    Channel    `json:"channel"`
	Purpose    Purpose    `json:"purpose"`
	Code       string     `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Consumed   bool       `json:"consumed"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

// Expired reports whether the code can no longer be verified at now.
func (o *OtpCode) Expired(now time.Time) bool {
	return !o.ExpiresAt.After(now)
}
