package models

import (
	"time"

	"github.com/google/uuid"
)

const RoleCustomer = "customer"

// User is the identity record shared by every login strategy.
// Email, phone and username are optional; at least one is expected so the
// account can be found again by an identifier.
type User struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Username *string `json:"username,omitempty"`
	Role     string  `json:"role"`

	// Internal only - never returned in JSON
	PasswordHash *string `json:"-"`
}

// HasPassword reports whether the account can sign in with a password.
// OTP and OAuth-only accounts have no hash.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// EmailAddress returns the email or "" when unset.
func (u *User) EmailAddress() string {
	return deref(u.Email)
}

// PhoneNumber returns the phone or "" when unset.
func (u *User) PhoneNumber() string {
	return deref(u.Phone)
}

// StringPtr returns nil for "", otherwise a pointer to s.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
