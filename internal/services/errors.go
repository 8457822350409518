package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/AnshRaj112/partsdesk-auth/internal/models"
)

var (
	// ErrNotFound is returned when an identifier resolves to no user.
	ErrNotFound = models.ErrNotFound
	// ErrConflict is returned when a unique field is already taken.
	ErrConflict = models.ErrConflict

	// ErrInvalidOrExpiredCode covers wrong, expired and already consumed codes alike.
	ErrInvalidOrExpiredCode = errors.New("invalid or expired OTP")
	ErrDeliveryUnavailable  = errors.New("target not available")
	ErrDeliveryFailure      = errors.New("code delivery failed")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrCodeNotVerified      = errors.New("OTP not verified")
	ErrTooManyRequests      = errors.New("too many requests")
	ErrTransportUnavailable = errors.New("delivery transport not configured")
)

// RateLimitError is returned by the OTP guard. It matches ErrTooManyRequests.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many requests; try again in %d seconds", int(e.RetryAfter.Seconds()))
}

func (e *RateLimitError) Unwrap() error {
	return ErrTooManyRequests
}
