package handlers

import (
	"context"
	"time"

	"github.com/AnshRaj112/partsdesk-auth/internal/identity"
	"github.com/AnshRaj112/partsdesk-auth/internal/services"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionStore is the part of services.SessionManager the handlers use.
type SessionStore interface {
	Create(ctx context.Context, userID uuid.UUID) (string, error)
	Invalidate(ctx context.Context, token string) error
	TTL() time.Duration
}

// Handler serves the identity API. All dependencies are injected by main.
type Handler struct {
	Auth      *services.Authenticator
	Ledger    *services.OtpLedger
	Reset     *services.PasswordReset
	Users     services.UserStore
	Sessions  SessionStore
	Providers *identity.Registry
	Logger    *zap.Logger

	// SecureCookies marks the session cookie Secure (HTTPS only).
	SecureCookies bool
}

func (h *Handler) log() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}
