package services

import (
	"context"
	"strings"
	"time"

	"github.com/AnshRaj112/partsdesk-auth/internal/models"
	"github.com/AnshRaj112/partsdesk-auth/pkg/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserStore is the user persistence contract shared by the auth services.
type UserStore interface {
	FindByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	FindByEmailOrPhone(ctx context.Context, target string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByProvider(ctx context.Context, provider, subject string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string, now time.Time) error
	LinkProvider(ctx context.Context, acct *models.OAuthAccount) error
}

// CredentialVerifier resolves identifiers to users and checks passwords.
type CredentialVerifier struct {
	users  UserStore
	logger *zap.Logger
}

func NewCredentialVerifier(users UserStore, logger *zap.Logger) *CredentialVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialVerifier{users: users, logger: logger}
}

// ResolveUser returns the first user whose email, username or phone equals
// identifier, or ErrNotFound.
func (v *CredentialVerifier) ResolveUser(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrNotFound
	}
	return v.users.FindByIdentifier(ctx, identifier)
}

// CheckPassword compares plaintext against the stored hash. Users without a
// hash never match.
func (v *CredentialVerifier) CheckPassword(u *models.User, plaintext string) bool {
	if u == nil || !u.HasPassword() {
		return false
	}
	ok, err := utils.VerifyPassword(plaintext, *u.PasswordHash)
	if err != nil {
		v.logger.Warn("stored password hash unreadable", zap.String("user_id", u.ID.String()), zap.Error(err))
		return false
	}
	return ok
}
