package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AnshRaj112/partsdesk-auth/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// UserStore persists users and their delegated identity links in PostgreSQL.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, created_at, updated_at, name, email, phone, username, password_hash, role`

// FindByIdentifier returns the oldest user whose email, username or phone
// equals identifier. Usernames are stored lowercase, so that match ignores case.
func (s *UserStore) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	return s.findOne(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE email = $1 OR username = LOWER($1) OR phone = $1
		ORDER BY created_at, id
		LIMIT 1
	`, identifier)
}

// FindByEmailOrPhone returns the oldest user whose email or phone equals target.
func (s *UserStore) FindByEmailOrPhone(ctx context.Context, target string) (*models.User, error) {
	return s.findOne(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE email = $1 OR phone = $1
		ORDER BY created_at, id
		LIMIT 1
	`, target)
}

func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByProvider resolves a linked provider subject to its user.
func (s *UserStore) FindByProvider(ctx context.Context, provider, subject string) (*models.User, error) {
	return s.findOne(ctx, `
		SELECT u.id, u.created_at, u.updated_at, u.name, u.email, u.phone, u.username, u.password_hash, u.role
		FROM oauth_accounts oa
		JOIN users u ON u.id = oa.user_id
		WHERE oa.provider = $1 AND oa.provider_uid = $2
	`, provider, subject)
}

// CreateUser inserts u. A unique violation on email, phone or username
// returns models.ErrConflict.
func (s *UserStore) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, created_at, updated_at, name, email, phone, username, password_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, u.ID, u.CreatedAt, u.UpdatedAt, u.Name, u.Email, u.Phone, u.Username, u.PasswordHash, u.Role)
	if isUniqueViolation(err) {
		return models.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// UpdatePasswordHash overwrites the stored hash.
func (s *UserStore) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1
	`, id, hash, now)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// LinkProvider records acct. Linking the same provider subject twice is a no-op.
func (s *UserStore) LinkProvider(ctx context.Context, acct *models.OAuthAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oauth_accounts (id, user_id, provider, provider_uid, email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider, provider_uid) DO NOTHING
	`, acct.ID, acct.UserID, acct.Provider, acct.ProviderUID, acct.Email, acct.CreatedAt)
	if err != nil {
		return fmt.Errorf("link provider: %w", err)
	}
	return nil
}

func (s *UserStore) findOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	var u models.User
	var name, email, phone, username, passwordHash sql.NullString
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&u.ID, &u.CreatedAt, &u.UpdatedAt, &name, &email, &phone, &username, &passwordHash, &u.Role,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.Name = nullToPtr(name)
	u.Email = nullToPtr(email)
	u.Phone = nullToPtr(phone)
	u.Username = nullToPtr(username)
	u.PasswordHash = nullToPtr(passwordHash)
	return &u, nil
}

func nullToPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
