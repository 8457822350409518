package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultSessionDuration is 7 days
	DefaultSessionDuration = 7 * 24 * time.Hour
	// SessionKeyPrefix is the Redis key prefix for sessions
	SessionKeyPrefix = "session:"
	// UserSessionKeyPrefix is the Redis key prefix for user->session mapping
	UserSessionKeyPrefix = "user_session:"
)

// SessionManager stores opaque session tokens in Redis. A user holds at most
// one live session; signing in again replaces it.
type SessionManager struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionManager(rdb *redis.Client, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionDuration
	}
	return &SessionManager{rdb: rdb, ttl: ttl}
}

// TTL is the lifetime given to new sessions.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Create invalidates any existing session for the user and returns a new token.
func (m *SessionManager) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	if err := m.InvalidateUserSessions(ctx, userID); err != nil {
		return "", err
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(tokenBytes)

	pipe := m.rdb.TxPipeline()
	pipe.Set(ctx, SessionKeyPrefix+token, userID.String(), m.ttl)
	pipe.Set(ctx, UserSessionKeyPrefix+userID.String(), token, m.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Validate returns the user owning token or ErrUnauthorized.
func (m *SessionManager) Validate(ctx context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, ErrUnauthorized
	}
	raw, err := m.rdb.Get(ctx, SessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrUnauthorized
	}
	if err != nil {
		return uuid.Nil, err
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrUnauthorized
	}
	return userID, nil
}

// Refresh extends the session and its user mapping by the full TTL.
func (m *SessionManager) Refresh(ctx context.Context, token string) error {
	userID, err := m.Validate(ctx, token)
	if err != nil {
		return err
	}
	pipe := m.rdb.TxPipeline()
	pipe.Expire(ctx, SessionKeyPrefix+token, m.ttl)
	pipe.Expire(ctx, UserSessionKeyPrefix+userID.String(), m.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Invalidate removes one session.
func (m *SessionManager) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	key := SessionKeyPrefix + token
	userID, err := m.rdb.Get(ctx, key).Result()
	if err == nil && userID != "" {
		// Only drop the mapping if it still points at this token.
		mapKey := UserSessionKeyPrefix + userID
		if cur, _ := m.rdb.Get(ctx, mapKey).Result(); cur == token {
			m.rdb.Del(ctx, mapKey)
		}
	}
	return m.rdb.Del(ctx, key).Err()
}

// InvalidateUserSessions removes the session of a user, e.g. after a password change.
func (m *SessionManager) InvalidateUserSessions(ctx context.Context, userID uuid.UUID) error {
	mapKey := UserSessionKeyPrefix + userID.String()
	token, err := m.rdb.Get(ctx, mapKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if token != "" {
		if err := m.rdb.Del(ctx, SessionKeyPrefix+token).Err(); err != nil {
			return err
		}
	}
	return m.rdb.Del(ctx, mapKey).Err()
}
