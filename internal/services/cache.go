package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/AnshRaj112/partsdesk-auth/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// CacheKeyPrefix is the Redis key prefix for cached user profiles.
	CacheKeyPrefix = "cache:user:"
	MinCacheTTL    = 30 * time.Second
	MaxCacheTTL    = time.Hour
)

// CachedUserStore is a read-through Redis cache in front of a UserStore.
// Only FindByID is cached. The cached copy is the JSON profile, so it never
// carries a password hash; password checks resolve through FindByIdentifier.
type CachedUserStore struct {
	UserStore
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedUserStore wraps users. ttl is clamped to [MinCacheTTL, MaxCacheTTL];
// a zero ttl returns users unwrapped.
func NewCachedUserStore(users UserStore, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) UserStore {
	if ttl <= 0 || rdb == nil {
		return users
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl = min(max(ttl, MinCacheTTL), MaxCacheTTL)
	return &CachedUserStore{UserStore: users, rdb: rdb, ttl: ttl, logger: logger}
}

func cacheKey(id uuid.UUID) string {
	return CacheKeyPrefix + id.String()
}

// FindByID serves from Redis when possible. Cache errors fall through to the
// store.
func (c *CachedUserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if val, err := c.rdb.Get(ctx, cacheKey(id)).Bytes(); err == nil {
		var u models.User
		if json.Unmarshal(val, &u) == nil {
			return &u, nil
		}
	} else if !errors.Is(err, redis.Nil) && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	u, err := c.UserStore.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(u); err == nil {
		c.rdb.Set(ctx, cacheKey(id), data, c.ttl)
	}
	return u, nil
}

// UpdatePasswordHash writes through and drops the cached profile. Once the
// row is written a cache failure is only logged.
func (c *CachedUserStore) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string, now time.Time) error {
	if err := c.UserStore.UpdatePasswordHash(ctx, id, hash, now); err != nil {
		return err
	}
	if err := c.Invalidate(ctx, id); err != nil {
		c.logger.Warn("failed to drop cached profile", zap.String("user_id", id.String()), zap.Error(err))
	}
	return nil
}

// Invalidate removes the cached profile for id.
func (c *CachedUserStore) Invalidate(ctx context.Context, id uuid.UUID) error {
	return c.rdb.Del(ctx, cacheKey(id)).Err()
}
