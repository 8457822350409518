package services

import (
	"context"
	"fmt"
	"time"

	"github.com/AnshRaj112/partsdesk-auth/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	otpBlockKeyPrefix    = "otp:block:"
	otpCooldownKeyPrefix = "otp:cooldown:"
	otpCountKeyPrefix    = "otp:count:"
	otpAttemptsKeyPrefix = "otp:attempts:"

	// otpBlockFactor multiplies the window to get the block duration.
	otpBlockFactor = 3
)

// GuardLimits configures RedisOtpGuard. A zero value disables that check.
type GuardLimits struct {
	Cooldown          time.Duration
	Window            time.Duration
	MaxPerWindow      int
	MaxVerifyAttempts int
}

// RedisOtpGuard keeps per (target, purpose) send and verify counters in Redis.
type RedisOtpGuard struct {
	rdb    *redis.Client
	limits GuardLimits
}

func NewRedisOtpGuard(rdb *redis.Client, limits GuardLimits) *RedisOtpGuard {
	return &RedisOtpGuard{rdb: rdb, limits: limits}
}

func guardKey(prefix, target string, purpose models.Purpose) string {
	return fmt.Sprintf("%s%s:%s", prefix, purpose, target)
}

// BeforeIssue rejects a send while the target is blocked or cooling down,
// and blocks it once MaxPerWindow sends happened inside Window.
func (g *RedisOtpGuard) BeforeIssue(ctx context.Context, target string, purpose models.Purpose) error {
	blockKey := guardKey(otpBlockKeyPrefix, target, purpose)
	if ttl, err := g.rdb.TTL(ctx, blockKey).Result(); err != nil {
		return err
	} else if ttl > 0 {
		return &RateLimitError{RetryAfter: ttl}
	}

	cooldownKey := guardKey(otpCooldownKeyPrefix, target, purpose)
	if g.limits.Cooldown > 0 {
		ttl, err := g.rdb.TTL(ctx, cooldownKey).Result()
		if err != nil {
			return err
		}
		if ttl > 0 {
			return &RateLimitError{RetryAfter: ttl}
		}
	}

	if g.limits.MaxPerWindow > 0 && g.limits.Window > 0 {
		countKey := guardKey(otpCountKeyPrefix, target, purpose)
		cnt, err := g.rdb.Incr(ctx, countKey).Result()
		if err != nil {
			return err
		}
		if cnt == 1 {
			if err := g.rdb.Expire(ctx, countKey, g.limits.Window).Err(); err != nil {
				return err
			}
		}
		if int(cnt) > g.limits.MaxPerWindow {
			block := g.limits.Window * otpBlockFactor
			if err := g.rdb.Set(ctx, blockKey, "1", block).Err(); err != nil {
				return err
			}
			return &RateLimitError{RetryAfter: block}
		}
	}

	if g.limits.Cooldown > 0 {
		if err := g.rdb.Set(ctx, cooldownKey, "1", g.limits.Cooldown).Err(); err != nil {
			return err
		}
	}
	return nil
}

// BeforeVerify reserves one attempt for the target and rejects it once more
// than MaxVerifyAttempts were reserved within the code lifetime. The
// reservation is a single INCR, so concurrent guesses each take a slot.
func (g *RedisOtpGuard) BeforeVerify(ctx context.Context, target string, purpose models.Purpose) error {
	if g.limits.MaxVerifyAttempts <= 0 {
		return nil
	}
	key := guardKey(otpAttemptsKeyPrefix, target, purpose)
	n, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 1 {
		if err := g.rdb.Expire(ctx, key, models.OtpTTL).Err(); err != nil {
			return err
		}
	}
	if int(n) > g.limits.MaxVerifyAttempts {
		ttl, err := g.rdb.TTL(ctx, key).Result()
		if err != nil {
			return err
		}
		if ttl <= 0 {
			ttl = models.OtpTTL
		}
		return &RateLimitError{RetryAfter: ttl}
	}
	return nil
}

// AfterVerify clears the counter on success. A failure keeps the attempt
// reserved by BeforeVerify.
func (g *RedisOtpGuard) AfterVerify(ctx context.Context, target string, purpose models.Purpose, ok bool) error {
	if g.limits.MaxVerifyAttempts <= 0 || !ok {
		return nil
	}
	return g.rdb.Del(ctx, guardKey(otpAttemptsKeyPrefix, target, purpose)).Err()
}
