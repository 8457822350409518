package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/AnshRaj112/partsdesk-auth/pkg/clientip"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// RateLimitWindow is 120 seconds
	RateLimitWindow = 120 * time.Second
	// RateLimitMaxRequests is the maximum number of requests allowed in the window
	RateLimitMaxRequests = 25
	// RateLimitKeyPrefix is the Redis key prefix for rate limiting
	RateLimitKeyPrefix = "ratelimit:"
	// BlockedIPKeyPrefix is the Redis key prefix for blocked IPs
	BlockedIPKeyPrefix = "blocked_ip:"
	// BlockedIPDuration is how long an IP stays blocked
	BlockedIPDuration = 24 * time.Hour
)

// RedisRateLimiter is a fixed window counter per IP shared by every instance.
type RedisRateLimiter struct {
	rdb    *redis.Client
	max    int
	window time.Duration
	block  time.Duration
	logger *zap.Logger
}

func NewRedisRateLimiter(rdb *redis.Client, max int, window, block time.Duration, logger *zap.Logger) *RedisRateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRateLimiter{rdb: rdb, max: max, window: window, block: block, logger: logger}
}

// Middleware blocks an IP for the block duration once it exceeds max requests
// in the window. Redis errors fail open.
func (l *RedisRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := clientip.RealClientIP(r)

		blockedKey := BlockedIPKeyPrefix + ip
		isBlocked, err := l.rdb.Exists(ctx, blockedKey).Result()
		if err == nil && isBlocked > 0 {
			writeTooMany(w, "Your IP has been temporarily blocked due to excessive requests. Please try again later.", l.block)
			return
		}

		key := RateLimitKeyPrefix + ip
		count, err := l.rdb.Incr(ctx, key).Result()
		if err != nil {
			l.logger.Warn("rate limit unavailable", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			l.rdb.Expire(ctx, key, l.window)
		}

		if int(count) > l.max {
			if err := l.rdb.Set(ctx, blockedKey, "1", l.block).Err(); err != nil {
				l.logger.Warn("block ip failed", zap.String("ip", ip), zap.Error(err))
			}
			writeTooMany(w, "Rate limit exceeded. Your IP has been temporarily blocked. Please try again later.", l.block)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.max))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(l.max-int(count)))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(l.window).Unix(), 10))
		next.ServeHTTP(w, r)
	})
}

func writeTooMany(w http.ResponseWriter, msg string, retry time.Duration) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())))
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(fmt.Sprintf(`{"success":false,"error":%q,"retry_after":%d}`, msg, int(retry.Seconds()))))
}
