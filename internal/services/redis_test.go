package services_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AnshRaj112/partsdesk-auth/internal/models"
	"github.com/AnshRaj112/partsdesk-auth/internal/services"
	"github.com/AnshRaj112/partsdesk-auth/internal/testkit"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisOtpGuard_Cooldown(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	guard := services.NewRedisOtpGuard(rdb, services.GuardLimits{Cooldown: 30 * time.Second})
	ctx := context.Background()

	if err := guard.BeforeIssue(ctx, "a@x.io", models.PurposeLogin); err != nil {
		t.Fatalf("first send: %v", err)
	}
	err := guard.BeforeIssue(ctx, "a@x.io", models.PurposeLogin)
	var rl *services.RateLimitError
	if !errors.As(err, &rl) || !errors.Is(err, services.ErrTooManyRequests) {
		t.Fatalf("expected rate limit, got %v", err)
	}
	if rl.RetryAfter <= 0 || rl.RetryAfter > 30*time.Second {
		t.Fatalf("unexpected retry after %v", rl.RetryAfter)
	}
	if err := guard.BeforeIssue(ctx, "a@x.io", models.PurposeForgot); err != nil {
		t.Fatalf("other purpose must not share the cooldown: %v", err)
	}

	mr.FastForward(31 * time.Second)
	if err := guard.BeforeIssue(ctx, "a@x.io", models.PurposeLogin); err != nil {
		t.Fatalf("after cooldown: %v", err)
	}
}

func TestRedisOtpGuard_WindowBlock(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	guard := services.NewRedisOtpGuard(rdb, services.GuardLimits{Window: time.Minute, MaxPerWindow: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := guard.BeforeIssue(ctx, "5551234", models.PurposeLogin); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if err := guard.BeforeIssue(ctx, "5551234", models.PurposeLogin); !errors.Is(err, services.ErrTooManyRequests) {
		t.Fatalf("expected block, got %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if err := guard.BeforeIssue(ctx, "5551234", models.PurposeLogin); !errors.Is(err, services.ErrTooManyRequests) {
		t.Fatalf("block should outlast the window, got %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if err := guard.BeforeIssue(ctx, "5551234", models.PurposeLogin); err != nil {
		t.Fatalf("after block: %v", err)
	}
}

func TestRedisOtpGuard_VerifyAttempts(t *testing.T) {
	_, rdb := newMiniRedis(t)
	guard := services.NewRedisOtpGuard(rdb, services.GuardLimits{MaxVerifyAttempts: 3})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := guard.BeforeVerify(ctx, "a@x.io", models.PurposeLogin); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		if err := guard.AfterVerify(ctx, "a@x.io", models.PurposeLogin, false); err != nil {
			t.Fatalf("record attempt %d: %v", i, err)
		}
	}
	if err := guard.BeforeVerify(ctx, "a@x.io", models.PurposeLogin); !errors.Is(err, services.ErrTooManyRequests) {
		t.Fatalf("expected attempts exhausted, got %v", err)
	}

	if err := guard.AfterVerify(ctx, "a@x.io", models.PurposeLogin, true); err != nil {
		t.Fatal(err)
	}
	if err := guard.BeforeVerify(ctx, "a@x.io", models.PurposeLogin); err != nil {
		t.Fatalf("success must reset the counter: %v", err)
	}
}

func TestSessionManager(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	sm := services.NewSessionManager(rdb, time.Hour)
	ctx := context.Background()
	userID := uuid.New()

	token, err := sm.Create(ctx, userID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := sm.Validate(ctx, token)
	if err != nil || got != userID {
		t.Fatalf("validate: got %v, %v", got, err)
	}

	second, err := sm.Create(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sm.Validate(ctx, token); !errors.Is(err, services.ErrUnauthorized) {
		t.Fatalf("old session must be replaced, got %v", err)
	}

	if err := sm.InvalidateUserSessions(ctx, userID); err != nil {
		t.Fatal(err)
	}
	if _, err := sm.Validate(ctx, second); !errors.Is(err, services.ErrUnauthorized) {
		t.Fatalf("revoked session still valid: %v", err)
	}

	third, _ := sm.Create(ctx, userID)
	if err := sm.Invalidate(ctx, third); err != nil {
		t.Fatal(err)
	}
	if mr.Exists(services.UserSessionKeyPrefix + userID.String()) {
		t.Fatalf("user mapping must be dropped on sign out")
	}

	fourth, _ := sm.Create(ctx, userID)
	mr.FastForward(61 * time.Minute)
	if _, err := sm.Validate(ctx, fourth); !errors.Is(err, services.ErrUnauthorized) {
		t.Fatalf("expired session still valid: %v", err)
	}

	if _, err := sm.Validate(ctx, ""); !errors.Is(err, services.ErrUnauthorized) {
		t.Fatalf("empty token: %v", err)
	}
}

func TestCachedUserStore(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	ctx := context.Background()
	backing := testkit.NewUserStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	u := &models.User{ID: uuid.New(), CreatedAt: now, UpdatedAt: now, Email: models.StringPtr("a@x.io"), Role: models.RoleCustomer}
	if err := backing.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}

	if _, ok := services.NewCachedUserStore(backing, rdb, 0, nil).(*services.CachedUserStore); ok {
		t.Fatalf("zero ttl must not wrap")
	}
	users := services.NewCachedUserStore(backing, rdb, time.Minute, nil)

	got, err := users.FindByID(ctx, u.ID)
	if err != nil || got.EmailAddress() != "a@x.io" {
		t.Fatalf("find: %+v %v", got, err)
	}
	key := services.CacheKeyPrefix + u.ID.String()
	if !mr.Exists(key) {
		t.Fatalf("profile not cached")
	}
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	if err := users.UpdatePasswordHash(ctx, u.ID, "hash", now); err != nil {
		t.Fatalf("update: %v", err)
	}
	if mr.Exists(key) {
		t.Fatalf("update must invalidate the cached profile")
	}

	if _, err := users.FindByID(ctx, uuid.New()); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	mr.SetError("ERR cache down")
	if err := users.UpdatePasswordHash(ctx, u.ID, "hash-2", now); err != nil {
		t.Fatalf("committed update must succeed when redis fails: %v", err)
	}
	mr.SetError("")
	stored, _ := backing.FindByID(ctx, u.ID)
	if stored.PasswordHash == nil || *stored.PasswordHash != "hash-2" {
		t.Fatalf("password row not written")
	}
}

type countingOtpStore struct {
	*testkit.OtpStore
	lookups atomic.Int64
}

func (s *countingOtpStore) FindLatestUnconsumed(ctx context.Context, target string, purpose models.Purpose, code string, now time.Time) (*models.OtpCode, error) {
	s.lookups.Add(1)
	return s.OtpStore.FindLatestUnconsumed(ctx, target, purpose, code, now)
}

func TestRedisOtpGuard_ConcurrentGuessesHonorCap(t *testing.T) {
	_, rdb := newMiniRedis(t)
	store := &countingOtpStore{OtpStore: testkit.NewOtpStore()}
	guard := services.NewRedisOtpGuard(rdb, services.GuardLimits{MaxVerifyAttempts: 3})
	ledger := services.NewOtpLedger(store, &testkit.Dispatcher{}, nil, services.WithOtpGuard(guard))
	ctx := context.Background()

	var wg sync.WaitGroup
	var rejected, throttled atomic.Int64
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ledger.Verify(ctx, "5551234", models.PurposeLogin, "000000")
			switch {
			case errors.Is(err, services.ErrInvalidOrExpiredCode):
				rejected.Add(1)
			case errors.Is(err, services.ErrTooManyRequests):
				throttled.Add(1)
			default:
				t.Errorf("unexpected result %v", err)
			}
		}()
	}
	wg.Wait()

	if n := store.lookups.Load(); n != 3 {
		t.Fatalf("expected 3 guesses to reach the ledger, got %d", n)
	}
	if rejected.Load() != 3 || throttled.Load() != 47 {
		t.Fatalf("rejected=%d throttled=%d", rejected.Load(), throttled.Load())
	}
}

func TestPasswordReset_SMSCodesDoNotExhaustEmailAttempts(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	guard := services.NewRedisOtpGuard(rdb, services.GuardLimits{MaxVerifyAttempts: 3})
	disp := &testkit.Dispatcher{}
	ledger := services.NewOtpLedger(testkit.NewOtpStore(), disp, nil, services.WithOtpGuard(guard))
	users := testkit.NewUserStore()
	creds := services.NewCredentialVerifier(users, nil)
	reset := services.NewPasswordReset(creds, ledger, users, &revoker{}, nil, nil)
	seedUser(t, users, "a@x.io", "5551234", "alice", "old-password")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := reset.Identify(ctx, "alice", models.ChannelSMS); err != nil {
			t.Fatalf("round %d identify: %v", i, err)
		}
		if err := reset.Verify(ctx, "alice", disp.LastCode()); err != nil {
			t.Fatalf("round %d verify: %v", i, err)
		}
	}
	for _, target := range []string{"a@x.io", "5551234"} {
		if mr.Exists("otp:attempts:forgot:" + target) {
			t.Fatalf("success must clear the counter for %s", target)
		}
	}

	if err := reset.Verify(ctx, "alice", "000000"); !errors.Is(err, services.ErrInvalidOrExpiredCode) {
		t.Fatalf("wrong code: %v", err)
	}
	for _, target := range []string{"a@x.io", "5551234"} {
		if got, _ := mr.Get("otp:attempts:forgot:" + target); got != "1" {
			t.Fatalf("a miss costs one attempt per identity, %s has %q", target, got)
		}
	}
}
