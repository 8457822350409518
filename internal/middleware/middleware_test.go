package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

func request(h http.Handler, method, path, remote string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = remote
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIPLimiter_CredentialPathsOnly(t *testing.T) {
	l := NewIPLimiter(rate.Every(time.Hour), 1, time.Minute)
	h := l.Limit("slow down", CredentialPaths...)(ok)

	if rec := request(h, "POST", "/api/auth/signin", "1.2.3.4:1", nil); rec.Code != http.StatusOK {
		t.Fatalf("first attempt: %d", rec.Code)
	}
	if rec := request(h, "POST", "/api/auth/signin", "1.2.3.4:2", nil); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second attempt: %d", rec.Code)
	}
	if rec := request(h, "POST", "/api/auth/signin", "5.6.7.8:1", nil); rec.Code != http.StatusOK {
		t.Fatalf("other ip: %d", rec.Code)
	}
	if rec := request(h, "GET", "/health", "1.2.3.4:3", nil); rec.Code != http.StatusOK {
		t.Fatalf("unlimited path: %d", rec.Code)
	}
}

func TestIPLimiter_Sweep(t *testing.T) {
	l := NewIPLimiter(rate.Every(time.Hour), 1, time.Minute)
	l.Allow("1.2.3.4")
	l.Sweep(time.Now().Add(2 * time.Minute))
	if !l.Allow("1.2.3.4") {
		t.Fatalf("swept entry should start with a full bucket")
	}
}

func TestSecurityHeadersAndHostCheck(t *testing.T) {
	h := SecurityHeaders(HostCheck("auth.parts.example")(ok))
	rec := request(h, "GET", "http://auth.parts.example:443/x", "1.1.1.1:1", nil)
	if rec.Code != http.StatusOK || rec.Header().Get(headerXFrameOptions) != "DENY" {
		t.Fatalf("allowed host: %d %v", rec.Code, rec.Header())
	}
	rec = request(h, "GET", "http://evil.example/x", "1.1.1.1:1", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign host: %d", rec.Code)
	}
}

func TestRedisRateLimiter(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	h := NewRedisRateLimiter(rdb, 2, time.Minute, time.Hour, nil).Middleware(ok)
	for i := 0; i < 2; i++ {
		if rec := request(h, "GET", "/", "9.9.9.9:1", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d: %d", i, rec.Code)
		}
	}
	rec := request(h, "GET", "/", "9.9.9.9:1", nil)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("over limit: %d", rec.Code)
	}
	if !mr.Exists(BlockedIPKeyPrefix + "9.9.9.9") {
		t.Fatalf("ip should be blocked")
	}
	mr.FastForward(2 * time.Minute)
	if rec := request(h, "GET", "/", "9.9.9.9:1", nil); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("block outlasts the window: %d", rec.Code)
	}
}

type fakeSessions map[string]uuid.UUID

func (f fakeSessions) Validate(_ context.Context, token string) (uuid.UUID, error) {
	if id, ok := f[token]; ok {
		return id, nil
	}
	return uuid.Nil, errors.New("unauthorized")
}

func TestRequireSession(t *testing.T) {
	userID := uuid.New()
	var seen uuid.UUID
	var seenToken string
	h := RequireSession(fakeSessions{"tok": userID})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserID(r.Context())
		seenToken = SessionTokenFrom(r.Context())
	}))

	if rec := request(h, "GET", "/", "1.1.1.1:1", map[string]string{"Authorization": "Bearer tok"}); rec.Code != http.StatusOK || seen != userID || seenToken != "tok" {
		t.Fatalf("bearer: %d %v %q", rec.Code, seen, seenToken)
	}
	if rec := request(h, "GET", "/", "1.1.1.1:1", map[string]string{"Cookie": SessionCookieName + "=tok"}); rec.Code != http.StatusOK {
		t.Fatalf("cookie: %d", rec.Code)
	}
	if rec := request(h, "GET", "/", "1.1.1.1:1", map[string]string{"Authorization": "Bearer nope"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://parts.example.com"})(ok)
	rec := request(h, "OPTIONS", "/api/auth/signin", "1.1.1.1:1", map[string]string{
		"Origin":                        "https://parts.example.com",
		"Access-Control-Request-Method": "POST",
	})
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://parts.example.com" || rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("preflight headers: %v", rec.Header())
	}
	rec = request(h, "GET", "/", "1.1.1.1:1", map[string]string{"Origin": "https://evil.example"})
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("foreign origin allowed")
	}
}
