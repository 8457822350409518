package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %q", cfg.Port)
	}
	if cfg.SessionDuration != 7*24*time.Hour {
		t.Fatalf("unexpected session duration %v", cfg.SessionDuration)
	}
	if cfg.OtpCooldown != 45*time.Second || cfg.OtpMaxPerWindow != 5 {
		t.Fatalf("unexpected otp defaults: %v %d", cfg.OtpCooldown, cfg.OtpMaxPerWindow)
	}
	if cfg.IsProduction() {
		t.Fatalf("expected non-production by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENV", " Production ")
	t.Setenv("ALLOWED_ORIGINS", "https://parts.example.com/, https://parts.example.com,https://www.parts.example.com")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_FROM", "no-reply@example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected production")
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("expected deduplicated origins, got %v", cfg.AllowedOrigins)
	}
	if !cfg.EmailConfigured() || cfg.SMSConfigured() {
		t.Fatalf("unexpected transport flags")
	}
}

func TestOAuthRedirectURL(t *testing.T) {
	c := &Config{PublicURL: "https://parts.example.com/"}
	if got := c.OAuthRedirectURL("github"); got != "https://parts.example.com/auth/callback/github" {
		t.Fatalf("redirect url = %q", got)
	}
}
