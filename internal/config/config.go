package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment    string   `envconfig:"ENV" default:"development"`
	Port           string   `envconfig:"PORT" default:"8080"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	// PublicURL is the storefront origin; OAuth providers redirect to {PublicURL}/auth/callback/{provider}.
	PublicURL string `envconfig:"PUBLIC_URL" default:"http://localhost:3000"`
	AppName   string `envconfig:"APP_NAME" default:"PartsDesk"`
	// AllowedHost pins the Host header in production (bare hostname). Empty disables the check.
	AllowedHost string `envconfig:"ALLOWED_HOST"`
	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	TrustProxy bool `envconfig:"TRUST_PROXY" default:"false"`

	PostgresURI string `envconfig:"POSTGRES_URI" default:"postgres://localhost:5432/partsdesk?sslmode=disable"`
	RedisURI    string `envconfig:"REDIS_URI" default:"redis://localhost:6379/0"`
	MongoURI    string `envconfig:"MONGODB_URI"` // optional: audit log is disabled when empty

	// JWTSecret signs the OAuth state parameter.
	JWTSecret       string        `envconfig:"JWT_SECRET" default:"your-secret-key-change-in-production"`
	SessionDuration time.Duration `envconfig:"SESSION_DURATION" default:"168h"`
	SecureCookies   bool          `envconfig:"SECURE_COOKIES" default:"false"`
	ProfileCacheTTL time.Duration `envconfig:"PROFILE_CACHE_TTL" default:"5m"` // 0 disables

	// OTP abuse controls (Redis backed). Zero disables the respective check.
	OtpCooldown          time.Duration `envconfig:"OTP_COOLDOWN" default:"45s"`
	OtpWindow            time.Duration `envconfig:"OTP_WINDOW" default:"10m"`
	OtpMaxPerWindow      int           `envconfig:"OTP_MAX_PER_WINDOW" default:"5"`
	OtpMaxVerifyAttempts int           `envconfig:"OTP_MAX_VERIFY_ATTEMPTS" default:"5"`

	SMTPHost string `envconfig:"SMTP_HOST"`
	SMTPPort int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser string `envconfig:"SMTP_USER"`
	SMTPPass string `envconfig:"SMTP_PASS"`
	SMTPFrom string `envconfig:"SMTP_FROM"`

	TwilioAccountSID string `envconfig:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `envconfig:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string `envconfig:"TWILIO_FROM_NUMBER"`
	TwilioBaseURL    string `envconfig:"TWILIO_BASE_URL" default:"https://api.twilio.com"`

	GoogleClientID     string `envconfig:"GOOGLE_CLIENT_ID"`
	GitHubClientID     string `envconfig:"GITHUB_ID"`
	GitHubClientSecret string `envconfig:"GITHUB_SECRET"`
	AzureADClientID    string `envconfig:"AZURE_AD_CLIENT_ID"`
	AzureADTenantID    string `envconfig:"AZURE_AD_TENANT_ID" default:"common"`
	AppleServiceID     string `envconfig:"APPLE_SERVICE_ID"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	c.Environment = strings.ToLower(strings.TrimSpace(c.Environment))
	c.AllowedOrigins = cleanOrigins(c.AllowedOrigins)
	return &c, nil
}

func cleanOrigins(in []string) []string {
	var out []string
	for _, o := range in {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" && !containsOrigin(out, o) {
			out = append(out, o)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	for _, v := range list {
		if strings.EqualFold(v, o) {
			return true
		}
	}
	return false
}

// OAuthRedirectURL is where a code-flow provider sends the browser back to.
func (c *Config) OAuthRedirectURL(provider string) string {
	return strings.TrimRight(c.PublicURL, "/") + "/auth/callback/" + provider
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// EmailConfigured reports whether SMTP delivery can be attempted.
func (c *Config) EmailConfigured() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// SMSConfigured reports whether Twilio delivery can be attempted.
func (c *Config) SMSConfigured() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != ""
}
