package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/AnshRaj112/partsdesk-auth/internal/config"
	"github.com/AnshRaj112/partsdesk-auth/internal/database"
	"github.com/AnshRaj112/partsdesk-auth/internal/handlers"
	"github.com/AnshRaj112/partsdesk-auth/internal/identity"
	"github.com/AnshRaj112/partsdesk-auth/internal/middleware"
	"github.com/AnshRaj112/partsdesk-auth/internal/models"
	"github.com/AnshRaj112/partsdesk-auth/internal/routes"
	"github.com/AnshRaj112/partsdesk-auth/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("connecting to PostgreSQL")
	pg, err := database.ConnectPostgres(ctx, cfg.PostgresURI)
	if err != nil {
		return err
	}
	defer pg.Close()

	logger.Info("connecting to Redis")
	rdb, err := database.ConnectRedis(ctx, cfg.RedisURI)
	if err != nil {
		return err
	}
	defer rdb.Close()

	var audit services.AuditRecorder
	if cfg.MongoURI != "" {
		client, mdb, err := database.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			logger.Warn("MongoDB unavailable, audit log disabled", zap.Error(err))
		} else {
			defer database.DisconnectMongo(client)
			auditLog := database.NewAuditLog(mdb)
			if err := auditLog.EnsureIndexes(ctx); err != nil {
				logger.Warn("failed to ensure audit indexes", zap.Error(err))
			}
			audit = auditLog
			logger.Info("audit log enabled")
		}
	}

	users := services.NewCachedUserStore(database.NewUserStore(pg), rdb, cfg.ProfileCacheTTL, logger)
	dispatcher := services.NewChannelDispatcher(cfg.AppName, emailSender(cfg, logger), smsSender(cfg, logger))
	guard := services.NewRedisOtpGuard(rdb, services.GuardLimits{
		Cooldown:          cfg.OtpCooldown,
		Window:            cfg.OtpWindow,
		MaxPerWindow:      cfg.OtpMaxPerWindow,
		MaxVerifyAttempts: cfg.OtpMaxVerifyAttempts,
	})
	ledger := services.NewOtpLedger(database.NewOtpStore(pg), dispatcher, logger, services.WithOtpGuard(guard))
	sessions := services.NewSessionManager(rdb, cfg.SessionDuration)
	creds := services.NewCredentialVerifier(users, logger)
	auth := services.NewAuthenticator(users, creds, ledger, logger, services.WithAuditRecorder(audit))
	reset := services.NewPasswordReset(creds, ledger, users, sessions, audit, logger)
	providers := identity.NewRegistry(identity.NewStateSigner(cfg.JWTSecret), buildProviders(ctx, cfg)...)
	logger.Info("identity providers configured", zap.Strings("providers", providers.Names()))

	h := &handlers.Handler{
		Auth:          auth,
		Ledger:        ledger,
		Reset:         reset,
		Users:         users,
		Sessions:      sessions,
		Providers:     providers,
		Logger:        logger,
		SecureCookies: cfg.SecureCookies || cfg.IsProduction(),
	}

	r := chi.NewRouter()
	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Production: per-IP token buckets in process. Otherwise the Redis window.
	if cfg.IsProduction() {
		global := middleware.NewGlobalLimiter()
		credential := middleware.NewCredentialLimiter()
		go global.RunSweeper(ctx, 5*time.Minute)
		go credential.RunSweeper(ctx, 5*time.Minute)
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost, global, credential) {
			r.Use(mw)
		}
		logger.Info("production security enabled")
	} else {
		limiter := middleware.NewRedisRateLimiter(rdb, middleware.RateLimitMaxRequests,
			middleware.RateLimitWindow, middleware.BlockedIPDuration, logger)
		r.Use(limiter.Middleware)
	}

	routes.SetupRoutes(r, h, sessions)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// emailSender falls back to logging codes outside production. In production
// a missing transport leaves the channel unrouted so sends fail.
func emailSender(cfg *config.Config, logger *zap.Logger) services.Sender {
	if cfg.EmailConfigured() {
		return services.NewEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	}
	if cfg.IsProduction() {
		logger.Warn("SMTP not configured: email codes cannot be delivered")
		return nil
	}
	return services.NewLogSender(string(models.ChannelEmail), logger)
}

func smsSender(cfg *config.Config, logger *zap.Logger) services.Sender {
	if cfg.SMSConfigured() {
		return services.NewSMSSender(cfg.TwilioBaseURL, cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	}
	if cfg.IsProduction() {
		logger.Warn("Twilio not configured: SMS codes cannot be delivered")
		return nil
	}
	return services.NewLogSender(string(models.ChannelSMS), logger)
}

func buildProviders(ctx context.Context, cfg *config.Config) []identity.Provider {
	var out []identity.Provider
	keys := identity.NewKeyCache(ctx)
	if cfg.GoogleClientID != "" {
		out = append(out, identity.NewGoogleProvider(cfg.GoogleClientID))
	}
	if cfg.GitHubClientID != "" && cfg.GitHubClientSecret != "" {
		out = append(out, identity.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret,
			cfg.OAuthRedirectURL(models.ProviderGitHub)))
	}
	if cfg.AzureADClientID != "" {
		out = append(out, identity.NewAzureADProvider(keys, cfg.AzureADTenantID, cfg.AzureADClientID))
	}
	if cfg.AppleServiceID != "" {
		out = append(out, identity.NewAppleProvider(keys, cfg.AppleServiceID))
	}
	return out
}
