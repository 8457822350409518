package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/AnshRaj112/partsdesk-auth/internal/metrics"
	"github.com/AnshRaj112/partsdesk-auth/internal/models"
	"github.com/AnshRaj112/partsdesk-auth/pkg/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	StrategyPassword = "password"
	StrategyOtp      = "otp"
	StrategySignup   = "signup"
)

// AuditRecorder stores authentication decisions. *database.AuditLog implements it.
type AuditRecorder interface {
	Record(ctx context.Context, event models.AuthEvent) error
}

type nopAudit struct{}

func (nopAudit) Record(context.Context, models.AuthEvent) error { return nil }

// Authenticator turns a credential (password, code or provider assertion)
// into an approved user. Issuing a session is left to the caller.
type Authenticator struct {
	users  UserStore
	creds  *CredentialVerifier
	ledger *OtpLedger
	audit  AuditRecorder
	now    func() time.Time
	logger *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

type AuthOption func(*Authenticator)

func WithAuditRecorder(a AuditRecorder) AuthOption {
	return func(x *Authenticator) {
		if a != nil {
			x.audit = a
		}
	}
}

func WithAuthClock(now func() time.Time) AuthOption {
	return func(x *Authenticator) { x.now = now }
}

func NewAuthenticator(users UserStore, creds *CredentialVerifier, ledger *OtpLedger, logger *zap.Logger, opts ...AuthOption) *Authenticator {
	a := &Authenticator{
		users:  users,
		creds:  creds,
		ledger: ledger,
		audit:  nopAudit{},
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	return a
}

// LoginWithPassword fails with ErrInvalidCredentials whether the identifier is
// unknown, the account has no password, or the password is wrong.
func (a *Authenticator) LoginWithPassword(ctx context.Context, identifier, password string) (*models.User, error) {
	user, err := a.creds.ResolveUser(ctx, identifier)
	if errors.Is(err, ErrNotFound) {
		a.burnHash(password)
		a.finish(ctx, StrategyPassword, nil, identifier, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		a.finish(ctx, StrategyPassword, nil, identifier, err)
		return nil, err
	}
	if !user.HasPassword() {
		a.burnHash(password)
	}
	if !a.creds.CheckPassword(user, password) {
		a.finish(ctx, StrategyPassword, user, identifier, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}
	a.finish(ctx, StrategyPassword, user, identifier, nil)
	return user, nil
}

// burnHash spends the same work as a real comparison so unknown identifiers
// do not answer faster than wrong passwords.
func (a *Authenticator) burnHash(password string) {
	a.dummyOnce.Do(func() {
		h, err := utils.HashPassword("partsdesk-unused-password")
		if err == nil {
			a.dummyHash = h
		}
	})
	if a.dummyHash != "" {
		_, _ = utils.VerifyPassword(password, a.dummyHash)
	}
}

// LoginWithOtp consumes a login code for target and returns the user owning
// target, creating one on first use.
func (a *Authenticator) LoginWithOtp(ctx context.Context, target, code string) (*models.User, error) {
	target = strings.TrimSpace(target)
	if err := a.ledger.Verify(ctx, target, models.PurposeLogin, code); err != nil {
		a.finish(ctx, StrategyOtp, nil, target, err)
		return nil, err
	}

	user, err := a.users.FindByEmailOrPhone(ctx, target)
	if errors.Is(err, ErrNotFound) {
		user, err = a.provisionForTarget(ctx, target)
	}
	a.finish(ctx, StrategyOtp, user, target, err)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (a *Authenticator) provisionForTarget(ctx context.Context, target string) (*models.User, error) {
	now := a.now().UTC()
	u := &models.User{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		Role:      models.RoleCustomer,
	}
	if utils.IsEmailTarget(target) {
		u.Email = models.StringPtr(target)
	} else {
		u.Phone = models.StringPtr(target)
	}

	err := a.users.CreateUser(ctx, u)
	if errors.Is(err, ErrConflict) {
		// Another request provisioned the same target first.
		return a.users.FindByEmailOrPhone(ctx, target)
	}
	if err != nil {
		return nil, err
	}
	metrics.UsersProvisionedTotal.WithLabelValues(StrategyOtp).Inc()
	a.logger.Info("user provisioned", zap.String("user_id", u.ID.String()), zap.String("source", StrategyOtp))
	return u, nil
}

// LoginWithIdentity maps a verified provider assertion onto a local user.
// An existing account is linked by email only when the provider verified it.
func (a *Authenticator) LoginWithIdentity(ctx context.Context, id models.IdentityAssertion) (*models.User, error) {
	if id.Provider == "" || id.Subject == "" {
		return nil, ErrUnauthorized
	}
	user, err := a.loginWithIdentity(ctx, id)
	a.finish(ctx, id.Provider, user, id.Subject, err)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (a *Authenticator) loginWithIdentity(ctx context.Context, id models.IdentityAssertion) (*models.User, error) {
	user, err := a.users.FindByProvider(ctx, id.Provider, id.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	email := strings.TrimSpace(id.Email)
	trusted := email != "" && id.EmailVerified

	if trusted {
		user, err = a.users.FindByEmailOrPhone(ctx, email)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	if user == nil {
		now := a.now().UTC()
		user = &models.User{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
			Name:      models.StringPtr(strings.TrimSpace(id.Name)),
			Role:      models.RoleCustomer,
		}
		if trusted {
			user.Email = models.StringPtr(email)
		}
		err = a.users.CreateUser(ctx, user)
		switch {
		case errors.Is(err, ErrConflict) && trusted:
			if user, err = a.users.FindByEmailOrPhone(ctx, email); err != nil {
				return nil, err
			}
		case err != nil:
			return nil, err
		default:
			metrics.UsersProvisionedTotal.WithLabelValues(id.Provider).Inc()
		}
	}

	acct := &models.OAuthAccount{
		ID:          uuid.New(),
		UserID:      user.ID,
		Provider:    id.Provider,
		ProviderUID: id.Subject,
		Email:       models.StringPtr(email),
		CreatedAt:   a.now().UTC(),
	}
	if err := a.users.LinkProvider(ctx, acct); err != nil {
		return nil, err
	}
	// A concurrent first login may have linked the subject elsewhere; the
	// stored link is authoritative.
	return a.users.FindByProvider(ctx, id.Provider, id.Subject)
}

// SignupInput is the self-registration payload.
type SignupInput struct {
	Username string
	Email    string
	Phone    string
	Password string
	Name     string
}

// Register creates a password account. At least one identifier is required.
func (a *Authenticator) Register(ctx context.Context, in SignupInput) (*models.User, error) {
	email := strings.TrimSpace(in.Email)
	phone := strings.TrimSpace(in.Phone)
	username := strings.TrimSpace(in.Username)

	if email == "" && phone == "" && username == "" {
		return nil, &utils.ValidationError{Field: "identifier", Message: "email, phone or username is required"}
	}
	if username != "" {
		if err := utils.ValidateUsername(username); err != nil {
			return nil, err
		}
		username = utils.NormalizeUsername(username)
	}
	if email != "" && !utils.IsEmailTarget(email) {
		return nil, &utils.ValidationError{Field: "email", Message: "Invalid email address"}
	}
	if phone != "" {
		if err := utils.ValidateIdentifier("phone", phone); err != nil {
			return nil, err
		}
	}
	if err := utils.ValidatePassword("password", in.Password); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	now := a.now().UTC()
	u := &models.User{
		ID:           uuid.New(),
		CreatedAt:    now,
		UpdatedAt:    now,
		Name:         models.StringPtr(strings.TrimSpace(in.Name)),
		Email:        models.StringPtr(email),
		Phone:        models.StringPtr(phone),
		Username:     models.StringPtr(username),
		Role:         models.RoleCustomer,
		PasswordHash: &hash,
	}
	err = a.users.CreateUser(ctx, u)
	a.finish(ctx, StrategySignup, u, firstNonEmpty(username, email, phone), err)
	if err != nil {
		return nil, err
	}
	metrics.UsersProvisionedTotal.WithLabelValues(StrategySignup).Inc()
	return u, nil
}

func (a *Authenticator) finish(ctx context.Context, strategy string, user *models.User, subject string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidOrExpiredCode), errors.Is(err, ErrTooManyRequests), errors.Is(err, ErrConflict):
		result = "rejected"
	default:
		result = "error"
	}
	metrics.LoginsTotal.WithLabelValues(strategy, result).Inc()

	ev := models.AuthEvent{
		CreatedAt: a.now().UTC(),
		Kind:      "login",
		Strategy:  strategy,
		Subject:   subject,
		Success:   err == nil,
	}
	if strategy == StrategySignup {
		ev.Kind = "signup"
	}
	if user != nil && err == nil {
		ev.UserID = user.ID.String()
	}
	if err != nil {
		ev.Reason = err.Error()
	}
	if rErr := a.audit.Record(ctx, ev); rErr != nil {
		a.logger.Warn("audit record failed", zap.String("strategy", strategy), zap.Error(rErr))
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
