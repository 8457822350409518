package services

import (
	"context"
	"time"

	"github.com/AnshRaj112/partsdesk-auth/internal/metrics"
	"github.com/AnshRaj112/partsdesk-auth/internal/models"
	"github.com/AnshRaj112/partsdesk-auth/pkg/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ResetWindow bounds how long after issuance a consumed forgot code still
// authorizes a password change.
const ResetWindow = 10 * time.Minute

// SessionRevoker drops every live session of a user.
type SessionRevoker interface {
	InvalidateUserSessions(ctx context.Context, userID uuid.UUID) error
}

// PasswordReset runs the three-step identify / verify / reset flow. No state
// is kept between the steps beyond the ledger rows.
type PasswordReset struct {
	creds    *CredentialVerifier
	ledger   *OtpLedger
	users    UserStore
	sessions SessionRevoker
	audit    AuditRecorder
	now      func() time.Time
	logger   *zap.Logger
}

func NewPasswordReset(creds *CredentialVerifier, ledger *OtpLedger, users UserStore, sessions SessionRevoker, audit AuditRecorder, logger *zap.Logger) *PasswordReset {
	if audit == nil {
		audit = nopAudit{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PasswordReset{
		creds:    creds,
		ledger:   ledger,
		users:    users,
		sessions: sessions,
		audit:    audit,
		now:      time.Now,
		logger:   logger,
	}
}

// Identify sends a forgot code to the user's email or phone.
func (p *PasswordReset) Identify(ctx context.Context, identifier string, channel models.Channel) (err error) {
	defer p.observe(ctx, "identify", nil, &err)

	user, err := p.creds.ResolveUser(ctx, identifier)
	if err != nil {
		return err
	}

	var target string
	switch channel {
	case models.ChannelEmail:
		target = user.EmailAddress()
	case models.ChannelSMS:
		target = user.PhoneNumber()
	default:
		return &utils.ValidationError{Field: "delivery", Message: "delivery must be email or sms"}
	}
	if target == "" {
		return ErrDeliveryUnavailable
	}

	_, err = p.ledger.Issue(ctx, target, channel, models.PurposeForgot)
	return err
}

// Verify consumes a forgot code sent to either the email or the phone of the user.
func (p *PasswordReset) Verify(ctx context.Context, identifier, code string) (err error) {
	var user *models.User
	defer func() { p.observe(ctx, "verify", user, &err) }()

	user, err = p.creds.ResolveUser(ctx, identifier)
	if err != nil {
		return err
	}

	_, err = p.ledger.VerifyAny(ctx, []string{user.EmailAddress(), user.PhoneNumber()}, models.PurposeForgot, code)
	return err
}

// Reset sets a new password once the supplied code was consumed by Verify
// within ResetWindow. Nothing is consumed here.
func (p *PasswordReset) Reset(ctx context.Context, identifier, code, newPassword string) (err error) {
	var user *models.User
	defer func() { p.observe(ctx, "reset", user, &err) }()

	user, err = p.creds.ResolveUser(ctx, identifier)
	if err != nil {
		return err
	}
	if err = utils.ValidatePassword("newPassword", newPassword); err != nil {
		return err
	}

	ok, err := p.ledger.HasRecentConsumption(ctx,
		[]string{user.EmailAddress(), user.PhoneNumber()}, models.PurposeForgot, code, ResetWindow)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCodeNotVerified
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err = p.users.UpdatePasswordHash(ctx, user.ID, hash, p.now().UTC()); err != nil {
		return err
	}

	if p.sessions != nil {
		if sErr := p.sessions.InvalidateUserSessions(ctx, user.ID); sErr != nil {
			p.logger.Warn("revoke sessions after reset failed", zap.String("user_id", user.ID.String()), zap.Error(sErr))
		}
	}
	p.logger.Info("password reset", zap.String("user_id", user.ID.String()))
	return nil
}

func (p *PasswordReset) observe(ctx context.Context, phase string, user *models.User, errp *error) {
	err := *errp
	metrics.PasswordResetsTotal.WithLabelValues(phase, metrics.Result(err)).Inc()

	ev := models.AuthEvent{
		CreatedAt: p.now().UTC(),
		Kind:      "password_reset",
		Strategy:  phase,
		Success:   err == nil,
	}
	if user != nil {
		ev.UserID = user.ID.String()
	}
	if err != nil {
		ev.Reason = err.Error()
	}
	if rErr := p.audit.Record(ctx, ev); rErr != nil {
		p.logger.Warn("audit record failed", zap.String("phase", phase), zap.Error(rErr))
	}
}
