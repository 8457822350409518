package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/AnshRaj112/partsdesk-auth/internal/metrics"
	"github.com/AnshRaj112/partsdesk-auth/internal/models"
	"github.com/AnshRaj112/partsdesk-auth/pkg/utils"
	"go.uber.org/zap"
)

const otpDigits = 6

// OtpStore is the persistence contract of the ledger. Implementations must
// make ConsumeOtp a single conditional update.
type OtpStore interface {
	InsertOtp(ctx context.Context, o *models.OtpCode) error
	FindLatestUnconsumed(ctx context.Context, target string, purpose models.Purpose, code string, now time.Time) (*models.OtpCode, error)
	ConsumeOtp(ctx context.Context, id int64, now time.Time) (bool, error)
	HasConsumedSince(ctx context.Context, targets []string, purpose models.Purpose, code string, since time.Time) (bool, error)
}

// OtpGuard throttles issuance and verification per target and purpose.
type OtpGuard interface {
	BeforeIssue(ctx context.Context, target string, purpose models.Purpose) error
	BeforeVerify(ctx context.Context, target string, purpose models.Purpose) error
	AfterVerify(ctx context.Context, target string, purpose models.Purpose, ok bool) error
}

// CodeGenerator returns a fresh numeric code.
type CodeGenerator func() (string, error)

// OtpLedger issues, stores and consumes one-time codes.
type OtpLedger struct {
	store      OtpStore
	dispatcher DeliveryDispatcher
	guard      OtpGuard
	generate   CodeGenerator
	now        func() time.Time
	logger     *zap.Logger
}

type LedgerOption func(*OtpLedger)

func WithLedgerClock(now func() time.Time) LedgerOption {
	return func(l *OtpLedger) { l.now = now }
}

func WithCodeGenerator(g CodeGenerator) LedgerOption {
	return func(l *OtpLedger) { l.generate = g }
}

func WithOtpGuard(g OtpGuard) LedgerOption {
	return func(l *OtpLedger) { l.guard = g }
}

func NewOtpLedger(store OtpStore, dispatcher DeliveryDispatcher, logger *zap.Logger, opts ...LedgerOption) *OtpLedger {
	l := &OtpLedger{
		store:      store,
		dispatcher: dispatcher,
		generate:   RandomCode,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}
	return l
}

// RandomCode draws a zero-padded 6-digit code from crypto/rand.
func RandomCode() (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(otpDigits), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

// Issue persists a new code and then hands it to the dispatcher. When
// delivery fails the stored row is returned together with an error matching
// ErrDeliveryFailure; the row stays valid.
func (l *OtpLedger) Issue(ctx context.Context, target string, channel models.Channel, purpose models.Purpose) (*models.OtpCode, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, &utils.ValidationError{Field: "target", Message: "target is required"}
	}
	if !channel.Valid() {
		return nil, &utils.ValidationError{Field: "channel", Message: "channel must be email or sms"}
	}
	if !purpose.Valid() {
		return nil, &utils.ValidationError{Field: "purpose", Message: "purpose must be login or forgot"}
	}

	if l.guard != nil {
		if err := l.guard.BeforeIssue(ctx, target, purpose); err != nil {
			if errors.Is(err, ErrTooManyRequests) {
				metrics.OtpThrottledTotal.WithLabelValues("issue").Inc()
			}
			return nil, err
		}
	}

	code, err := l.generate()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	now := l.now()
	row := &models.OtpCode{
		Target:    target,
		Channel:   channel,
		Purpose:   purpose,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(models.OtpTTL),
	}
	if err := l.store.InsertOtp(ctx, row); err != nil {
		return nil, err
	}
	metrics.OtpIssuedTotal.WithLabelValues(string(channel), string(purpose)).Inc()

	err = l.dispatcher.Send(ctx, OtpMessage{
		Channel:   channel,
		Target:    target,
		Code:      code,
		Purpose:   purpose,
		ExpiresIn: models.OtpTTL,
	})
	if err != nil {
		metrics.OtpDeliveryFailuresTotal.WithLabelValues(string(channel)).Inc()
		l.logger.Warn("otp delivery failed",
			zap.Int64("otp_id", row.ID),
			zap.String("channel", string(channel)),
			zap.String("purpose", string(purpose)),
			zap.Error(err),
		)
		return row, fmt.Errorf("%w: %w", ErrDeliveryFailure, err)
	}
	return row, nil
}

// Verify consumes the newest unconsumed, unexpired row matching target,
// purpose and code. Any miss is reported as ErrInvalidOrExpiredCode.
func (l *OtpLedger) Verify(ctx context.Context, target string, purpose models.Purpose, code string) error {
	_, err := l.VerifyAny(ctx, []string{target}, purpose, code)
	return err
}

// VerifyAny tries each non-empty target in order and returns the first one
// whose code was consumed. The attempt is charged once to every candidate
// and a success clears all of them.
func (l *OtpLedger) VerifyAny(ctx context.Context, targets []string, purpose models.Purpose, code string) (string, error) {
	var candidates []string
	for _, t := range targets {
		if t != "" {
			candidates = append(candidates, t)
		}
	}

	if l.guard != nil {
		for _, t := range candidates {
			if err := l.guard.BeforeVerify(ctx, t, purpose); err != nil {
				if errors.Is(err, ErrTooManyRequests) {
					metrics.OtpThrottledTotal.WithLabelValues("verify").Inc()
				}
				return "", err
			}
		}
	}

	var won string
	for _, t := range candidates {
		ok, err := l.consume(ctx, t, purpose, code)
		if err != nil {
			metrics.OtpVerificationsTotal.WithLabelValues(string(purpose), "error").Inc()
			return "", err
		}
		if ok {
			won = t
			break
		}
	}

	if l.guard != nil {
		for _, t := range candidates {
			if gErr := l.guard.AfterVerify(ctx, t, purpose, won != ""); gErr != nil {
				l.logger.Warn("otp guard update failed", zap.Error(gErr))
			}
		}
	}

	if won == "" {
		metrics.OtpVerificationsTotal.WithLabelValues(string(purpose), "rejected").Inc()
		return "", ErrInvalidOrExpiredCode
	}
	metrics.OtpVerificationsTotal.WithLabelValues(string(purpose), "ok").Inc()
	return won, nil
}

func (l *OtpLedger) consume(ctx context.Context, target string, purpose models.Purpose, code string) (bool, error) {
	now := l.now()
	row, err := l.store.FindLatestUnconsumed(ctx, target, purpose, code, now)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	// A concurrent verifier may win between the read and this update; the
	// conditional update then affects no row and this call loses.
	return l.store.ConsumeOtp(ctx, row.ID, now)
}

// HasRecentConsumption reports whether a code for one of targets was
// consumed for purpose and expires after now-window. Empty targets are ignored.
func (l *OtpLedger) HasRecentConsumption(ctx context.Context, targets []string, purpose models.Purpose, code string, window time.Duration) (bool, error) {
	var candidates []string
	for _, t := range targets {
		if t != "" {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return false, nil
	}
	return l.store.HasConsumedSince(ctx, candidates, purpose, code, l.now().Add(-window))
}
