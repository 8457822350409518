package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AnshRaj112/partsdesk-auth/internal/models"
	"github.com/lib/pq"
)

// OtpStore persists the one-time code ledger in PostgreSQL.
type OtpStore struct {
	db *sql.DB
}

func NewOtpStore(db *sql.DB) *OtpStore {
	return &OtpStore{db: db}
}

const otpColumns = `id, target, channel, purpose, code, created_at, expires_at, consumed, consumed_at`

// InsertOtp writes the complete row in one statement and fills in its id.
func (s *OtpStore) InsertOtp(ctx context.Context, o *models.OtpCode) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO otp_codes (target, channel, purpose, code, created_at, expires_at, consumed)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		RETURNING id
	`, o.Target, string(o.Channel), string(o.Purpose), o.Code, o.CreatedAt, o.ExpiresAt).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("insert otp: %w", err)
	}
	return nil
}

// FindLatestUnconsumed returns the newest row matching the verification predicate.
func (s *OtpStore) FindLatestUnconsumed(ctx context.Context, target string, purpose models.Purpose, code string, now time.Time) (*models.OtpCode, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+otpColumns+`
		FROM otp_codes
		WHERE target = $1 AND purpose = $2 AND code = $3 AND consumed = FALSE AND expires_at > $4
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, target, string(purpose), code, now)

	o, err := scanOtp(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find otp: %w", err)
	}
	return o, nil
}

// ConsumeOtp flips consumed to true only if it is still false and the row has
// not expired. It reports whether this call performed the transition.
func (s *OtpStore) ConsumeOtp(ctx context.Context, id int64, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE otp_codes SET consumed = TRUE, consumed_at = $2
		WHERE id = $1 AND consumed = FALSE AND expires_at > $2
	`, id, now)
	if err != nil {
		return false, fmt.Errorf("consume otp: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume otp: %w", err)
	}
	return n == 1, nil
}

// HasConsumedSince reports whether a consumed row exists for any of targets
// with the given purpose and code whose expiry is after since.
func (s *OtpStore) HasConsumedSince(ctx context.Context, targets []string, purpose models.Purpose, code string, since time.Time) (bool, error) {
	if len(targets) == 0 {
		return false, nil
	}
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM otp_codes
			WHERE consumed = TRUE AND purpose = $1 AND target = ANY($2) AND code = $3 AND expires_at > $4
		)
	`, string(purpose), pq.Array(targets), code, since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check consumed otp: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOtp(row rowScanner) (*models.OtpCode, error) {
	var o models.OtpCode
	var channel, purpose string
	var consumedAt sql.NullTime
	if err := row.Scan(&o.ID, &o.Target, &channel, &purpose, &o.Code, &o.CreatedAt, &o.ExpiresAt, &o.Consumed, &consumedAt); err != nil {
		return nil, err
	}
	o.Channel = models.Channel(channel)
	o.Purpose = models.Purpose(purpose)
	if consumedAt.Valid {
		t := consumedAt.Time
		o.ConsumedAt = &t
	}
	return &o, nil
}
