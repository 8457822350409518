package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/AnshRaj112/partsdesk-auth/internal/models"
	"github.com/DATA-DOG/go-sqlmock"
)

func newMock(t *testing.T) (sqlmock.Sqlmock, *OtpStore, *UserStore) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return mock, NewOtpStore(db), NewUserStore(db)
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestOtpStore_InsertOtp(t *testing.T) {
	mock, store, _ := newMock(t)
	o := &models.OtpCode{
		Target: "5551234", Channel: models.ChannelSMS, Purpose: models.PurposeLogin,
		Code: "482913", CreatedAt: now, ExpiresAt: now.Add(models.OtpTTL),
	}
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO otp_codes")).
		WithArgs("5551234", "sms", "login", "482913", now, now.Add(models.OtpTTL)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	if err := store.InsertOtp(context.Background(), o); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if o.ID != 7 {
		t.Fatalf("expected id 7, got %d", o.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestOtpStore_FindLatestUnconsumed(t *testing.T) {
	mock, store, _ := newMock(t)
	cols := []string{"id", "target", "channel", "purpose", "code", "created_at", "expires_at", "consumed", "consumed_at"}

	mock.ExpectQuery(`ORDER BY created_at DESC, id DESC`).
		WithArgs("5551234", "login", "482913", now).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(3), "5551234", "sms", "login", "482913", now, now.Add(models.OtpTTL), false, nil))

	o, err := store.FindLatestUnconsumed(context.Background(), "5551234", models.PurposeLogin, "482913", now)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if o.ID != 3 || o.Channel != models.ChannelSMS || o.ConsumedAt != nil {
		t.Fatalf("unexpected row %+v", o)
	}

	mock.ExpectQuery(`FROM otp_codes`).
		WithArgs("5551234", "login", "000000", now).
		WillReturnRows(sqlmock.NewRows(cols))
	if _, err := store.FindLatestUnconsumed(context.Background(), "5551234", models.PurposeLogin, "000000", now); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestOtpStore_ConsumeOtp(t *testing.T) {
	mock, store, _ := newMock(t)
	q := regexp.QuoteMeta("WHERE id = $1 AND consumed = FALSE AND expires_at > $2")

	mock.ExpectExec(q).WithArgs(int64(3), now).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(int64(3), now).WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := store.ConsumeOtp(context.Background(), 3, now)
	if err != nil || !won {
		t.Fatalf("first consume: %v %v", won, err)
	}
	won, err = store.ConsumeOtp(context.Background(), 3, now)
	if err != nil || won {
		t.Fatalf("second consume must lose: %v %v", won, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestOtpStore_HasConsumedSince(t *testing.T) {
	mock, store, _ := newMock(t)
	since := now.Add(-10 * time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("forgot", sqlmock.AnyArg(), "314159", since).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := store.HasConsumedSince(context.Background(), []string{"a@x.io", "5551234"}, models.PurposeForgot, "314159", since)
	if err != nil || !ok {
		t.Fatalf("expected true, got %v %v", ok, err)
	}

	ok, err = store.HasConsumedSince(context.Background(), nil, models.PurposeForgot, "314159", since)
	if err != nil || ok {
		t.Fatalf("no targets must short-circuit, got %v %v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
