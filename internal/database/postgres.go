package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// ConnectPostgres opens the PostgreSQL pool, checks it and makes sure the
// schema exists.
func ConnectPostgres(ctx context.Context, postgresURI string) (*sql.DB, error) {
	db, err := sql.Open("postgres", postgresURI)
	if err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err = InitPostgresTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init tables: %w", err)
	}
	return db, nil
}

// InitPostgresTables creates all necessary tables if they don't exist
func InitPostgresTables(ctx context.Context, db *sql.DB) error {
	queries := []string{
		// Users: email, phone and username are each optional but unique when set.
		// NULLs do not collide, which lets OTP-only and OAuth-only accounts coexist.
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			name VARCHAR(255),
			email VARCHAR(255) UNIQUE,
			phone VARCHAR(50) UNIQUE,
			username VARCHAR(50) UNIQUE,
			password_hash VARCHAR(255),
			role VARCHAR(20) NOT NULL DEFAULT 'customer'
		)`,

		// One-time code ledger. Append-only; id gives insertion order for ties on created_at.
		`CREATE TABLE IF NOT EXISTS otp_codes (
			id BIGSERIAL PRIMARY KEY,
			target VARCHAR(255) NOT NULL,
			channel VARCHAR(10) NOT NULL CHECK (channel IN ('email', 'sms')),
			purpose VARCHAR(10) NOT NULL CHECK (purpose IN ('login', 'forgot')),
			code CHAR(6) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			consumed BOOLEAN NOT NULL DEFAULT FALSE,
			consumed_at TIMESTAMPTZ
		)`,

		// Delegated identity links
		`CREATE TABLE IF NOT EXISTS oauth_accounts (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			provider VARCHAR(50) NOT NULL,
			provider_uid VARCHAR(255) NOT NULL,
			email VARCHAR(255),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(provider, provider_uid)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at, id)`,
		`CREATE INDEX IF NOT EXISTS idx_otp_codes_lookup ON otp_codes(target, purpose, code, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_otp_codes_expires_at ON otp_codes(expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_oauth_accounts_user_id ON oauth_accounts(user_id)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}
