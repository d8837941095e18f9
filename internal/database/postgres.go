package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// ConnectPostgres opens the pool and verifies it. The schema is created
// separately by InitPostgresTables.
func ConnectPostgres(ctx context.Context, postgresURI string, log *zap.SugaredLogger) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", postgresURI)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	log.Info("connected to PostgreSQL")
	return db, nil
}

// InitPostgresTables creates all tables, seeds the community_stats singleton
// and installs increment_total_bottles(). Every statement is idempotent.
func InitPostgresTables(ctx context.Context, db *sqlx.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id UUID PRIMARY KEY,
			email VARCHAR(320) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS profiles (
			id UUID PRIMARY KEY REFERENCES accounts(id) ON DELETE CASCADE,
			points INTEGER NOT NULL DEFAULT 0 CHECK (points >= 0),
			last_login TIMESTAMPTZ
		)`,

		`CREATE TABLE IF NOT EXISTS community_stats (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			total_bottles_recycled BIGINT NOT NULL DEFAULT 0,
			active_recyclers BIGINT NOT NULL DEFAULT 0
		)`,
		`INSERT INTO community_stats (id) VALUES (1) ON CONFLICT (id) DO NOTHING`,

		`CREATE TABLE IF NOT EXISTS rewards (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(120) NOT NULL,
			cost INTEGER NOT NULL CHECK (cost > 0),
			icon VARCHAR(64) NOT NULL DEFAULT 'Gift',
			image_url TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rewards_cost ON rewards(cost)`,

		`CREATE OR REPLACE FUNCTION increment_total_bottles() RETURNS BIGINT AS $$
			UPDATE community_stats
			SET total_bottles_recycled = total_bottles_recycled + 1
			WHERE id = 1
			RETURNING total_bottles_recycled
		$$ LANGUAGE SQL`,
	}

	for _, q := range queries {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("init postgres schema: %w", err)
		}
	}
	return nil
}
