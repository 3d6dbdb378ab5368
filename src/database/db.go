package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Database holds the PostgreSQL connection pool
type Database struct {
	pool *pgxpool.Pool
}

// schema is applied on startup. Statements are idempotent so restarting the
// service against an existing database is safe.
const schema = `
CREATE TABLE IF NOT EXISTS instances (
	id          TEXT PRIMARY KEY,
	user_id     UUID NOT NULL,
	name        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'created'
		CHECK (status IN ('created', 'connected', 'disconnected')),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_instances_user_id ON instances (user_id);

CREATE TABLE IF NOT EXISTS api_keys (
	id                     UUID PRIMARY KEY,
	user_id                UUID NOT NULL,
	name                   TEXT NOT NULL,
	key_hash               TEXT NOT NULL,
	salt                   TEXT NOT NULL UNIQUE,
	last8                  TEXT NOT NULL,
	status                 TEXT NOT NULL DEFAULT 'active'
		CHECK (status IN ('active', 'revoked')),
	expires_at             TIMESTAMPTZ,
	last_used_at           TIMESTAMPTZ,
	ip_allowlist           TEXT[] NOT NULL DEFAULT '{}',
	rate_limit_per_minute  INTEGER,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_api_keys_user_id ON api_keys (user_id);

CREATE TABLE IF NOT EXISTS api_key_scopes (
	api_key_id   UUID NOT NULL REFERENCES api_keys (id) ON DELETE CASCADE,
	instance_id  TEXT NOT NULL REFERENCES instances (id) ON DELETE CASCADE,
	PRIMARY KEY (api_key_id, instance_id)
);
`

// New creates a new database connection
func New(ctx context.Context, databaseURL string) (*Database, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Configure connection pool
	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	db := &Database{pool: pool}

	if err := db.initializeSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool
func (db *Database) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// GetPool returns the connection pool
func (db *Database) GetPool() *pgxpool.Pool {
	return db.pool
}

// initializeSchema applies the embedded schema
func (db *Database) initializeSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	log.Info().Msg("database schema initialized")
	return nil
}

// Health checks if the database is healthy
func (db *Database) Health(ctx context.Context) error {
	if db == nil || db.pool == nil {
		return fmt.Errorf("database connection not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return db.pool.Ping(ctx)
}
