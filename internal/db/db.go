package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps pgxpool.Pool for database operations
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates a connection pool and checks that the server answers
func NewDB(ctx context.Context, url string) (*DB, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (d *DB) Close() {
	d.pool.Close()
}

// Pool returns the underlying pgxpool.Pool
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS scenes (
	id      TEXT PRIMARY KEY,
	name    TEXT NOT NULL,
	actions JSONB NOT NULL DEFAULT '[]'
);
CREATE TABLE IF NOT EXISTS schedules (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	cron_expression TEXT NOT NULL,
	command         JSONB NOT NULL,
	enabled         BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE TABLE IF NOT EXISTS command_log (
	id         BIGSERIAL PRIMARY KEY,
	command_id TEXT NOT NULL,
	kind       TEXT NOT NULL,
	target     TEXT NOT NULL,
	status     TEXT NOT NULL,
	message    TEXT NOT NULL,
	attempts   INT NOT NULL,
	at         TIMESTAMPTZ NOT NULL
);`

// EnsureSchema creates the tables used by the queries in this package
func (d *DB) EnsureSchema(ctx context.Context) error {
	_, err := d.pool.Exec(ctx, schemaSQL)
	return err
}
