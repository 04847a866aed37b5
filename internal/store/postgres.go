package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTablesSQL = `CREATE TABLE IF NOT EXISTS core_tables (
	name       TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Postgres keeps each table as one JSONB row in core_tables
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres-backed Store
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates core_tables if it does not exist
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, createTablesSQL)
	return err
}

func (p *Postgres) Load(ctx context.Context, table string, dst any) (bool, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx, "SELECT data FROM core_tables WHERE name = $1", table).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", table, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", table, err)
	}
	return true, nil
}

func (p *Postgres) Save(ctx context.Context, table string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", table, err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO core_tables (name, data, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		table, raw)
	if err != nil {
		return fmt.Errorf("save %s: %w", table, err)
	}
	return nil
}
