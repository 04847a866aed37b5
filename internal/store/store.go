// Package store persists the core's logical tables (offline queue, notification
// rules, notification history) as JSON arrays, one per table, so pending work
// and rules survive restarts.
package store

import "context"

// Table names
const (
	TableQueue   = "queue"
	TableRules   = "rules"
	TableHistory = "history"
)

// Store loads and saves whole tables
type Store interface {
	// Load decodes the table into dst. It reports false when the table was never saved.
	Load(ctx context.Context, table string, dst any) (bool, error)
	// Save replaces the table with the JSON encoding of v.
	Save(ctx context.Context, table string, v any) error
}
