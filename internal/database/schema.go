package database

import (
	"context"
	"fmt"
)

// Schema creates the tables read and written by the repositories. Every
// statement is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS metrics (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	name        TEXT NOT NULL,
	metric_type TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_metrics_user ON metrics (user_id);

CREATE TABLE IF NOT EXISTS entries (
	id         TEXT PRIMARY KEY,
	metric_id  TEXT NOT NULL REFERENCES metrics (id) ON DELETE CASCADE,
	entry_date DATE NOT NULL,
	entry_time TIME,
	value      JSONB NOT NULL DEFAULT '{}'::jsonb,
	tags       TEXT[] NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_entries_metric_date ON entries (metric_id, entry_date);

CREATE TABLE IF NOT EXISTS insight_bundles (
	user_id      TEXT PRIMARY KEY,
	bundle_id    TEXT NOT NULL,
	range_start  DATE NOT NULL,
	range_end    DATE NOT NULL,
	payload      JSONB NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema applies Schema.
func EnsureSchema(ctx context.Context, pool DatabasePool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
