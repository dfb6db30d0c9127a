package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS pipeline_runs (
		id            UUID PRIMARY KEY,
		period        TEXT NOT NULL,
		status        TEXT NOT NULL,
		started_at    TIMESTAMPTZ NOT NULL,
		completed_at  TIMESTAMPTZ,
		error_message TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pipeline_runs_period ON pipeline_runs (period, started_at DESC)`,
	`CREATE TABLE IF NOT EXISTS pipeline_exceptions (
		id             BIGSERIAL PRIMARY KEY,
		run_id         UUID NOT NULL REFERENCES pipeline_runs (id) ON DELETE CASCADE,
		logged_at      TIMESTAMPTZ NOT NULL,
		exception_type TEXT NOT NULL,
		severity       TEXT NOT NULL,
		key            TEXT NOT NULL,
		sku            TEXT NOT NULL DEFAULT '',
		sources        TEXT NOT NULL DEFAULT '',
		detail         TEXT NOT NULL DEFAULT '',
		data           TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pipeline_exceptions_run ON pipeline_exceptions (run_id)`,
	`CREATE TABLE IF NOT EXISTS planning_snapshots (
		period     TEXT NOT NULL,
		table_name TEXT NOT NULL,
		run_id     UUID NOT NULL,
		columns    TEXT[] NOT NULL,
		row_count  INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (period, table_name)
	)`,
	`CREATE TABLE IF NOT EXISTS planning_snapshot_rows (
		period     TEXT NOT NULL,
		table_name TEXT NOT NULL,
		row_no     INTEGER NOT NULL,
		data       JSONB NOT NULL,
		PRIMARY KEY (period, table_name, row_no),
		FOREIGN KEY (period, table_name) REFERENCES planning_snapshots (period, table_name) ON DELETE CASCADE
	)`,
}

// Migrate creates the planning tables when they do not exist.
func (db *DB) Migrate(ctx context.Context) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		for i, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("schema statement %d: %w", i+1, err)
			}
		}
		log.Info().Int("statements", len(schema)).Msg("database schema up to date")
		return nil
	})
}
