package pipeline

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/google/uuid"
)

// Repository handles database operations for run tracking and the exception log.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new pipeline repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// SavePipelineRun inserts or updates a run record.
func (r *Repository) SavePipelineRun(ctx context.Context, run *PipelineRun) error {
	query := `
		INSERT INTO pipeline_runs (id, period, status, started_at, completed_at, error_message)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    completed_at = EXCLUDED.completed_at,
		    error_message = EXCLUDED.error_message
	`

	_, err := r.db.ExecContext(
		ctx, query,
		run.ID, run.Period, run.Status, run.StartedAt, run.CompletedAt, run.ErrorMessage,
	)
	return err
}

// GetPipelineRun retrieves a pipeline run by ID
func (r *Repository) GetPipelineRun(ctx context.Context, id uuid.UUID) (*PipelineRun, error) {
	query := `
		SELECT id, period, status, started_at, completed_at, error_message
		FROM pipeline_runs
		WHERE id = $1
	`

	run := &PipelineRun{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.Period, &run.Status, &run.StartedAt, &run.CompletedAt, &run.ErrorMessage,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// GetLatestRun retrieves the most recent run for a period.
func (r *Repository) GetLatestRun(ctx context.Context, period string) (*PipelineRun, error) {
	query := `
		SELECT id, period, status, started_at, completed_at, error_message
		FROM pipeline_runs
		WHERE period = $1
		ORDER BY started_at DESC
		LIMIT 1
	`

	run := &PipelineRun{}
	err := r.db.QueryRowContext(ctx, query, period).Scan(
		&run.ID, &run.Period, &run.Status, &run.StartedAt, &run.CompletedAt, &run.ErrorMessage,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// SaveExceptions appends a run's exception log in one transaction.
func (r *Repository) SaveExceptions(ctx context.Context, runID uuid.UUID, excs []domain.ExceptionRecord) error {
	if len(excs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pipeline_exceptions (
			run_id, logged_at, exception_type, severity, key, sku, sources, detail, data, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range excs {
		if _, err := stmt.ExecContext(ctx,
			runID, e.LoggedAt, e.Kind, e.Severity, e.Key, e.SKU, e.SourcesLabel(), e.Detail, e.Record, e.Status,
		); err != nil {
			return fmt.Errorf("failed to insert exception %s: %w", e.Key, err)
		}
	}

	return tx.Commit()
}

// GetExceptions retrieves the exception log of a run.
func (r *Repository) GetExceptions(ctx context.Context, runID uuid.UUID) ([]domain.ExceptionRecord, error) {
	query := `
		SELECT logged_at, exception_type, severity, key, sku, sources, detail, data, status
		FROM pipeline_exceptions
		WHERE run_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var excs []domain.ExceptionRecord
	for rows.Next() {
		var e domain.ExceptionRecord
		var sources string
		if err := rows.Scan(
			&e.LoggedAt, &e.Kind, &e.Severity, &e.Key, &e.SKU, &sources, &e.Detail, &e.Record, &e.Status,
		); err != nil {
			return nil, err
		}
		e.Sources = domain.ParseSources(sources)
		excs = append(excs, e)
	}

	return excs, rows.Err()
}
