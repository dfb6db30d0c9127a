package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/andresuchdata/conventicore/internal/repository"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type snapshotRepository struct {
	db *DB
}

func NewSnapshotRepository(db *DB) repository.SnapshotRepository {
	return &snapshotRepository{db: db}
}

func (r *snapshotRepository) SaveTables(ctx context.Context, runID uuid.UUID, period string, tables []domain.Table) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, t := range tables {
			// Replacing the header cascades to the previous rows
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM planning_snapshots WHERE period = $1 AND table_name = $2`, period, t.Name,
			); err != nil {
				return fmt.Errorf("failed to clear snapshot %s: %w", t.Name, err)
			}

			if _, err := tx.ExecContext(ctx, `
				INSERT INTO planning_snapshots (period, table_name, run_id, columns, row_count, created_at)
				VALUES ($1, $2, $3, $4, $5, NOW())
			`, period, t.Name, runID, pq.Array(t.Columns), t.Len()); err != nil {
				return fmt.Errorf("failed to save snapshot %s: %w", t.Name, err)
			}

			if err := insertRows(ctx, tx, period, t); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertRows(ctx context.Context, tx *sql.Tx, period string, t domain.Table) error {
	if t.Len() == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO planning_snapshot_rows (period, table_name, row_no, data)
		VALUES ($1, $2, $3, $4)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, row := range t.Rows {
		payload, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to encode %s row %d: %w", t.Name, i, err)
		}
		if _, err := stmt.ExecContext(ctx, period, t.Name, i, payload); err != nil {
			return fmt.Errorf("failed to insert %s row %d: %w", t.Name, i, err)
		}
	}
	return nil
}

func (r *snapshotRepository) GetTable(ctx context.Context, period, name string) (domain.Table, bool, error) {
	var columns pq.StringArray
	err := r.db.QueryRowContext(ctx, `
		SELECT columns FROM planning_snapshots WHERE period = $1 AND table_name = $2
	`, period, name).Scan(&columns)
	if err == sql.ErrNoRows {
		return domain.Table{}, false, nil
	}
	if err != nil {
		return domain.Table{}, false, fmt.Errorf("error getting snapshot %s: %w", name, err)
	}

	var payloads [][]byte
	if err := r.db.SelectContext(ctx, &payloads, `
		SELECT data FROM planning_snapshot_rows
		WHERE period = $1 AND table_name = $2
		ORDER BY row_no
	`, period, name); err != nil {
		return domain.Table{}, false, fmt.Errorf("error getting snapshot rows %s: %w", name, err)
	}

	t := domain.NewTable(name, columns...)
	for i, p := range payloads {
		var row domain.Row
		if err := json.Unmarshal(p, &row); err != nil {
			return domain.Table{}, false, fmt.Errorf("failed to decode %s row %d: %w", name, i, err)
		}
		t.Append(row)
	}
	return t, true, nil
}

func (r *snapshotRepository) ListSnapshots(ctx context.Context, period string) ([]repository.SnapshotInfo, error) {
	var infos []repository.SnapshotInfo
	if err := r.db.SelectContext(ctx, &infos, `
		SELECT run_id, period, table_name, row_count, created_at
		FROM planning_snapshots
		WHERE period = $1
		ORDER BY table_name
	`, period); err != nil {
		return nil, fmt.Errorf("error listing snapshots: %w", err)
	}
	return infos, nil
}

func (r *snapshotRepository) ListPeriods(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 12
	}

	var periods []string
	if err := r.db.SelectContext(ctx, &periods, `
		SELECT period FROM planning_snapshots
		GROUP BY period
		ORDER BY MAX(created_at) DESC
		LIMIT $1
	`, limit); err != nil {
		return nil, fmt.Errorf("error listing periods: %w", err)
	}
	return periods, nil
}
