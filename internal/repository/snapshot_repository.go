package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/google/uuid"
)

// SnapshotInfo describes one stored output table.
type SnapshotInfo struct {
	RunID     uuid.UUID `json:"run_id" db:"run_id"`
	Period    string    `json:"period" db:"period"`
	TableName string    `json:"table_name" db:"table_name"`
	RowCount  int       `json:"row_count" db:"row_count"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SnapshotRepository persists the flat output tables of planning runs. Saving a table for a period
// replaces what an earlier run stored for it.
type SnapshotRepository interface {
	SaveTables(ctx context.Context, runID uuid.UUID, period string, tables []domain.Table) error
	GetTable(ctx context.Context, period, name string) (domain.Table, bool, error)
	ListSnapshots(ctx context.Context, period string) ([]SnapshotInfo, error)
	ListPeriods(ctx context.Context, limit int) ([]string, error)
}
