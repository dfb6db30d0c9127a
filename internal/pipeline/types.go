package pipeline

import (
	"time"

	"github.com/andresuchdata/conventicore/internal/config"
	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/andresuchdata/conventicore/internal/pipeline/replenish"
	"github.com/google/uuid"
)

// Stage names, used in logs, errors and the run summary.
const (
	StageReconcile = "reconcile"
	StageForecast  = "forecast"
	StagePlan      = "plan"
	StagePnL       = "pnl"
)

// Inputs are the fully materialised tables one run works on.
type Inputs struct {
	Master       *domain.SKUMaster
	CountSources []domain.CountSource
	Sales        []domain.SaleRecord
	Events       []domain.EventRecord

	// IngestExceptions are raised while reading the inputs (InvalidSale, LifecycleOrder).
	IngestExceptions []domain.ExceptionRecord
}

// PipelineConfig holds configuration for a planning run.
type PipelineConfig struct {
	Planning    config.Planning
	OutputDir   string // snapshot directory; empty disables CSV snapshots
	WorkerCount int    // concurrent periods in RunPeriods
}

// DefaultPipelineConfig returns the default planning parameters writing snapshots to dir.
func DefaultPipelineConfig(dir string) PipelineConfig {
	return PipelineConfig{
		Planning:    config.DefaultPlanning(),
		OutputDir:   dir,
		WorkerCount: 2,
	}
}

// PipelineStatus represents the current state of a pipeline run
type PipelineStatus string

const (
	StatusPending    PipelineStatus = "pending"
	StatusProcessing PipelineStatus = "processing"
	StatusCompleted  PipelineStatus = "completed"
	StatusPartial    PipelineStatus = "partial" // at least one stage hit a structural error
	StatusFailed     PipelineStatus = "failed"
)

// PipelineRun tracks a single execution of the pipeline for one period.
type PipelineRun struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	Period       string         `json:"period" db:"period"`
	Status       PipelineStatus `json:"status" db:"status"`
	StartedAt    time.Time      `json:"started_at" db:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
	ErrorMessage string         `json:"error_message,omitempty" db:"error_message"`
}

// NewPipelineRun starts a pending run for the period.
func NewPipelineRun(period string) *PipelineRun {
	return &PipelineRun{
		ID:        uuid.New(),
		Period:    period,
		Status:    StatusPending,
		StartedAt: time.Now(),
	}
}

// RunResult is everything one run produced. Outputs of a stage that failed are empty.
type RunResult struct {
	Run        PipelineRun              `json:"run"`
	Ledger     []domain.CountRecord     `json:"ledger"`
	Forecast   []domain.ForecastRow     `json:"forecast"`
	Plan       replenish.Plan           `json:"buy_plan"`
	PnL        []domain.PnLRow          `json:"pnl"`
	Exceptions []domain.ExceptionRecord `json:"exceptions"`
	Summary    RunSummary               `json:"summary"`
	Snapshots  []string                 `json:"snapshots,omitempty"`
}

// Tables flattens every output for snapshots, workbooks and publishing.
func (r *RunResult) Tables() []domain.Table {
	return []domain.Table{
		domain.LedgerTable(r.Ledger),
		domain.ForecastTable(r.Forecast),
		domain.BuyPlanTable(r.Plan.Rows),
		domain.PnLTable(r.PnL),
		domain.ExceptionTable(r.Exceptions),
	}
}

// Table returns the flattened output with the given name.
func (r *RunResult) Table(name string) (domain.Table, bool) {
	for _, t := range r.Tables() {
		if t.Name == name {
			return t, true
		}
	}
	return domain.Table{}, false
}
