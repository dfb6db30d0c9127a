package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/andresuchdata/conventicore/internal/pipeline/forecast"
	"github.com/andresuchdata/conventicore/internal/pipeline/pnl"
	"github.com/andresuchdata/conventicore/internal/pipeline/reconcile"
	"github.com/andresuchdata/conventicore/internal/pipeline/replenish"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Orchestrator runs reconcile, forecast, plan and pnl for one period.
type Orchestrator struct {
	cfg       PipelineConfig
	snapshots *SnapshotWriter
}

// NewOrchestrator creates a new Orchestrator. Snapshots are written when cfg.OutputDir is set.
func NewOrchestrator(cfg PipelineConfig) *Orchestrator {
	o := &Orchestrator{cfg: cfg}
	if cfg.OutputDir != "" {
		o.snapshots = NewSnapshotWriter(cfg.OutputDir)
	}
	return o
}

// Config returns the orchestrator's configuration.
func (o *Orchestrator) Config() PipelineConfig {
	return o.cfg
}

// Run executes the pipeline. Reconcile and forecast run concurrently; plan waits for both and
// pnl waits for reconcile. A structural error stops only its own stage and the stages that
// depend on it. The result is always returned, with the joined stage errors.
func (o *Orchestrator) Run(ctx context.Context, in Inputs, period domain.Period) (*RunResult, error) {
	run := NewPipelineRun(period.Label)
	run.Status = StatusProcessing
	res := &RunResult{}

	logger := log.With().Str("run_id", run.ID.String()).Str("period", period.Label).Logger()
	logger.Info().Msg("pipeline: run started")

	if err := o.cfg.Planning.Validate(); err != nil {
		return o.fail(res, run, fmt.Errorf("invalid planning config: %w", err))
	}
	if err := ctx.Err(); err != nil {
		return o.fail(res, run, err)
	}

	stageErrs := make(map[string]error)

	// Phase 1: reconcile and forecast are independent.
	var (
		recon     reconcile.Result
		forecasts []domain.ForecastRow
		fExcs     []domain.ExceptionRecord
		fErr      error
	)
	var g errgroup.Group
	g.Go(func() error {
		recon = reconcile.Reconcile(in.CountSources...)
		return nil
	})
	g.Go(func() error {
		forecasts, fExcs, fErr = forecast.Forecast(in.Master, in.Sales, in.Events, period, o.cfg.Planning)
		return nil
	})
	_ = g.Wait()
	if fErr != nil {
		stageErrs[StageForecast] = fErr
	}

	if err := ctx.Err(); err != nil {
		return o.fail(res, run, err)
	}

	// Phase 2: plan needs ledger and forecast, pnl needs the ledger.
	var (
		plan        replenish.Plan
		pErr        error
		pnlRows     []domain.PnLRow
		pnlErr      error
		planSkipped bool
	)
	var g2 errgroup.Group
	if fErr == nil {
		g2.Go(func() error {
			plan, pErr = replenish.PlanReplenishment(forecasts, recon.Ledger, in.Master, o.cfg.Planning)
			return nil
		})
	} else {
		planSkipped = true
	}
	g2.Go(func() error {
		pnlRows, pnlErr = pnl.Analyze(in.Master, in.Sales, recon.Ledger, period)
		return nil
	})
	_ = g2.Wait()

	if pErr != nil {
		stageErrs[StagePlan] = pErr
	}
	if planSkipped {
		stageErrs[StagePlan] = fmt.Errorf("plan: skipped, forecast failed")
	}
	if pnlErr != nil {
		stageErrs[StagePnL] = pnlErr
	}

	res.Ledger = recon.Ledger
	res.Forecast = forecasts
	res.Plan = plan
	res.PnL = pnlRows
	res.Exceptions = mergeExceptions(in.IngestExceptions, recon.Exceptions, fExcs)

	var joined error
	for _, stage := range []string{StageForecast, StagePlan, StagePnL} {
		if err := stageErrs[stage]; err != nil {
			joined = errors.Join(joined, err)
			logger.Error().Err(err).Str("stage", stage).Msg("pipeline: stage failed")
		}
	}

	now := time.Now()
	run.CompletedAt = &now
	run.Status = StatusCompleted
	if joined != nil {
		run.Status = StatusPartial
		run.ErrorMessage = joined.Error()
	}
	res.Run = *run
	res.Summary = Summarize(res, recon.Stats, o.cfg, stageErrs)

	if o.snapshots != nil {
		paths, err := o.snapshots.WriteAll(res.Tables(), period.Label)
		if err != nil {
			logger.Error().Err(err).Msg("pipeline: snapshot write failed")
			joined = errors.Join(joined, err)
		}
		res.Snapshots = paths
	}

	logger.Info().
		Str("status", string(run.Status)).
		Int("ledger", len(res.Ledger)).
		Int("forecast", len(res.Forecast)).
		Int("plan", len(res.Plan.Rows)).
		Int("pnl", len(res.PnL)).
		Int("exceptions", len(res.Exceptions)).
		Dur("duration", now.Sub(run.StartedAt)).
		Msg("pipeline: run finished")

	return res, joined
}

func (o *Orchestrator) fail(res *RunResult, run *PipelineRun, err error) (*RunResult, error) {
	now := time.Now()
	run.Status = StatusFailed
	run.CompletedAt = &now
	run.ErrorMessage = err.Error()
	res.Run = *run
	return res, err
}

// mergeExceptions concatenates the stage exception lists in logging order.
func mergeExceptions(lists ...[]domain.ExceptionRecord) []domain.ExceptionRecord {
	out := []domain.ExceptionRecord{}
	for _, l := range lists {
		out = append(out, l...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LoggedAt.Before(out[j].LoggedAt)
	})
	return out
}
