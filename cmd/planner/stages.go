package main

import (
	"fmt"

	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/andresuchdata/conventicore/internal/pipeline"
	"github.com/andresuchdata/conventicore/internal/pipeline/forecast"
	"github.com/andresuchdata/conventicore/internal/pipeline/pnl"
	"github.com/andresuchdata/conventicore/internal/pipeline/reconcile"
	"github.com/andresuchdata/conventicore/internal/pipeline/replenish"
	"github.com/andresuchdata/conventicore/pkg/logger"
	"github.com/urfave/cli/v2"
)

// writeTables snapshots each table to <output-dir>/<name>_<period>.csv.
func writeTables(c *cli.Context, period domain.Period, tables ...domain.Table) error {
	w := pipeline.NewSnapshotWriter(c.String("output-dir"))
	for _, t := range tables {
		path, err := w.WriteTable(t, period.Label)
		if err != nil {
			return err
		}
		logger.Log.Info().Str("table", t.Name).Int("rows", t.Len()).Str("path", path).Msg("snapshot written")
	}
	return nil
}

func runCountsUnify(c *cli.Context) error {
	period, in, _, err := stageInputs(c)
	if err != nil {
		return err
	}
	res := reconcile.Reconcile(in.CountSources...)
	logger.Log.Info().
		Int("input", res.Stats.InputRecords).
		Int("ledger", res.Stats.LedgerRecords).
		Int("rejected", res.Stats.Rejected).
		Int("overridden", res.Stats.Overridden).
		Msg("counts unified")

	excs := append(append([]domain.ExceptionRecord{}, in.IngestExceptions...), res.Exceptions...)
	return writeTables(c, period, domain.LedgerTable(res.Ledger), domain.ExceptionTable(excs))
}

func runForecast(c *cli.Context) error {
	period, in, cfg, err := stageInputs(c)
	if err != nil {
		return err
	}
	rows, excs, err := forecast.Forecast(in.Master, in.Sales, in.Events, period, cfg)
	if err != nil {
		return err
	}
	excs = append(append([]domain.ExceptionRecord{}, in.IngestExceptions...), excs...)
	return writeTables(c, period, domain.ForecastTable(rows), domain.ExceptionTable(excs))
}

func runPlan(c *cli.Context) error {
	period, in, cfg, err := stageInputs(c)
	if err != nil {
		return err
	}
	recon := reconcile.Reconcile(in.CountSources...)
	rows, _, err := forecast.Forecast(in.Master, in.Sales, in.Events, period, cfg)
	if err != nil {
		return err
	}
	plan, err := replenish.PlanReplenishment(rows, recon.Ledger, in.Master, cfg)
	if err != nil {
		return err
	}
	if plan.OverBudget {
		logger.Log.Warn().
			Str("total", plan.TotalOrderValue.StringFixed(2)).
			Str("overage", plan.BudgetOverage.StringFixed(2)).
			Msg("buy plan exceeds budget; phase orders by priority")
	}
	fmt.Printf("plan %s: %d rows, %d HIGH, total %s of budget %s\n", period.Label, len(plan.Rows),
		plan.HighPriority, plan.TotalOrderValue.StringFixed(2), plan.Budget.StringFixed(2))
	return writeTables(c, period, domain.BuyPlanTable(plan.Rows))
}

func runPnL(c *cli.Context) error {
	period, in, _, err := stageInputs(c)
	if err != nil {
		return err
	}
	recon := reconcile.Reconcile(in.CountSources...)
	rows, err := pnl.Analyze(in.Master, in.Sales, recon.Ledger, period)
	if err != nil {
		return err
	}
	s := pnl.Summarize(rows)
	fmt.Printf("pnl %s: revenue %.2f, gross margin %.2f (%.1f%%), %d low-margin SKUs\n", period.Label,
		s.TotalRevenue, s.TotalGrossMargin, s.GMPct*100, s.LowMarginSKUs)
	return writeTables(c, period, domain.PnLTable(rows))
}
