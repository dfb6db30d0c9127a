package pipeline

import (
	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/andresuchdata/conventicore/internal/pipeline/pnl"
	"github.com/andresuchdata/conventicore/internal/pipeline/reconcile"
)

// RunSummary is the audit of one run: what was excluded, what was deduplicated and which SKUs
// rest on fallback assumptions.
type RunSummary struct {
	Period string `json:"period"`

	InputCounts       int `json:"input_counts"`
	LedgerRecords     int `json:"ledger_records"`
	ExcludedRecords   int `json:"excluded_records"`
	InvalidQuantities int `json:"invalid_quantities"`
	InvalidSales      int `json:"invalid_sales"`
	DeduplicatedKeys  int `json:"deduplicated_keys"`
	OverriddenRecords int `json:"overridden_records"`

	ForecastSKUs        int      `json:"forecast_skus"`
	LowConfidenceSKUs   []string `json:"low_confidence_skus"`
	FallbackRateSKUs    []string `json:"fallback_rate_skus"`
	RatesConfigured     bool     `json:"rates_configured"`
	MissingRateMappings int      `json:"missing_rate_mappings"`
	LifecycleWarnings   int      `json:"lifecycle_warnings"`

	PlanRows        int    `json:"plan_rows"`
	HighPriority    int    `json:"high_priority"`
	LowDoS          int    `json:"low_dos"`
	TotalOrderValue string `json:"total_order_value"`
	Budget          string `json:"budget"`
	OverBudget      bool   `json:"over_budget"`
	BudgetOverage   string `json:"budget_overage"`

	PnL pnl.Summary `json:"pnl"`

	ZServiceLevel      float64 `json:"z_service_level"`
	TargetDaysOfSupply int     `json:"target_days_of_supply"`
	LowDoSWarning      int     `json:"low_dos_warning"`
	ShrinkThresholdPct float64 `json:"shrink_threshold_pct"`

	HighSeverity   int `json:"high_severity_exceptions"`
	MediumSeverity int `json:"medium_severity_exceptions"`

	// StageErrors maps a stage name to the structural error that stopped it.
	StageErrors map[string]string `json:"stage_errors,omitempty"`
}

// Summarize builds the audit from a finished result.
func Summarize(res *RunResult, stats reconcile.Stats, cfg PipelineConfig, stageErrs map[string]error) RunSummary {
	kinds := domain.CountExceptions(res.Exceptions)

	s := RunSummary{
		Period:              res.Run.Period,
		InputCounts:         stats.InputRecords,
		LedgerRecords:       len(res.Ledger),
		InvalidQuantities:   kinds[domain.ExceptionInvalidQuantity],
		InvalidSales:        kinds[domain.ExceptionInvalidSale],
		DeduplicatedKeys:    stats.DuplicateKeys,
		OverriddenRecords:   stats.Overridden,
		ForecastSKUs:        len(res.Forecast),
		RatesConfigured:     len(cfg.Planning.Rates) > 0,
		MissingRateMappings: kinds[domain.ExceptionMissingRateMapping],
		LifecycleWarnings:   kinds[domain.ExceptionLifecycleOrder],
		PlanRows:            len(res.Plan.Rows),
		HighPriority:        res.Plan.HighPriority,
		LowDoS:              res.Plan.LowDoS,
		TotalOrderValue:     res.Plan.TotalOrderValue.StringFixed(2),
		Budget:              res.Plan.Budget.StringFixed(2),
		OverBudget:          res.Plan.OverBudget,
		BudgetOverage:       res.Plan.BudgetOverage.StringFixed(2),
		PnL:                 pnl.Summarize(res.PnL),
		ZServiceLevel:       cfg.Planning.ZServiceLevel,
		TargetDaysOfSupply:  cfg.Planning.TargetDaysOfSupply,
		LowDoSWarning:       cfg.Planning.LowDoSWarning,
		ShrinkThresholdPct:  cfg.Planning.ShrinkThresholdPct,
		LowConfidenceSKUs:   []string{},
		FallbackRateSKUs:    []string{},
	}
	s.ExcludedRecords = s.InvalidQuantities + s.InvalidSales

	for _, f := range res.Forecast {
		if f.Confidence == domain.ConfidenceLow {
			s.LowConfidenceSKUs = append(s.LowConfidenceSKUs, f.SKU)
		}
		if f.FallbackRate {
			s.FallbackRateSKUs = append(s.FallbackRateSKUs, f.SKU)
		}
	}

	for _, e := range res.Exceptions {
		switch e.Severity {
		case domain.SeverityHigh:
			s.HighSeverity++
		case domain.SeverityMedium:
			s.MediumSeverity++
		}
	}

	if len(stageErrs) > 0 {
		s.StageErrors = make(map[string]string, len(stageErrs))
		for stage, err := range stageErrs {
			s.StageErrors[stage] = err.Error()
		}
	}
	return s
}
