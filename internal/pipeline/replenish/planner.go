package replenish

import (
	"fmt"
	"sort"

	"github.com/andresuchdata/conventicore/internal/config"
	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const stage = "plan"

// Plan is the full buy plan with its budget position. Rows are never dropped for budget.
type Plan struct {
	Rows            []domain.BuyPlanRow `json:"rows"`
	TotalOrderValue decimal.Decimal     `json:"total_order_value"`
	Budget          decimal.Decimal     `json:"budget"`
	OverBudget      bool                `json:"over_budget"`
	BudgetOverage   decimal.Decimal     `json:"budget_overage"`
	HighPriority    int                 `json:"high_priority"`
	LowDoS          int                 `json:"low_dos"`
}

// Planner turns forecasts and on-hand stock into a prioritised buy plan.
type Planner struct {
	cfg  config.Planning
	calc *InventoryCalculator
}

// NewPlanner creates a planner for the given parameters.
func NewPlanner(cfg config.Planning) *Planner {
	return &Planner{cfg: cfg, calc: NewInventoryCalculator(cfg)}
}

// PlanReplenishment runs a planner with the given parameters.
func PlanReplenishment(forecasts []domain.ForecastRow, ledger []domain.CountRecord,
	master *domain.SKUMaster, cfg config.Planning) (Plan, error) {
	return NewPlanner(cfg).Plan(forecasts, ledger, master)
}

// Plan builds one row per forecast row. Current stock is the sum of every ledger quantity for the
// SKU across checkpoints and locations.
func (p *Planner) Plan(forecasts []domain.ForecastRow, ledger []domain.CountRecord,
	master *domain.SKUMaster) (Plan, error) {
	if len(forecasts) > 0 && master.Len() == 0 {
		return Plan{}, domain.MissingTable(stage, "sku_master")
	}

	stock := CurrentStock(ledger)
	plan := Plan{
		Rows:   make([]domain.BuyPlanRow, 0, len(forecasts)),
		Budget: decimal.NewFromFloat(p.cfg.MaxCashPerOrder),
	}
	total := decimal.Zero

	for _, f := range forecasts {
		sku, ok := master.Get(f.SKU)
		if !ok {
			return Plan{}, fmt.Errorf("plan: forecast sku %q not in sku master", f.SKU)
		}

		onHand := stock[f.SKU]
		m := p.calc.Calculate(StockInput{
			SKU:           sku,
			CurrentStock:  onHand,
			TotalForecast: f.TotalForecast,
			DemandStd:     f.DemandStd,
		})

		total = total.Add(decimal.NewFromFloat(m.OrderCost))
		if m.Priority == domain.PriorityHigh {
			plan.HighPriority++
		}
		if m.DaysOfSupply < float64(p.cfg.LowDoSWarning) {
			plan.LowDoS++
		}

		plan.Rows = append(plan.Rows, domain.BuyPlanRow{
			SKU:            sku.SKU,
			Description:    sku.Description,
			Category:       sku.Category,
			CurrentStock:   onHand,
			Forecast:       f.TotalForecast,
			DailyDemand:    m.DailyDemand,
			SafetyStock:    m.SafetyStock,
			ReorderPoint:   m.ReorderPoint,
			TargetStock:    m.TargetStock,
			RecommendedQty: m.RecommendedQty,
			OrderCost:      m.OrderCost,
			DaysOfSupply:   m.DaysOfSupply,
			Priority:       m.Priority,
			LeadTimeDays:   m.LeadTimeDays,
			Notes:          notes(sku, m),
		})
	}

	SortRows(plan.Rows)

	plan.TotalOrderValue = total
	if total.GreaterThan(plan.Budget) {
		plan.OverBudget = true
		plan.BudgetOverage = total.Sub(plan.Budget)
		log.Warn().
			Str("total", total.StringFixed(2)).
			Str("budget", plan.Budget.StringFixed(2)).
			Msg("plan: total order value exceeds budget, phase orders by priority")
	}

	log.Info().
		Int("rows", len(plan.Rows)).
		Int("high_priority", plan.HighPriority).
		Int("low_dos", plan.LowDoS).
		Str("total_order_value", total.StringFixed(2)).
		Msg("plan: buy plan built")

	return plan, nil
}

// SortRows orders rows by priority tier, then days of supply ascending, then SKU.
func SortRows(rows []domain.BuyPlanRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		if a.DaysOfSupply != b.DaysOfSupply {
			return a.DaysOfSupply < b.DaysOfSupply
		}
		return a.SKU < b.SKU
	})
}

// CurrentStock sums ledger quantities per SKU.
func CurrentStock(ledger []domain.CountRecord) map[string]float64 {
	out := make(map[string]float64)
	for _, c := range ledger {
		out[c.SKU] += float64(c.Qty)
	}
	return out
}

func notes(sku domain.SKU, m InventoryMetrics) string {
	switch {
	case sku.LeadTimeDays <= 0:
		return fmt.Sprintf("default lead time %dd", m.LeadTimeDays)
	case m.RecommendedQty > 0 && sku.MinOrderQty > 0 && m.RecommendedQty < float64(sku.MinOrderQty):
		return fmt.Sprintf("below min order qty %d", sku.MinOrderQty)
	}
	return ""
}
