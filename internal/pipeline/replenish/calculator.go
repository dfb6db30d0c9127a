package replenish

import (
	"math"

	"github.com/andresuchdata/conventicore/internal/config"
	"github.com/andresuchdata/conventicore/internal/domain"
)

const (
	// forecastHorizonDays normalises a period forecast to a daily rate regardless of month length.
	forecastHorizonDays = 30
	// leadTimeVariance is held constant across SKUs.
	leadTimeVariance = 1.0
	// NoDemandDoS marks effectively infinite supply when there is no daily demand.
	NoDemandDoS = 999.0
)

// StockInput is everything the calculator needs for one SKU.
type StockInput struct {
	SKU           domain.SKU
	CurrentStock  float64
	TotalForecast float64
	DemandStd     float64
}

// InventoryMetrics holds the replenishment figures for one SKU, unrounded.
type InventoryMetrics struct {
	LeadTimeDays   int
	DailyDemand    float64
	SafetyStock    float64
	ReorderPoint   float64
	TargetStock    float64
	RecommendedQty float64
	DaysOfSupply   float64
	OrderCost      float64
	Priority       domain.Priority
}

// InventoryCalculator computes safety stock, reorder point and order quantity.
type InventoryCalculator struct {
	cfg config.Planning
}

// NewInventoryCalculator creates a calculator for the given parameters.
func NewInventoryCalculator(cfg config.Planning) *InventoryCalculator {
	return &InventoryCalculator{cfg: cfg}
}

// Calculate computes all replenishment metrics for one SKU.
func (ic *InventoryCalculator) Calculate(in StockInput) InventoryMetrics {
	m := InventoryMetrics{}

	// 1. Lead time falls back to the configured default when the master has none
	m.LeadTimeDays = in.SKU.LeadTimeDays
	if m.LeadTimeDays <= 0 {
		m.LeadTimeDays = ic.cfg.DefaultLeadTimeDays
	}
	lt := float64(m.LeadTimeDays)

	// 2. Daily demand over a fixed 30-day horizon
	m.DailyDemand = in.TotalForecast / forecastHorizonDays

	// 3. Safety stock = z × sqrt(std² × LT + d² × LT variance)
	m.SafetyStock = ic.cfg.ZServiceLevel *
		math.Sqrt(in.DemandStd*in.DemandStd*lt+m.DailyDemand*m.DailyDemand*leadTimeVariance)

	// 4. Reorder point = d × LT + safety stock
	m.ReorderPoint = m.DailyDemand*lt + m.SafetyStock

	// 5. Target stock = d × target days of supply + safety stock
	m.TargetStock = m.DailyDemand*float64(ic.cfg.TargetDaysOfSupply) + m.SafetyStock

	// 6. Recommended quantity, never negative
	m.RecommendedQty = math.Max(0, m.TargetStock-in.CurrentStock)

	// 7. Days of supply
	if m.DailyDemand > 0 {
		m.DaysOfSupply = in.CurrentStock / m.DailyDemand
	} else {
		m.DaysOfSupply = NoDemandDoS
	}

	// 8. Order cost
	m.OrderCost = m.RecommendedQty * in.SKU.Cost

	// 9. Priority tier
	switch {
	case in.CurrentStock < m.ReorderPoint:
		m.Priority = domain.PriorityHigh
	case m.DaysOfSupply < float64(ic.cfg.LowDoSWarning):
		m.Priority = domain.PriorityMedium
	default:
		m.Priority = domain.PriorityLow
	}

	return m
}
