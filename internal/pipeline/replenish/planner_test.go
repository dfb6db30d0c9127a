package replenish

import (
	"math"
	"testing"
	"time"

	"github.com/andresuchdata/conventicore/internal/config"
	"github.com/andresuchdata/conventicore/internal/domain"
)

func ledgerRow(sku string, loc domain.Location, qty int) domain.CountRecord {
	return domain.CountRecord{
		Source:     domain.SourceSystem,
		AsOfDate:   time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		Checkpoint: domain.CheckpointBOM,
		Location:   loc,
		SKU:        sku,
		Qty:        qty,
		QtyValid:   true,
		CounterID:  "SYS",
	}
}

func TestCalculate_ConcreteScenario(t *testing.T) {
	calc := NewInventoryCalculator(config.DefaultPlanning())
	m := calc.Calculate(StockInput{
		SKU:           domain.SKU{SKU: "SKU001", Cost: 4, LeadTimeDays: 14},
		CurrentStock:  20,
		TotalForecast: 75, // 2.5 per day
		DemandStd:     0.8,
	})

	if math.Abs(m.DailyDemand-2.5) > 1e-9 {
		t.Errorf("Expected daily demand 2.5, got %v", m.DailyDemand)
	}
	// 1.65 × sqrt(0.8² × 14 + 2.5²) = 1.65 × 3.9
	if math.Abs(m.SafetyStock-6.435) > 1e-6 {
		t.Errorf("Expected safety stock ~6.43, got %v", m.SafetyStock)
	}
	if math.Abs(m.ReorderPoint-41.435) > 1e-6 {
		t.Errorf("Expected reorder point ~41.43, got %v", m.ReorderPoint)
	}
	if m.Priority != domain.PriorityHigh {
		t.Errorf("Expected HIGH priority below ROP, got %s", m.Priority)
	}
	// target = 2.5 × 30 + 6.435, less 20 on hand
	if math.Abs(m.RecommendedQty-61.435) > 1e-6 {
		t.Errorf("Expected recommended ~61.44, got %v", m.RecommendedQty)
	}
	if math.Abs(m.OrderCost-m.RecommendedQty*4) > 1e-9 {
		t.Errorf("Expected order cost = qty x cost, got %v", m.OrderCost)
	}
}

func TestCalculate_RecommendedNeverNegative(t *testing.T) {
	calc := NewInventoryCalculator(config.DefaultPlanning())
	testCases := []struct {
		name     string
		stock    float64
		forecast float64
		std      float64
	}{
		{"overstocked", 10000, 30, 1},
		{"exactly at target", 0, 0, 0},
		{"no demand with stock", 50, 0, 0},
		{"high variance", 500, 60, 40},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := calc.Calculate(StockInput{
				SKU:           domain.SKU{SKU: "X", Cost: 1, LeadTimeDays: 7},
				CurrentStock:  tc.stock,
				TotalForecast: tc.forecast,
				DemandStd:     tc.std,
			})
			if m.RecommendedQty < 0 {
				t.Errorf("Expected non-negative recommended qty, got %v", m.RecommendedQty)
			}
			if m.OrderCost < 0 {
				t.Errorf("Expected non-negative order cost, got %v", m.OrderCost)
			}
		})
	}
}

func TestCalculate_DaysOfSupplySentinel(t *testing.T) {
	calc := NewInventoryCalculator(config.DefaultPlanning())
	testCases := []struct {
		name     string
		forecast float64
		want999  bool
	}{
		{"zero demand", 0, true},
		{"some demand", 15, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := calc.Calculate(StockInput{SKU: domain.SKU{SKU: "X", LeadTimeDays: 7}, CurrentStock: 40, TotalForecast: tc.forecast})
			if (m.DaysOfSupply == NoDemandDoS) != tc.want999 {
				t.Errorf("Expected sentinel=%v, got DoS %v", tc.want999, m.DaysOfSupply)
			}
		})
	}
}

func TestCalculate_DefaultLeadTime(t *testing.T) {
	cfg := config.DefaultPlanning()
	m := NewInventoryCalculator(cfg).Calculate(StockInput{SKU: domain.SKU{SKU: "X"}, TotalForecast: 30})
	if m.LeadTimeDays != cfg.DefaultLeadTimeDays {
		t.Errorf("Expected default lead time %d, got %d", cfg.DefaultLeadTimeDays, m.LeadTimeDays)
	}
	if math.Abs(m.ReorderPoint-(1*14+m.SafetyStock)) > 1e-9 {
		t.Errorf("Expected ROP to use default lead time, got %v", m.ReorderPoint)
	}
}

func TestPlan_StockSummedAndSorted(t *testing.T) {
	master := domain.NewSKUMaster([]domain.SKU{
		{SKU: "A", Cost: 1, LeadTimeDays: 7},
		{SKU: "B", Cost: 1, LeadTimeDays: 7},
		{SKU: "C", Cost: 1, LeadTimeDays: 7},
		{SKU: "D", Cost: 1, LeadTimeDays: 7},
	})
	ledger := []domain.CountRecord{
		ledgerRow("A", domain.LocationInStore, 300),
		ledgerRow("A", domain.LocationBackOfStore, 300), // 600 on hand, 600 days
		ledgerRow("B", domain.LocationInStore, 2),      // below ROP
		ledgerRow("C", domain.LocationInStore, 12),     // 12 days, above ROP
		ledgerRow("D", domain.LocationInStore, 1),      // below ROP, lower DoS than B
	}
	forecasts := []domain.ForecastRow{
		{SKU: "A", TotalForecast: 30},
		{SKU: "B", TotalForecast: 30},
		{SKU: "C", TotalForecast: 30},
		{SKU: "D", TotalForecast: 30},
	}

	cfg := config.DefaultPlanning()
	cfg.ZServiceLevel = 0
	cfg.DefaultLeadTimeDays = 7
	plan, err := PlanReplenishment(forecasts, ledger, master, cfg)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	want := []struct {
		sku      string
		priority domain.Priority
	}{
		{"D", domain.PriorityHigh},
		{"B", domain.PriorityHigh},
		{"C", domain.PriorityMedium},
		{"A", domain.PriorityLow},
	}
	if len(plan.Rows) != len(want) {
		t.Fatalf("Expected %d rows, got %d", len(want), len(plan.Rows))
	}
	for i, w := range want {
		if plan.Rows[i].SKU != w.sku || plan.Rows[i].Priority != w.priority {
			t.Errorf("Row %d: expected %s/%s, got %s/%s", i, w.sku, w.priority, plan.Rows[i].SKU, plan.Rows[i].Priority)
		}
	}
	if plan.Rows[3].CurrentStock != 600 {
		t.Errorf("Expected stock summed across locations to 600, got %v", plan.Rows[3].CurrentStock)
	}
	if plan.HighPriority != 2 {
		t.Errorf("Expected 2 high priority rows, got %d", plan.HighPriority)
	}
}

func TestPlan_OverBudgetIsFlaggedNotTruncated(t *testing.T) {
	master := domain.NewSKUMaster([]domain.SKU{
		{SKU: "A", Cost: 100, LeadTimeDays: 14},
		{SKU: "B", Cost: 100, LeadTimeDays: 14},
	})
	forecasts := []domain.ForecastRow{
		{SKU: "A", TotalForecast: 300, DemandStd: 2},
		{SKU: "B", TotalForecast: 300, DemandStd: 2},
	}
	cfg := config.DefaultPlanning()
	cfg.MaxCashPerOrder = 1000

	plan, err := PlanReplenishment(forecasts, nil, master, cfg)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(plan.Rows) != 2 {
		t.Fatalf("Expected every row kept, got %d", len(plan.Rows))
	}
	if !plan.OverBudget {
		t.Fatalf("Expected plan flagged over budget, total %s", plan.TotalOrderValue)
	}
	if !plan.TotalOrderValue.Sub(plan.Budget).Equal(plan.BudgetOverage) {
		t.Errorf("Expected overage = total - budget, got %s", plan.BudgetOverage)
	}

	cfg.MaxCashPerOrder = 1e9
	plan, err = PlanReplenishment(forecasts, nil, master, cfg)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if plan.OverBudget || !plan.BudgetOverage.IsZero() {
		t.Errorf("Expected plan within budget, got overage %s", plan.BudgetOverage)
	}
}

func TestPlan_UnknownSKU(t *testing.T) {
	master := domain.NewSKUMaster([]domain.SKU{{SKU: "A", LeadTimeDays: 7}})
	_, err := PlanReplenishment([]domain.ForecastRow{{SKU: "ZZZ", TotalForecast: 1}}, nil, master, config.DefaultPlanning())
	if err == nil {
		t.Fatalf("Expected error for forecast sku missing from master")
	}

	_, err = PlanReplenishment([]domain.ForecastRow{{SKU: "A"}}, nil, domain.NewSKUMaster(nil), config.DefaultPlanning())
	if !domain.IsStructural(err) {
		t.Errorf("Expected structural error for empty master, got %v", err)
	}
}
