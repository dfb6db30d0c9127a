package pnl

import (
	"math"
	"testing"
	"time"

	"github.com/andresuchdata/conventicore/internal/domain"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func stockRow(sku string, qty int) domain.CountRecord {
	return domain.CountRecord{
		Source: domain.SourceSystem, SKU: sku, Qty: qty, QtyValid: true,
		AsOfDate: time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC), Checkpoint: domain.CheckpointEOM,
		Location: domain.LocationInStore, CounterID: "SYS",
	}
}

func TestAnalyze_ConcreteScenario(t *testing.T) {
	master := domain.NewSKUMaster([]domain.SKU{{SKU: "SKU001", Cost: 5}})
	sales := []domain.SaleRecord{
		{Date: time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC), SKU: "SKU001", UnitsSold: 4, Revenue: 40},
		{Date: time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC), SKU: "SKU001", UnitsSold: 6, Revenue: 60},
	}
	period, _ := domain.ParsePeriod("2025-08")

	rows, err := Analyze(master, sales, []domain.CountRecord{stockRow("SKU001", 20)}, period)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	r := rows[0]

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"units_sold", r.UnitsSold, 10},
		{"revenue", r.Revenue, 100},
		{"cogs", r.COGS, 50},
		{"gross_margin", r.GrossMargin, 50},
		{"gm_pct", r.GMPct, 0.5},
		{"avg_inventory_value", r.AvgInventoryValue, 50},
		{"gmroi", r.GMROI, 1.0},
		{"sell_through", r.SellThrough, 10.0 / 30.0},
		{"avg_unit_price", r.AvgUnitPrice, 10},
	}
	for _, c := range checks {
		t.Run(c.name, func(t *testing.T) {
			if !approx(c.got, c.want) {
				t.Errorf("Expected %v, got %v", c.want, c.got)
			}
		})
	}
}

func TestAnalyze_ZeroGuards(t *testing.T) {
	master := domain.NewSKUMaster([]domain.SKU{{SKU: "IDLE", Cost: 5}, {SKU: "FREE", Cost: 0}})
	period, _ := domain.ParsePeriod("2025-08")
	sales := []domain.SaleRecord{
		{Date: time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC), SKU: "FREE", UnitsSold: 3, Revenue: 9},
	}

	rows, err := Analyze(master, sales, []domain.CountRecord{stockRow("FREE", 10)}, period)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	for _, r := range rows {
		for name, v := range map[string]float64{"gm_pct": r.GMPct, "gmroi": r.GMROI, "sell_through": r.SellThrough} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("%s: %s is not finite", r.SKU, name)
			}
		}
	}
	idle := rows[1]
	if idle.SKU != "IDLE" || idle.GMPct != 0 || idle.GMROI != 0 || idle.SellThrough != 0 {
		t.Errorf("Expected all-zero ratios for IDLE, got %+v", idle)
	}
	free := rows[0]
	if free.GMROI != 0 {
		t.Errorf("Expected zero GMROI with zero inventory value, got %v", free.GMROI)
	}
}

func TestAnalyze_PeriodInclusiveAndSorted(t *testing.T) {
	master := domain.NewSKUMaster([]domain.SKU{
		{SKU: "A", Cost: 1}, {SKU: "B", Cost: 1}, {SKU: "C", Cost: 1},
	})
	period, _ := domain.ParsePeriod("2025-08")
	sales := []domain.SaleRecord{
		{Date: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), SKU: "A", UnitsSold: 1, Revenue: 3},
		{Date: time.Date(2025, 8, 31, 23, 30, 0, 0, time.UTC), SKU: "A", UnitsSold: 1, Revenue: 3},
		{Date: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), SKU: "A", UnitsSold: 100, Revenue: 900},
		{Date: time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC), SKU: "C", UnitsSold: 1, Revenue: 11},
	}

	rows, err := Analyze(master, sales, nil, period)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	wantOrder := []string{"C", "A", "B"}
	for i, sku := range wantOrder {
		if rows[i].SKU != sku {
			t.Errorf("Position %d: expected %s, got %s", i, sku, rows[i].SKU)
		}
	}
	if rows[1].UnitsSold != 2 {
		t.Errorf("Expected both boundary days counted for A, got %v units", rows[1].UnitsSold)
	}
}

func TestAnalyze_EmptyMaster(t *testing.T) {
	period, _ := domain.ParsePeriod("2025-08")
	if _, err := Analyze(nil, nil, nil, period); !domain.IsStructural(err) {
		t.Errorf("Expected structural error, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	rows := []domain.PnLRow{
		{SKU: "A", Revenue: 100, COGS: 50, GrossMargin: 50, GMPct: 0.5, GMROI: 1.0, SellThrough: 0.5},
		{SKU: "B", Revenue: 100, COGS: 90, GrossMargin: 10, GMPct: 0.1, GMROI: 3.0, SellThrough: 0.25},
		{SKU: "C"},
	}
	s := Summarize(rows)
	if s.TotalRevenue != 200 || s.TotalGrossMargin != 60 {
		t.Errorf("Unexpected totals %+v", s)
	}
	if !approx(s.GMPct, 0.3) {
		t.Errorf("Expected blended GM%% 0.3, got %v", s.GMPct)
	}
	if !approx(s.AvgGMROI, 2.0) || !approx(s.AvgSellThrough, 0.375) {
		t.Errorf("Unexpected averages %+v", s)
	}
	if s.LowMarginSKUs != 1 || s.LowGMROISKUs != 1 {
		t.Errorf("Expected 1 low-margin and 1 low-GMROI SKU, got %d and %d", s.LowMarginSKUs, s.LowGMROISKUs)
	}
}
