package report

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/andresuchdata/conventicore/internal/pipeline"
	"github.com/andresuchdata/conventicore/internal/pipeline/pnl"
	"github.com/andresuchdata/conventicore/internal/storage"
	"github.com/xuri/excelize/v2"
)

func sampleTables() []domain.Table {
	return []domain.Table{
		domain.ForecastTable([]domain.ForecastRow{
			{SKU: "A", Description: "Lanyard", Category: "Badges", Period: "2025-08", BaselineDaily: 1.5,
				BaselineTotal: 45, TotalForecast: 45, DemandStd: 0.5, Confidence: domain.ConfidenceHigh},
		}),
		domain.BuyPlanTable([]domain.BuyPlanRow{
			{SKU: "A", Description: "Lanyard", Category: "Badges", RecommendedQty: 12.5, OrderCost: 25,
				Priority: domain.PriorityHigh, LeadTimeDays: 14},
		}),
	}
}

func sampleSummary() pipeline.RunSummary {
	return pipeline.RunSummary{
		Period:             "2025-08",
		InputCounts:        10,
		LedgerRecords:      8,
		ForecastSKUs:       1,
		LowConfidenceSKUs:  []string{"B", "C"},
		FallbackRateSKUs:   []string{},
		PlanRows:           1,
		HighPriority:       1,
		TotalOrderValue:    "60000.00",
		Budget:             "50000.00",
		OverBudget:         true,
		BudgetOverage:      "10000.00",
		PnL:                pnl.Summary{TotalRevenue: 100, TotalGrossMargin: 40, GMPct: 0.4},
		ZServiceLevel:      1.65,
		TargetDaysOfSupply: 30,
		LowDoSWarning:      15,
		ShrinkThresholdPct: 0.05,
	}
}

func TestExportWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pack.xlsx")
	if err := ExportWorkbook(path, sampleTables()...); err != nil {
		t.Fatalf("ExportWorkbook: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "forecast" || sheets[1] != "buy_plan" {
		t.Fatalf("Expected forecast and buy_plan sheets, got %v", sheets)
	}

	rows, err := f.GetRows("buy_plan")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected header + 1 row, got %d", len(rows))
	}
	if rows[0][0] != "sku" || rows[1][0] != "A" {
		t.Errorf("Expected sku header and A, got %v / %v", rows[0], rows[1])
	}

	if err := ExportWorkbook(path); err == nil {
		t.Errorf("Expected error for no tables")
	}
}

func TestSheetName(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"forecast", "forecast"},
		{"", "Sheet"},
		{strings.Repeat("x", 40), strings.Repeat("x", 31)},
	}
	for _, tc := range testCases {
		if got := sheetName(tc.in); got != tc.want {
			t.Errorf("sheetName(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestExecutiveSummary(t *testing.T) {
	at := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	text, err := ExecutiveSummary(sampleSummary(), at)
	if err != nil {
		t.Fatalf("ExecutiveSummary: %v", err)
	}

	for _, want := range []string{
		"Period: 2025-08",
		"Generated: 2025-09-01 08:00:00",
		"LOW confidence (no sales history): 2 [B, C]",
		"No rate table configured",
		"Safety stock at 1.65 sigma, target 30 days of supply",
		"OVER BUDGET by 10000.00",
		"gross margin: 40.00 (40.0%)",
		"shrink variances over 5.0%",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected summary to contain %q\n%s", want, text)
		}
	}
	if strings.Contains(text, "STAGE ERRORS") {
		t.Errorf("Expected no stage errors section")
	}
}

func TestPublishPack(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewLocalStorage(t.TempDir())

	pack, err := PublishPack(context.Background(), "2025-08", dir, sampleTables(), sampleSummary(), store)
	if err != nil {
		t.Fatalf("PublishPack: %v", err)
	}

	var names []string
	for _, p := range pack.Files {
		names = append(names, filepath.Base(p))
		if _, err := os.Stat(p); err != nil {
			t.Errorf("Expected %s on disk: %v", p, err)
		}
	}
	sort.Strings(names)
	want := []string{
		"buy_plan_2025-08.csv",
		"dashboard_2025-08.txt",
		"executive_summary_2025-08.txt",
		"forecast_2025-08.csv",
		"planning_pack_2025-08.xlsx",
		"summary_2025-08.json",
	}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("Expected files %v, got %v", want, names)
	}

	objects, err := store.ListObjects(context.Background(), "2025-08/")
	if err != nil {
		t.Fatalf("ListObjects: %v", err)
	}
	if len(objects) != len(want) || len(pack.Uploaded) != len(want) {
		t.Errorf("Expected %d uploads, got %d objects / %d keys", len(want), len(objects), len(pack.Uploaded))
	}
}

func TestPublishPack_WithoutStore(t *testing.T) {
	pack, err := PublishPack(context.Background(), "2025-08", t.TempDir(), nil, sampleSummary(), nil)
	if err != nil {
		t.Fatalf("PublishPack: %v", err)
	}
	if len(pack.Files) != 3 || len(pack.Uploaded) != 0 {
		t.Errorf("Expected summary, dashboard and json only, got %v", pack.Files)
	}
}
