package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/andresuchdata/conventicore/internal/cache"
	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/andresuchdata/conventicore/internal/pipeline"
	"github.com/google/uuid"
)

type memoryRuns struct {
	runs       []pipeline.PipelineRun
	exceptions int
}

func (m *memoryRuns) SavePipelineRun(ctx context.Context, run *pipeline.PipelineRun) error {
	m.runs = append(m.runs, *run)
	return nil
}

func (m *memoryRuns) SaveExceptions(ctx context.Context, runID uuid.UUID, excs []domain.ExceptionRecord) error {
	m.exceptions += len(excs)
	return nil
}

func writeInputs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"sku_master.csv": "sku,description,category,cost,price,lead_time_days\n" +
			"A,Lanyard,Badges,2,5,14\nB,Water,Beverage,0.5,2,7\n",
		"forms_responses.csv": "asof_date,checkpoint,location,sku,qty,counter_id,submitted_at\n" +
			"2025-08-01,BOM,in_store,A,10,JD,2025-08-01T09:00:00Z\n" +
			"2025-08-01,BOM,in_store,B,-2,JD,2025-08-01T09:00:00Z\n",
		"sales_processed.csv": "date,sku,units_sold,revenue\n2025-08-02,A,3,15\n2025-08-03,B,4,8\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestPlanningService_RunAndRead(t *testing.T) {
	runs := &memoryRuns{}
	svc := NewPlanningService(writeInputs(t), t.TempDir(), pipeline.DefaultPipelineConfig(""), Deps{Runs: runs})
	ctx := context.Background()

	res, err := svc.Run(ctx, "2025-08")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Run.Status != pipeline.StatusCompleted {
		t.Errorf("Expected completed, got %s", res.Run.Status)
	}
	if len(runs.runs) != 1 || runs.exceptions != len(res.Exceptions) {
		t.Errorf("Expected run and %d exceptions persisted, got %d runs / %d exceptions",
			len(res.Exceptions), len(runs.runs), runs.exceptions)
	}

	summary, err := svc.GetSummary(ctx, "2025-08")
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if summary.InvalidQuantities != 1 {
		t.Errorf("Expected 1 invalid quantity, got %d", summary.InvalidQuantities)
	}

	testCases := []struct {
		name   string
		filter cache.TableFilter
		rows   int
	}{
		{"forecast", cache.TableFilter{Period: "2025-08", Table: "forecast"}, 2},
		{"forecast by category", cache.TableFilter{Period: "2025-08", Table: "forecast", Categories: []string{"badges"}}, 1},
		{"pnl alias", cache.TableFilter{Period: "2025-08", Table: "pnl"}, 2},
		{"exceptions alias", cache.TableFilter{Period: "2025-08", Table: "exceptions"}, 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tbl, err := svc.GetTable(ctx, tc.filter)
			if err != nil {
				t.Fatalf("GetTable failed: %v", err)
			}
			if tbl.Len() != tc.rows {
				t.Errorf("Expected %d rows, got %d", tc.rows, tbl.Len())
			}
		})
	}

	pack, err := svc.Publish(ctx, "2025-08")
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(pack.Files) == 0 {
		t.Errorf("Expected published files")
	}
}

func TestPlanningService_Errors(t *testing.T) {
	svc := NewPlanningService(t.TempDir(), t.TempDir(), pipeline.DefaultPipelineConfig(""), Deps{})
	ctx := context.Background()

	if _, err := svc.Run(ctx, "August"); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("Expected ErrInvalidPeriod, got %v", err)
	}
	if _, err := svc.Run(ctx, "2025-08"); !domain.IsStructural(err) {
		t.Errorf("Expected structural error for empty input dir, got %v", err)
	}
	if _, err := svc.GetResult(ctx, "2025-08"); !errors.Is(err, ErrNoRun) {
		t.Errorf("Expected ErrNoRun, got %v", err)
	}
	if _, err := svc.GetTable(ctx, cache.TableFilter{Period: "2025-08", Table: "nope"}); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("Expected ErrUnknownTable, got %v", err)
	}

	if !svc.acquire("2025-08") {
		t.Fatalf("Expected first acquire to succeed")
	}
	if _, err := svc.Run(ctx, "2025-08"); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("Expected ErrRunInProgress, got %v", err)
	}
	svc.release("2025-08")
}

func TestFilterTable(t *testing.T) {
	tbl := domain.BuyPlanTable([]domain.BuyPlanRow{
		{SKU: "A", Category: "Badges", Priority: domain.PriorityHigh},
		{SKU: "B", Category: "Beverage", Priority: domain.PriorityLow},
		{SKU: "C", Category: "Badges", Priority: domain.PriorityLow},
	})

	testCases := []struct {
		name       string
		categories []string
		priority   string
		want       []string
	}{
		{"no filter", nil, "", []string{"A", "B", "C"}},
		{"category", []string{" BADGES "}, "", []string{"A", "C"}},
		{"priority", nil, "low", []string{"B", "C"}},
		{"both", []string{"badges"}, "LOW", []string{"C"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := FilterTable(tbl, tc.categories, tc.priority)
			if got.Len() != len(tc.want) {
				t.Fatalf("Expected %d rows, got %d", len(tc.want), got.Len())
			}
			for i, sku := range tc.want {
				if got.Rows[i]["sku"] != sku {
					t.Errorf("Row %d: expected %s, got %v", i, sku, got.Rows[i]["sku"])
				}
			}
		})
	}
}
