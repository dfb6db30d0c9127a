package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/andresuchdata/conventicore/internal/pipeline"
	"github.com/andresuchdata/conventicore/internal/service"
	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	files := map[string]string{
		"sku_master.csv": "sku,description,category,cost,price,lead_time_days\n" +
			"A,Lanyard,Badges,2,5,14\nB,Water,Beverage,0.5,2,7\n",
		"forms_responses.csv": "asof_date,checkpoint,location,sku,qty,counter_id,submitted_at\n" +
			"2025-08-01,BOM,in_store,A,10,JD,2025-08-01T09:00:00Z\n",
		"sales_processed.csv": "date,sku,units_sold,revenue\n2025-08-02,A,3,15\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	svc := service.NewPlanningService(dir, t.TempDir(), pipeline.DefaultPipelineConfig(""), service.Deps{})
	return NewRouter(&Services{PlanningService: svc}, nil)
}

func serve(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_PlanningFlow(t *testing.T) {
	r := newTestRouter(t)

	if w := serve(r, http.MethodGet, "/api/v1/planning/2025-08/summary"); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 before any run, got %d", w.Code)
	}

	w := serve(r, http.MethodPost, "/api/v1/planning/2025-08/run")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from run, got %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Errorf("Expected request id header")
	}

	testCases := []struct {
		path  string
		total int
	}{
		{"/api/v1/planning/2025-08/forecast", 2},
		{"/api/v1/planning/2025-08/forecast?category=Badges", 1},
		{"/api/v1/planning/2025-08/buy_plan", 2},
		{"/api/v1/planning/2025-08/pnl", 2},
		{"/api/v1/planning/2025-08/exceptions", 0},
		{"/api/v1/planning/2025-08/ledger", 1},
	}
	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			w := serve(r, http.MethodGet, tc.path)
			if w.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
			}
			var body struct {
				Total int `json:"total"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Total != tc.total {
				t.Errorf("Expected total %d, got %d", tc.total, body.Total)
			}
		})
	}

	w = serve(r, http.MethodGet, "/api/v1/planning/2025-08/summary")
	var summary pipeline.RunSummary
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Period != "2025-08" || summary.ForecastSKUs != 2 {
		t.Errorf("Expected summary for 2025-08 with 2 SKUs, got %+v", summary)
	}
}

func TestRouter_ErrorStatus(t *testing.T) {
	r := newTestRouter(t)

	testCases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodPost, "/api/v1/planning/aug/run", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/planning/2025-08/run", http.StatusNotFound},
		{http.MethodPost, "/api/v1/planning/2025-08/publish", http.StatusNotFound},
		{http.MethodGet, "/health", http.StatusOK},
	}
	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			if w := serve(r, tc.method, tc.path); w.Code != tc.want {
				t.Errorf("Expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{"https://a.example, https://b.example", " "})
	if all || len(origins) != 2 || origins[1] != "https://b.example" {
		t.Errorf("Expected two origins, got %v (all=%v)", origins, all)
	}
	if _, all := normalizeAllowedOrigins([]string{"*"}); !all {
		t.Errorf("Expected wildcard to allow all")
	}
}
