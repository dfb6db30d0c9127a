package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

type fakeSource struct {
	files    []*File
	contents map[string][]byte
}

func (f *fakeSource) ListFiles(ctx context.Context, folderID string) ([]*File, error) {
	return f.files, nil
}

func (f *fakeSource) DownloadFile(ctx context.Context, fileID string, w io.Writer) error {
	data, ok := f.contents[fileID]
	if !ok {
		return fmt.Errorf("no such file %s", fileID)
	}
	_, err := w.Write(data)
	return err
}

const countsCSV = "asof_date,checkpoint,location,sku,qty,counter_id,submitted_at\n" +
	"2025-08-01,BOM,in_store,A,10,JD,2025-08-01T09:00:00Z\n" +
	"2025-08-01,BOM,in_store,B,4,JD,2025-08-01T09:05:00Z\n"

func xlsxBytes(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, r := range rows {
		ref, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, ref, &r); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		name string
		kind string
		ok   bool
	}{
		{"forms_responses.csv", KindForms, true},
		{"Inventory Count Form (Responses).xlsx", KindForms, true},
		{"manual_entries.csv", KindManual, true},
		{"counts_processed.csv", KindSystem, true},
		{"sales_processed.csv", KindSales, true},
		{"Events.xlsx", KindEvents, true},
		{"sku_master.csv", KindMaster, true},
		{"notes.txt", "", false},
		{"budget.csv", "", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			kind, ok := Classify(tc.name)
			if kind != tc.kind || ok != tc.ok {
				t.Errorf("Expected (%q, %v), got (%q, %v)", tc.kind, tc.ok, kind, ok)
			}
		})
	}
}

func TestIntakeService_Pull(t *testing.T) {
	dir := t.TempDir()
	manual := xlsxBytes(t, [][]interface{}{
		{"asof_date", "checkpoint", "location", "sku", "qty", "counter_id", "submitted_at"},
		{"2025-08-01", "MID", "back_of_store", "A", 3, "MK", "2025-08-01T11:00:00Z"},
	})
	events := xlsxBytes(t, [][]interface{}{{"Venue Event Calendar"}, {"Event ID", "Start Date", "Forecast Attendance"}})

	src := &fakeSource{
		files: []*File{
			{ID: "1", Name: "forms_responses.csv"},
			{ID: "2", Name: "Manual Counts.xlsx"},
			{ID: "3", Name: "Events.xlsx"},
			{ID: "4", Name: "readme.txt"},
		},
		contents: map[string][]byte{"1": []byte(countsCSV), "2": manual, "3": events},
	}

	res, err := NewIntakeService(src, "folder", dir).Pull(context.Background())
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if len(res.Files) != 3 || len(res.Skipped) != 1 {
		t.Fatalf("Expected 3 pulled and 1 skipped, got %+v", res)
	}

	testCases := []struct {
		file    string
		records int
	}{
		{"forms_responses.csv", 2},
		{"manual_entries.csv", 1},
		{"Events.xlsx", 0},
	}
	for i, tc := range testCases {
		t.Run(tc.file, func(t *testing.T) {
			got := res.Files[i]
			if got.LocalPath != filepath.Join(dir, tc.file) {
				t.Errorf("Expected %s, got %s", tc.file, got.LocalPath)
			}
			if got.Records != tc.records {
				t.Errorf("Expected %d records, got %d", tc.records, got.Records)
			}
			if _, err := os.Stat(got.LocalPath); err != nil {
				t.Errorf("Expected file on disk: %v", err)
			}
		})
	}

	if _, err := os.Stat(filepath.Join(dir, "manual_entries.csv.xlsx")); !os.IsNotExist(err) {
		t.Errorf("Expected temporary workbook removed, got %v", err)
	}
}

func TestIntakeService_PullRejectsMalformedCounts(t *testing.T) {
	src := &fakeSource{
		files:    []*File{{ID: "1", Name: "forms_responses.csv"}},
		contents: map[string][]byte{"1": []byte("sku,qty\nA,1\n")},
	}
	if _, err := NewIntakeService(src, "", t.TempDir()).Pull(context.Background()); err == nil {
		t.Errorf("Expected error for counts export without required columns")
	}
}

func TestConvertXLSXToCSV_SkipsBanner(t *testing.T) {
	dir := t.TempDir()
	xlsxPath := filepath.Join(dir, "in.xlsx")
	if err := os.WriteFile(xlsxPath, xlsxBytes(t, [][]interface{}{{"Banner"}, {"a", "b"}, {1, 2}}), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	csvPath := filepath.Join(dir, "out.csv")
	if err := convertXLSXToCSV(xlsxPath, csvPath, 2); err != nil {
		t.Fatalf("convert: %v", err)
	}
	data, _ := os.ReadFile(csvPath)
	if string(data) != "a,b\n1,2\n" {
		t.Errorf("Expected banner dropped, got %q", data)
	}
}
