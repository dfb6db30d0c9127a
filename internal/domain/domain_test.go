package domain

import (
	"testing"
	"time"
)

func TestParsePeriod(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		start string
		end   string
		days  int
	}{
		{"thirty one days", "2025-08", "2025-08-01", "2025-08-31", 31},
		{"february", "2025-02", "2025-02-01", "2025-02-28", 28},
		{"leap february", "2024-02", "2024-02-01", "2024-02-29", 29},
		{"december rolls year", "2025-12", "2025-12-01", "2025-12-31", 31},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := ParsePeriod(tc.input)
			if err != nil {
				t.Fatalf("ParsePeriod(%q): %v", tc.input, err)
			}
			if got := p.Start.Format("2006-01-02"); got != tc.start {
				t.Errorf("Expected start %s, got %s", tc.start, got)
			}
			if got := p.End.Format("2006-01-02"); got != tc.end {
				t.Errorf("Expected end %s, got %s", tc.end, got)
			}
			if p.Days() != tc.days {
				t.Errorf("Expected %d days, got %d", tc.days, p.Days())
			}
		})
	}

	if _, err := ParsePeriod("2025/08"); err == nil {
		t.Fatal("Expected error for malformed period")
	}
}

func TestPeriodContainsIsInclusive(t *testing.T) {
	p, _ := ParsePeriod("2025-09")
	inside := []time.Time{
		time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 9, 30, 23, 59, 0, 0, time.UTC),
		time.Date(2025, 9, 15, 9, 0, 0, 0, time.UTC),
	}
	for _, ts := range inside {
		if !p.Contains(ts) {
			t.Errorf("Expected %s inside %s", ts, p)
		}
	}
	outside := []time.Time{
		time.Date(2025, 8, 31, 23, 59, 0, 0, time.UTC),
		time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, ts := range outside {
		if p.Contains(ts) {
			t.Errorf("Expected %s outside %s", ts, p)
		}
	}
}

func TestNewPeriodRejectsInvertedWindow(t *testing.T) {
	start := time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)
	if _, err := NewPeriod(start, start.AddDate(0, 0, -1)); err == nil {
		t.Fatal("Expected error for end before start")
	}
	p, err := NewPeriod(start, start)
	if err != nil {
		t.Fatalf("NewPeriod: %v", err)
	}
	if p.Days() != 1 {
		t.Errorf("Expected single-day window, got %d days", p.Days())
	}
}

func TestUniqueKeyIgnoresSource(t *testing.T) {
	base := CountRecord{
		Source:     SourceForms,
		AsOfDate:   time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		Checkpoint: CheckpointBOM,
		Location:   LocationInStore,
		SKU:        "SKU001",
		CounterID:  "JD001",
	}
	other := base
	other.Source = SourceSystem
	other.Qty = 99

	if base.UniqueKey() != "20250801|BOM|in_store|SKU001|JD001" {
		t.Errorf("Unexpected key %s", base.UniqueKey())
	}
	if base.UniqueKey() != other.UniqueKey() {
		t.Errorf("Expected same key across sources, got %s and %s", base.UniqueKey(), other.UniqueKey())
	}
}

func TestSourcePriorityOrder(t *testing.T) {
	if !(SourceManual.Priority() < SourceForms.Priority() && SourceForms.Priority() < SourceSystem.Priority()) {
		t.Errorf("Expected Manual < Forms < System, got %d %d %d",
			SourceManual.Priority(), SourceForms.Priority(), SourceSystem.Priority())
	}
	if s, ok := ParseSource("forms"); !ok || s != SourceForms {
		t.Errorf("Expected forms to parse as Forms, got %q %v", s, ok)
	}
}

func TestParseLocationSpellings(t *testing.T) {
	for _, in := range []string{"in_store", "In Store", "IN-STORE"} {
		if loc, ok := ParseLocation(in); !ok || loc != LocationInStore {
			t.Errorf("Expected %q to parse as in_store, got %q", in, loc)
		}
	}
	if _, ok := ParseLocation("warehouse"); ok {
		t.Error("Expected unknown location to be rejected")
	}
}

func TestEventLifecycleOrdered(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2025, 9, day, 0, 0, 0, 0, time.UTC) }
	ok := EventRecord{InDate: d(1), StartDate: d(2), EndDate: d(3), OutDate: d(4)}
	if !ok.LifecycleOrdered() {
		t.Error("Expected ordered lifecycle")
	}
	partial := EventRecord{StartDate: d(2), EndDate: d(3)}
	if !partial.LifecycleOrdered() {
		t.Error("Expected unset dates to be ignored")
	}
	bad := EventRecord{InDate: d(5), StartDate: d(2), EndDate: d(3)}
	if bad.LifecycleOrdered() {
		t.Error("Expected in-date after start to be out of order")
	}
}

func TestStructuralErrorDetection(t *testing.T) {
	err := MissingColumn("forecast", "sales", "units_sold")
	if !IsStructural(err) {
		t.Fatal("Expected structural error")
	}
	if err.Error() != `forecast: table sales is missing required column "units_sold"` {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

func TestRound(t *testing.T) {
	if got := Round(6.4349, 2); got != 6.43 {
		t.Errorf("Expected 6.43, got %v", got)
	}
	if got := Round(2.5, 0); got != 3 {
		t.Errorf("Expected 3, got %v", got)
	}
}
