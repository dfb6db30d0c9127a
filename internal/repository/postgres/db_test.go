package postgres

import (
	"strings"
	"testing"

	"github.com/andresuchdata/conventicore/internal/config"
)

func TestDSN(t *testing.T) {
	got := DSN(&config.DatabaseConfig{
		Host: "db", Port: "5432", User: "planner", Password: "pw", DBName: "conventicore", SSLMode: "disable",
	})
	want := "host=db port=5432 user=planner password=pw dbname=conventicore sslmode=disable"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestSchema_SnapshotTables(t *testing.T) {
	joined := strings.Join(schema, "\n")
	for _, table := range []string{"pipeline_runs", "pipeline_exceptions", "planning_snapshots", "planning_snapshot_rows"} {
		if !strings.Contains(joined, "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Errorf("Expected schema to create %s", table)
		}
	}
}
