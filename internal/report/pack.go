package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/andresuchdata/conventicore/internal/pipeline"
	"github.com/andresuchdata/conventicore/internal/storage"
	"github.com/rs/zerolog/log"
)

// Pack lists what a publish produced.
type Pack struct {
	Period   string   `json:"period"`
	Dir      string   `json:"dir"`
	Files    []string `json:"files"`
	Uploaded []string `json:"uploaded,omitempty"`
}

// PublishPack writes the period's tables, executive summary, dashboard, summary JSON and workbook
// into <dir>/<period>/. With a store, every file is uploaded under <period>/.
func PublishPack(ctx context.Context, period, dir string, tables []domain.Table, summary pipeline.RunSummary,
	store storage.ObjectStorage) (*Pack, error) {
	periodDir := filepath.Join(dir, period)
	if err := os.MkdirAll(periodDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report dir: %w", err)
	}

	pack := &Pack{Period: period, Dir: periodDir}
	add := func(name string) string {
		p := filepath.Join(periodDir, name)
		pack.Files = append(pack.Files, p)
		return p
	}

	for _, t := range tables {
		if err := pipeline.WriteCSV(add(fmt.Sprintf("%s_%s.csv", t.Name, period)), t); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", t.Name, err)
		}
	}

	now := time.Now()
	texts := []struct {
		name   string
		render func(pipeline.RunSummary, time.Time) (string, error)
	}{
		{"executive_summary", ExecutiveSummary},
		{"dashboard", Dashboard},
	}
	for _, tx := range texts {
		body, err := tx.render(summary, now)
		if err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", tx.name, err)
		}
		if err := os.WriteFile(add(fmt.Sprintf("%s_%s.txt", tx.name, period)), []byte(body), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", tx.name, err)
		}
	}

	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := os.WriteFile(add(fmt.Sprintf("summary_%s.json", period)), payload, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write summary: %w", err)
	}

	if len(tables) > 0 {
		if err := ExportWorkbook(add(fmt.Sprintf("planning_pack_%s.xlsx", period)), tables...); err != nil {
			return nil, err
		}
	}

	if store != nil {
		for _, p := range pack.Files {
			if err := ctx.Err(); err != nil {
				return pack, err
			}
			data, err := os.ReadFile(p)
			if err != nil {
				return pack, err
			}
			key := period + "/" + filepath.Base(p)
			if err := store.UploadObject(ctx, key, data); err != nil {
				return pack, err
			}
			pack.Uploaded = append(pack.Uploaded, key)
		}
	}

	log.Info().
		Str("period", period).
		Str("dir", periodDir).
		Int("files", len(pack.Files)).
		Int("uploaded", len(pack.Uploaded)).
		Msg("report: pack published")
	return pack, nil
}
