package drive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/andresuchdata/conventicore/internal/ingest"
	"github.com/rs/zerolog/log"
)

// Intake kinds a Drive export can be classified as.
const (
	KindForms  = "forms"
	KindManual = "manual"
	KindSystem = "system"
	KindSales  = "sales"
	KindEvents = "events"
	KindMaster = "sku_master"
)

// PulledFile is one Drive file placed in the input directory.
type PulledFile struct {
	DriveID   string `json:"drive_id"`
	DriveName string `json:"drive_name"`
	Kind      string `json:"kind"`
	LocalPath string `json:"local_path"`
	Records   int    `json:"records"`
}

// PullResult summarises one intake pull.
type PullResult struct {
	Files   []PulledFile `json:"files"`
	Skipped []string     `json:"skipped"`
}

// IntakeService pulls the intake channel exports from a Drive folder into the input directory,
// under the file names the planning loader expects.
type IntakeService struct {
	source   FileSource
	folderID string
	inputDir string
	layout   ingest.Layout
}

func NewIntakeService(source FileSource, folderID, inputDir string) *IntakeService {
	return &IntakeService{
		source:   source,
		folderID: folderID,
		inputDir: inputDir,
		layout:   ingest.DefaultLayout(),
	}
}

// Classify maps a Drive file name to an intake kind.
func Classify(name string) (string, bool) {
	n := strings.ToLower(name)
	ext := filepath.Ext(n)
	if ext != ".csv" && ext != ".xlsx" {
		return "", false
	}
	switch {
	case strings.Contains(n, "form"):
		return KindForms, true
	case strings.Contains(n, "manual"):
		return KindManual, true
	case strings.Contains(n, "count"):
		return KindSystem, true
	case strings.Contains(n, "sales"):
		return KindSales, true
	case strings.Contains(n, "event"):
		return KindEvents, true
	case strings.Contains(n, "sku"), strings.Contains(n, "master"):
		return KindMaster, true
	}
	return "", false
}

func (s *IntakeService) target(kind string, xlsx bool) string {
	switch kind {
	case KindForms:
		return s.layout.FormsCounts
	case KindManual:
		return s.layout.ManualCounts
	case KindSystem:
		return s.layout.SystemCounts
	case KindSales:
		return s.layout.Sales
	case KindEvents:
		// the venue workbook is read natively, with its banner row
		if xlsx {
			return s.layout.EventsWorkbook
		}
		return s.layout.Events
	case KindMaster:
		return s.layout.SKUMaster
	}
	return ""
}

// Pull downloads every recognised export. Later files of the same kind overwrite earlier ones, so
// the most recently modified export wins. Count exports are read back to check their columns.
func (s *IntakeService) Pull(ctx context.Context) (*PullResult, error) {
	if s.inputDir == "" {
		return nil, fmt.Errorf("input dir is required")
	}
	if err := os.MkdirAll(s.inputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create input dir: %w", err)
	}

	files, err := s.source.ListFiles(ctx, s.folderID)
	if err != nil {
		return nil, err
	}

	res := &PullResult{Files: []PulledFile{}, Skipped: []string{}}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		kind, ok := Classify(f.Name)
		if !ok {
			res.Skipped = append(res.Skipped, f.Name)
			continue
		}

		pulled, err := s.pullFile(ctx, f, kind)
		if err != nil {
			return nil, err
		}
		res.Files = append(res.Files, pulled)
		log.Info().Str("file", f.Name).Str("kind", kind).Str("path", pulled.LocalPath).Msg("intake: file pulled")
	}

	log.Info().Int("pulled", len(res.Files)).Int("skipped", len(res.Skipped)).Msg("intake: pull finished")
	return res, nil
}

func (s *IntakeService) pullFile(ctx context.Context, f *File, kind string) (PulledFile, error) {
	xlsx := strings.EqualFold(filepath.Ext(f.Name), ".xlsx")
	target := filepath.Join(s.inputDir, s.target(kind, xlsx))
	pulled := PulledFile{DriveID: f.ID, DriveName: f.Name, Kind: kind, LocalPath: target}

	download := target
	if xlsx && kind != KindEvents {
		download = target + ".xlsx"
	}
	if err := s.download(ctx, f, download); err != nil {
		return pulled, err
	}

	if download != target {
		if err := convertXLSXToCSV(download, target, 1); err != nil {
			return pulled, fmt.Errorf("failed to convert %s to csv: %w", f.Name, err)
		}
		_ = os.Remove(download)
	}

	if source, ok := countSource(kind); ok {
		src, err := ingest.ReadCountSource(target, source)
		if err != nil {
			return pulled, fmt.Errorf("intake %s: %w", f.Name, err)
		}
		pulled.Records = len(src.Records)
	}
	return pulled, nil
}

func (s *IntakeService) download(ctx context.Context, f *File, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", path, err)
	}
	if err := s.source.DownloadFile(ctx, f.ID, out); err != nil {
		out.Close()
		return fmt.Errorf("failed to download %s: %w", f.Name, err)
	}
	return out.Close()
}

func countSource(kind string) (domain.Source, bool) {
	switch kind {
	case KindForms:
		return domain.SourceForms, true
	case KindManual:
		return domain.SourceManual, true
	case KindSystem:
		return domain.SourceSystem, true
	}
	return "", false
}
