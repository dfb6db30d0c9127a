package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/rs/zerolog/log"
)

// SnapshotWriter writes flat tables to <dir>/<name>_<period>.csv.
type SnapshotWriter struct {
	dir string
	mu  sync.Mutex
}

// NewSnapshotWriter creates a writer rooted at dir.
func NewSnapshotWriter(dir string) *SnapshotWriter {
	return &SnapshotWriter{dir: dir}
}

// Dir returns the snapshot directory.
func (w *SnapshotWriter) Dir() string {
	return w.dir
}

// SnapshotPath returns where a table's snapshot for the period lives.
func (w *SnapshotWriter) SnapshotPath(name, period string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s_%s.csv", name, period))
}

// WriteAll writes every table and returns the paths written.
func (w *SnapshotWriter) WriteAll(tables []domain.Table, period string) ([]string, error) {
	paths := make([]string, 0, len(tables))
	for _, t := range tables {
		path, err := w.WriteTable(t, period)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteTable writes one table with its declared column order.
func (w *SnapshotWriter) WriteTable(t domain.Table, period string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Ensure output directory exists
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := w.SnapshotPath(t.Name, period)
	if err := WriteCSV(path, t); err != nil {
		return "", fmt.Errorf("failed to write CSV %s: %w", path, err)
	}

	log.Debug().Str("table", t.Name).Int("rows", t.Len()).Str("path", path).Msg("snapshot: written")
	return path, nil
}

// WriteCSV writes a table to path, header first.
func WriteCSV(path string, t domain.Table) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(t.Columns); err != nil {
		return err
	}

	for _, row := range t.Rows {
		record := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			if val, ok := row[col]; ok {
				record[i] = FormatValue(val)
			}
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// FormatValue renders a cell without exponent notation.
func FormatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
