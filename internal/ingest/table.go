package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/xuri/excelize/v2"
)

const stage = "ingest"

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

// normalizeColumnName folds case and drops separators so "Units Sold" matches "units_sold".
func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return columnNameSanitizer.Replace(name)
}

// rawTable is a header plus string records, before typing.
type rawTable struct {
	name    string
	header  []string
	index   map[string]int
	records [][]string
}

func newRawTable(name string, header []string, records [][]string) *rawTable {
	t := &rawTable{name: name, header: header, index: make(map[string]int, len(header)), records: records}
	for i, h := range header {
		key := normalizeColumnName(h)
		if key == "" {
			continue
		}
		if _, dup := t.index[key]; !dup {
			t.index[key] = i
		}
	}
	return t
}

// col returns the index of the first alias present, or -1.
func (t *rawTable) col(aliases ...string) int {
	for _, a := range aliases {
		if i, ok := t.index[normalizeColumnName(a)]; ok {
			return i
		}
	}
	return -1
}

// require resolves every column or fails with a StructuralError naming the first one missing.
// Each alias list names the canonical column first.
func (t *rawTable) require(columns ...[]string) ([]int, error) {
	out := make([]int, len(columns))
	for i, aliases := range columns {
		idx := t.col(aliases...)
		if idx < 0 {
			return nil, domain.MissingColumn(stage, t.name, aliases[0])
		}
		out[i] = idx
	}
	return out, nil
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// readCSV loads a CSV file. A missing file is a structural error for the named table.
func readCSV(path, name string) (*rawTable, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, domain.MissingTable(stage, name))
		}
		return nil, err
	}
	defer file.Close()
	return parseCSV(file, name)
}

func parseCSV(r io.Reader, name string) (*rawTable, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, domain.MissingTable(stage, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s header: %w", name, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		if blank(record) {
			continue
		}
		records = append(records, record)
	}
	return newRawTable(name, header, records), nil
}

// readSheet loads the first sheet of a workbook with the header on headerRow (1-based). Cells are
// read raw so dates arrive as serial numbers.
func readSheet(path, name string, headerRow int) (*rawTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, domain.MissingTable(stage, name))
		}
		return nil, fmt.Errorf("failed to open xlsx file %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.MissingTable(stage, name)
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheets[0], err)
	}
	if len(rows) < headerRow {
		return nil, domain.MissingTable(stage, name)
	}

	var records [][]string
	for _, r := range rows[headerRow:] {
		if blank(r) {
			continue
		}
		records = append(records, r)
	}
	return newRawTable(name, rows[headerRow-1], records), nil
}

// parseNumber accepts thousands separators ("1,250.5").
func parseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	return strconv.ParseFloat(s, 64)
}

// parseQty parses a count quantity. Whole numbers only; "12.0" is accepted.
func parseQty(s string) (int, bool) {
	f, err := parseNumber(s)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
	"20060102",
}

// parseDate accepts the common export layouts and Excel serial dates.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 && serial < 2958466 {
		return excelize.ExcelDateToTime(serial, false)
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "active":
		return true
	}
	return false
}
