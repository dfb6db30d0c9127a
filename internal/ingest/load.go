package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/andresuchdata/conventicore/internal/config"
	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/andresuchdata/conventicore/internal/pipeline"
	"github.com/rs/zerolog/log"
)

// Layout names the input files inside a data directory.
type Layout struct {
	SKUMaster      string
	FormsCounts    string
	ManualCounts   string
	SystemCounts   string
	Sales          string
	Events         string
	EventsWorkbook string
	Rates          string
}

// DefaultLayout is the file naming used by the intake exports.
func DefaultLayout() Layout {
	return Layout{
		SKUMaster:      "sku_master.csv",
		FormsCounts:    "forms_responses.csv",
		ManualCounts:   "manual_entries.csv",
		SystemCounts:   "counts_processed.csv",
		Sales:          "sales_processed.csv",
		Events:         "events_processed.csv",
		EventsWorkbook: "Events.xlsx",
		Rates:          "rates.csv",
	}
}

// Loader reads a data directory into pipeline inputs.
type Loader struct {
	dir    string
	layout Layout
	now    func() time.Time
}

// NewLoader creates a loader over dir with the default layout.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir, layout: DefaultLayout(), now: time.Now}
}

// WithLayout overrides the file names.
func (l *Loader) WithLayout(layout Layout) *Loader {
	l.layout = layout
	return l
}

func (l *Loader) path(name string) string {
	return filepath.Join(l.dir, name)
}

func (l *Loader) exists(name string) bool {
	if name == "" {
		return false
	}
	_, err := os.Stat(l.path(name))
	return err == nil
}

// Load reads every input. The SKU master and sales are required; a missing count channel is
// skipped, events fall back from the flat CSV to the venue workbook, and no events at all means
// no lift.
func (l *Loader) Load() (pipeline.Inputs, error) {
	at := l.now()
	var in pipeline.Inputs

	master, err := ReadSKUMaster(l.path(l.layout.SKUMaster))
	if err != nil {
		return in, fmt.Errorf("load sku master: %w", err)
	}
	in.Master = master

	channels := []struct {
		file   string
		source domain.Source
	}{
		{l.layout.FormsCounts, domain.SourceForms},
		{l.layout.ManualCounts, domain.SourceManual},
		{l.layout.SystemCounts, domain.SourceSystem},
	}
	for _, ch := range channels {
		if !l.exists(ch.file) {
			log.Warn().Str("file", ch.file).Str("source", string(ch.source)).Msg("ingest: count source not found, skipping")
			continue
		}
		src, err := ReadCountSource(l.path(ch.file), ch.source)
		if err != nil {
			return in, fmt.Errorf("load %s counts: %w", ch.source, err)
		}
		in.CountSources = append(in.CountSources, src)
	}

	sales, saleExcs, err := ReadSales(l.path(l.layout.Sales), at)
	if err != nil {
		return in, fmt.Errorf("load sales: %w", err)
	}
	in.Sales = sales
	in.IngestExceptions = append(in.IngestExceptions, saleExcs...)

	var (
		events    []domain.EventRecord
		eventExcs []domain.ExceptionRecord
	)
	switch {
	case l.exists(l.layout.Events):
		events, eventExcs, err = ReadEvents(l.path(l.layout.Events), at)
	case l.exists(l.layout.EventsWorkbook):
		events, eventExcs, err = ReadEventsWorkbook(l.path(l.layout.EventsWorkbook), at)
	default:
		log.Warn().Msg("ingest: no events file found, forecasting without lift")
	}
	if err != nil {
		return in, fmt.Errorf("load events: %w", err)
	}
	in.Events = events
	in.IngestExceptions = append(in.IngestExceptions, eventExcs...)

	return in, nil
}

// LoadRates reads the rate table named by cfg.RatesFile, or the layout's rates file when present.
// Without either the planning defaults stay in force.
func (l *Loader) LoadRates(cfg config.Planning) (config.Planning, error) {
	path := cfg.RatesFile
	if path == "" {
		if !l.exists(l.layout.Rates) {
			return cfg, nil
		}
		path = l.path(l.layout.Rates)
	}
	rates, err := ReadRateTable(path)
	if err != nil {
		return cfg, fmt.Errorf("load rates: %w", err)
	}
	cfg.Rates = rates
	return cfg, nil
}

// Load is shorthand for NewLoader(dir).Load().
func Load(dir string) (pipeline.Inputs, error) {
	return NewLoader(dir).Load()
}
