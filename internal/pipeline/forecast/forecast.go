package forecast

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/andresuchdata/conventicore/internal/config"
	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const stage = "forecast"

// singleDayStdFactor scales the baseline into a std when only one day of history exists.
const singleDayStdFactor = 0.3

// Forecaster projects per-SKU demand for a period from sales history and scheduled events.
type Forecaster struct {
	cfg config.Planning
	now func() time.Time
}

// NewForecaster creates a forecaster for the given parameters.
func NewForecaster(cfg config.Planning) *Forecaster {
	return &Forecaster{cfg: cfg, now: time.Now}
}

// Forecast runs a forecaster with the wall clock.
func Forecast(master *domain.SKUMaster, sales []domain.SaleRecord, events []domain.EventRecord,
	period domain.Period, cfg config.Planning) ([]domain.ForecastRow, []domain.ExceptionRecord, error) {
	return NewForecaster(cfg).Forecast(master, sales, events, period)
}

type skuResult struct {
	row  domain.ForecastRow
	excs []domain.ExceptionRecord
}

// Forecast returns one row per SKU in master order. Sales history is used in full; events
// qualify when their start date falls inside the period.
func (f *Forecaster) Forecast(master *domain.SKUMaster, sales []domain.SaleRecord,
	events []domain.EventRecord, period domain.Period) ([]domain.ForecastRow, []domain.ExceptionRecord, error) {
	if master.Len() == 0 {
		return nil, nil, domain.MissingTable(stage, "sku_master")
	}

	daily := dailyUnits(sales)
	qualifying := eventsInPeriod(events, period)
	at := f.now()

	skus := master.All()
	results := make([]skuResult, len(skus))

	var g errgroup.Group
	if f.cfg.Workers > 0 {
		g.SetLimit(f.cfg.Workers)
	}
	for i, sku := range skus {
		i, sku := i, sku
		g.Go(func() error {
			results[i] = f.forecastSKU(sku, daily[sku.SKU], qualifying, period, at)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("forecast: %w", err)
	}

	rows := make([]domain.ForecastRow, 0, len(results))
	var excs []domain.ExceptionRecord
	lowConfidence, fallback := 0, 0
	for _, r := range results {
		rows = append(rows, r.row)
		excs = append(excs, r.excs...)
		if r.row.Confidence == domain.ConfidenceLow {
			lowConfidence++
		}
		if r.row.FallbackRate {
			fallback++
		}
	}

	log.Info().
		Str("period", period.Label).
		Int("skus", len(rows)).
		Int("events", len(qualifying)).
		Int("low_confidence", lowConfidence).
		Int("rate_fallback", fallback).
		Msg("forecast: demand projected")

	return rows, excs, nil
}

func (f *Forecaster) forecastSKU(sku domain.SKU, days map[time.Time]float64, events []domain.EventRecord,
	period domain.Period, at time.Time) skuResult {
	row := domain.ForecastRow{
		SKU:         sku.SKU,
		Description: sku.Description,
		Category:    sku.Category,
		Period:      period.Label,
	}

	if len(days) == 0 {
		row.BaselineDaily = f.cfg.DefaultBaselineDaily
		row.DemandStd = f.cfg.DefaultDemandStd
		row.Confidence = domain.ConfidenceLow
	} else {
		series := orderedSeries(days)
		row.BaselineDaily = mean(series)
		if len(series) == 1 {
			row.DemandStd = singleDayStdFactor * row.BaselineDaily
		} else {
			row.DemandStd = sampleStd(series, row.BaselineDaily)
		}
		row.Confidence = domain.ConfidenceHigh
	}

	var excs []domain.ExceptionRecord
	for _, ev := range events {
		rate, ok := f.cfg.Rates.Lookup(ev.EventType, sku.Category)
		if !ok {
			rate = config.Rate{Conversion: f.cfg.DefaultConversion, Attach: f.cfg.DefaultAttachRate}
			row.FallbackRate = true
			if len(f.cfg.Rates) > 0 {
				excs = append(excs, missingRate(ev, sku, at))
			}
		}
		row.EventLift += ev.ForecastAttendance * rate.Conversion * rate.Attach
	}

	row.BaselineTotal = row.BaselineDaily * float64(period.Days())
	row.TotalForecast = row.BaselineTotal + row.EventLift

	return skuResult{row: row, excs: excs}
}

func missingRate(ev domain.EventRecord, sku domain.SKU, at time.Time) domain.ExceptionRecord {
	return domain.ExceptionRecord{
		Kind:     domain.ExceptionMissingRateMapping,
		Severity: domain.SeverityMedium,
		Key:      ev.EventType + "|" + sku.Category,
		SKU:      sku.SKU,
		Detail: fmt.Sprintf("no rate for event type %q and category %q, default rates used",
			ev.EventType, sku.Category),
		Record:   fmt.Sprintf("event=%s start=%s", ev.EventID, ev.StartDate.Format("2006-01-02")),
		Status:   domain.ExceptionStatusOpen,
		LoggedAt: at,
	}
}

// dailyUnits sums units per SKU per calendar day.
func dailyUnits(sales []domain.SaleRecord) map[string]map[time.Time]float64 {
	out := make(map[string]map[time.Time]float64)
	for _, s := range sales {
		days, ok := out[s.SKU]
		if !ok {
			days = make(map[time.Time]float64)
			out[s.SKU] = days
		}
		days[domain.DayKey(s.Date)] += s.UnitsSold
	}
	return out
}

// orderedSeries returns the daily totals in date order so sums are reproducible.
func orderedSeries(days map[time.Time]float64) []float64 {
	keys := make([]time.Time, 0, len(days))
	for d := range days {
		keys = append(keys, d)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	out := make([]float64, len(keys))
	for i, d := range keys {
		out[i] = days[d]
	}
	return out
}

func eventsInPeriod(events []domain.EventRecord, period domain.Period) []domain.EventRecord {
	var out []domain.EventRecord
	for _, ev := range events {
		if ev.StartDate.IsZero() || !period.Contains(ev.StartDate) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStd uses the n-1 denominator.
func sampleStd(xs []float64, m float64) float64 {
	ss := 0.0
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
