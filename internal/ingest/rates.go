package ingest

import (
	"github.com/andresuchdata/conventicore/internal/config"
	"github.com/rs/zerolog/log"
)

const tableRates = "rates"

// ReadRateTable loads (event_type, category) -> conversion, attach_rate.
func ReadRateTable(path string) (config.RateTable, error) {
	t, err := readCSV(path, tableRates)
	if err != nil {
		return nil, err
	}
	idx, err := t.require(
		[]string{"event_type"},
		[]string{"category"},
		[]string{"conversion", "conversion_rate"},
		[]string{"attach_rate", "attach"},
	)
	if err != nil {
		return nil, err
	}

	rates := make(config.RateTable, len(t.records))
	for n, rec := range t.records {
		conv, errC := parseNumber(cell(rec, idx[2]))
		attach, errA := parseNumber(cell(rec, idx[3]))
		if errC != nil || errA != nil || conv < 0 || attach < 0 {
			log.Warn().Int("row", n+2).Msg("ingest: skipping invalid rate row")
			continue
		}
		key := config.RateKey{EventType: cell(rec, idx[0]), Category: cell(rec, idx[1])}
		rates[key] = config.Rate{Conversion: conv, Attach: attach}
	}

	log.Info().Int("rates", len(rates)).Msg("ingest: rate table loaded")
	return rates, nil
}
