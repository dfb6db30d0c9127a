package ingest

import (
	"strings"

	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/rs/zerolog/log"
)

const tableCounts = "counts"

// ReadCountSource loads one channel's counts. With an empty source the per-row "source" column is
// used, which is how a reconciled ledger is read back. Quantities are parsed leniently: a value
// that is not a whole number is kept with QtyValid=false for the reconciler to reject.
func ReadCountSource(path string, source domain.Source) (domain.CountSource, error) {
	t, err := readCSV(path, tableCounts)
	if err != nil {
		return domain.CountSource{}, err
	}
	return countSourceFromTable(t, source)
}

func countSourceFromTable(t *rawTable, source domain.Source) (domain.CountSource, error) {
	idx, err := t.require(
		[]string{"asof_date", "as_of_date", "date", "count_date"},
		[]string{"checkpoint"},
		[]string{"location", "zone"},
		[]string{"sku"},
		[]string{"qty", "quantity", "count"},
		[]string{"counter_id", "counter"},
	)
	if err != nil {
		return domain.CountSource{}, err
	}
	iDate, iCheckpoint, iLocation, iSKU, iQty, iCounter := idx[0], idx[1], idx[2], idx[3], idx[4], idx[5]
	iSubmitted := t.col("submitted_at", "timestamp", "submitted")
	iUOM := t.col("uom")
	iNotes := t.col("notes", "note")
	iSource := t.col("source")

	out := domain.CountSource{Source: source, Records: make([]domain.CountRecord, 0, len(t.records))}
	skipped := 0
	for n, rec := range t.records {
		asOf, err := parseDate(cell(rec, iDate))
		if err != nil {
			log.Warn().Int("row", n+2).Err(err).Msg("ingest: skipping count without as-of date")
			skipped++
			continue
		}

		c := domain.CountRecord{
			AsOfDate:   domain.DayKey(asOf),
			Checkpoint: checkpoint(cell(rec, iCheckpoint)),
			Location:   location(cell(rec, iLocation)),
			SKU:        cell(rec, iSKU),
			RawQty:     cell(rec, iQty),
			UOM:        strings.ToUpper(cell(rec, iUOM)),
			CounterID:  cell(rec, iCounter),
			Notes:      cell(rec, iNotes),
		}
		c.Qty, c.QtyValid = parseQty(c.RawQty)

		if ts, err := parseDate(cell(rec, iSubmitted)); err == nil {
			c.SubmittedAt = ts
		} else {
			// without a submission time the count ranks as submitted at the start of its day
			c.SubmittedAt = c.AsOfDate
		}

		if source == "" {
			if s, ok := domain.ParseSource(cell(rec, iSource)); ok {
				c.Source = s
			} else {
				c.Source = domain.Source(cell(rec, iSource))
			}
		}

		out.Records = append(out.Records, c)
	}

	log.Info().Str("source", string(source)).Int("records", len(out.Records)).Int("skipped", skipped).
		Msg("ingest: counts loaded")
	return out, nil
}

func checkpoint(s string) domain.Checkpoint {
	if cp, ok := domain.ParseCheckpoint(s); ok {
		return cp
	}
	return domain.Checkpoint(strings.ToUpper(s))
}

func location(s string) domain.Location {
	if loc, ok := domain.ParseLocation(s); ok {
		return loc
	}
	return domain.Location(strings.ToLower(s))
}
