package ingest

import (
	"fmt"
	"time"

	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/rs/zerolog/log"
)

const tableEvents = "events"

// eventsHeaderRow is where the venue workbook puts its header, under a banner title row.
const eventsHeaderRow = 2

// ReadEvents loads the flat events table.
func ReadEvents(path string, at time.Time) ([]domain.EventRecord, []domain.ExceptionRecord, error) {
	t, err := readCSV(path, tableEvents)
	if err != nil {
		return nil, nil, err
	}
	return eventsFromTable(t, at)
}

// ReadEventsWorkbook loads the venue events workbook: first sheet, banner row, header on row 2.
// Venue column names map onto the events table (Description is the name, Anchor Venue the venue
// area, Span of Attendees the event type, Forecast Attendance the attendance used for lift).
func ReadEventsWorkbook(path string, at time.Time) ([]domain.EventRecord, []domain.ExceptionRecord, error) {
	t, err := readSheet(path, tableEvents, eventsHeaderRow)
	if err != nil {
		return nil, nil, err
	}
	return eventsFromTable(t, at)
}

func eventsFromTable(t *rawTable, at time.Time) ([]domain.EventRecord, []domain.ExceptionRecord, error) {
	idx, err := t.require(
		[]string{"event_id", "Event ID"},
		[]string{"start_dt", "Start Date", "start_date"},
		[]string{"est_attendance", "Forecast Attendance", "forecast_attendance"},
	)
	if err != nil {
		return nil, nil, err
	}
	iID, iStart, iAttendance := idx[0], idx[1], idx[2]
	iAccount := t.col("account")
	iName := t.col("name", "description", "event_name")
	iVenue := t.col("venue_area", "Anchor Venue", "venue")
	iType := t.col("event_type", "Span of Attendees", "type")
	iIn := t.col("in_date", "In Date")
	iEnd := t.col("end_dt", "End Date", "end_date")
	iOut := t.col("out_date", "Out Date")
	iActual := t.col("actual_attendance", "Actual Attendance")
	iRevised := t.col("revised_attendance", "Revised Attendance")
	iCurrent := t.col("current_attendance", "Attendance - Current")
	iContact := t.col("contact")
	iSales := t.col("salesperson")

	number := func(rec []string, i int) float64 {
		f, err := parseNumber(cell(rec, i))
		if err != nil {
			return 0
		}
		return f
	}
	date := func(rec []string, i int) time.Time {
		d, err := parseDate(cell(rec, i))
		if err != nil {
			return time.Time{}
		}
		return d
	}

	v := validatorInstance()
	events := make([]domain.EventRecord, 0, len(t.records))
	var excs []domain.ExceptionRecord
	skipped := 0

	for n, rec := range t.records {
		ev := domain.EventRecord{
			EventID:            cell(rec, iID),
			Account:            cell(rec, iAccount),
			Name:               cell(rec, iName),
			VenueArea:          cell(rec, iVenue),
			EventType:          cell(rec, iType),
			InDate:             date(rec, iIn),
			StartDate:          date(rec, iStart),
			EndDate:            date(rec, iEnd),
			OutDate:            date(rec, iOut),
			ForecastAttendance: number(rec, iAttendance),
			ActualAttendance:   number(rec, iActual),
			RevisedAttendance:  number(rec, iRevised),
			CurrentAttendance:  number(rec, iCurrent),
			Contact:            cell(rec, iContact),
			Salesperson:        cell(rec, iSales),
		}

		if err := v.Struct(ev); err != nil {
			log.Warn().Int("row", n+2).Str("event_id", ev.EventID).Str("detail", validationDetail(err)).
				Msg("ingest: skipping event")
			skipped++
			continue
		}

		if !ev.LifecycleOrdered() {
			excs = append(excs, domain.ExceptionRecord{
				Kind:     domain.ExceptionLifecycleOrder,
				Severity: domain.SeverityMedium,
				Key:      ev.EventID,
				Detail:   "event dates out of order, expected in <= start <= end <= out",
				Record: fmt.Sprintf("in=%s start=%s end=%s out=%s",
					dayString(ev.InDate), dayString(ev.StartDate), dayString(ev.EndDate), dayString(ev.OutDate)),
				Status:   domain.ExceptionStatusOpen,
				LoggedAt: at,
			})
		}
		events = append(events, ev)
	}

	log.Info().Int("events", len(events)).Int("skipped", skipped).Int("lifecycle_warnings", len(excs)).
		Msg("ingest: events loaded")
	return events, excs, nil
}

func dayString(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}
