package ingest

import (
	"fmt"
	"time"

	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/rs/zerolog/log"
)

const tableSales = "sales"

// ReadSales loads sales history. Lines with non-positive units or revenue, or without a date, are
// excluded and reported as InvalidSale.
func ReadSales(path string, at time.Time) ([]domain.SaleRecord, []domain.ExceptionRecord, error) {
	t, err := readCSV(path, tableSales)
	if err != nil {
		return nil, nil, err
	}
	return salesFromTable(t, at)
}

func salesFromTable(t *rawTable, at time.Time) ([]domain.SaleRecord, []domain.ExceptionRecord, error) {
	idx, err := t.require(
		[]string{"date", "sale_date", "transaction_date"},
		[]string{"sku"},
		[]string{"units_sold", "units", "qty"},
		[]string{"revenue", "amount", "sales"},
	)
	if err != nil {
		return nil, nil, err
	}
	iDate, iSKU, iUnits, iRevenue := idx[0], idx[1], idx[2], idx[3]
	iEvent := t.col("event_id")
	iChannel := t.col("channel")

	v := validatorInstance()
	sales := make([]domain.SaleRecord, 0, len(t.records))
	var excs []domain.ExceptionRecord

	for n, rec := range t.records {
		s := domain.SaleRecord{
			SKU:     cell(rec, iSKU),
			EventID: cell(rec, iEvent),
			Channel: cell(rec, iChannel),
		}
		var problems []string
		if d, err := parseDate(cell(rec, iDate)); err == nil {
			s.Date = d
		} else {
			problems = append(problems, err.Error())
		}
		if u, err := parseNumber(cell(rec, iUnits)); err == nil {
			s.UnitsSold = u
		}
		if r, err := parseNumber(cell(rec, iRevenue)); err == nil {
			s.Revenue = r
		}

		if err := v.Struct(s); err != nil {
			problems = append(problems, validationDetail(err))
		}
		if len(problems) > 0 {
			excs = append(excs, domain.ExceptionRecord{
				Kind:     domain.ExceptionInvalidSale,
				Severity: domain.SeverityHigh,
				Key:      fmt.Sprintf("%s|row%d", tableSales, n+2),
				SKU:      s.SKU,
				Detail:   problems[len(problems)-1],
				Record: fmt.Sprintf("date=%s sku=%s units=%s revenue=%s",
					cell(rec, iDate), s.SKU, cell(rec, iUnits), cell(rec, iRevenue)),
				Status:   domain.ExceptionStatusOpen,
				LoggedAt: at,
			})
			continue
		}
		sales = append(sales, s)
	}

	log.Info().Int("sales", len(sales)).Int("excluded", len(excs)).Msg("ingest: sales loaded")
	return sales, excs, nil
}
