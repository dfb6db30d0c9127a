package pnl

import (
	"sort"

	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/rs/zerolog/log"
)

const stage = "pnl"

// Alert thresholds for the summary.
const (
	LowGMPct = 0.20
	LowGMROI = 2.0
)

// Analyze computes the per-SKU profitability snapshot for the period. Sales are filtered to the
// period with both ends inclusive; stock is the ledger total per SKU.
func Analyze(master *domain.SKUMaster, sales []domain.SaleRecord, ledger []domain.CountRecord,
	period domain.Period) ([]domain.PnLRow, error) {
	if master.Len() == 0 {
		return nil, domain.MissingTable(stage, "sku_master")
	}

	type totals struct {
		units   float64
		revenue float64
	}
	sold := make(map[string]*totals)
	for _, s := range sales {
		if !period.Contains(s.Date) {
			continue
		}
		t, ok := sold[s.SKU]
		if !ok {
			t = &totals{}
			sold[s.SKU] = t
		}
		t.units += s.UnitsSold
		t.revenue += s.Revenue
	}

	stock := make(map[string]float64)
	for _, c := range ledger {
		stock[c.SKU] += float64(c.Qty)
	}

	rows := make([]domain.PnLRow, 0, master.Len())
	for _, sku := range master.All() {
		row := domain.PnLRow{
			SKU:          sku.SKU,
			Description:  sku.Description,
			Category:     sku.Category,
			Period:       period.Label,
			CurrentStock: stock[sku.SKU],
		}
		if t, ok := sold[sku.SKU]; ok {
			row.UnitsSold = t.units
			row.Revenue = t.revenue
		}

		row.COGS = row.UnitsSold * sku.Cost
		row.GrossMargin = row.Revenue - row.COGS
		if row.Revenue != 0 {
			row.GMPct = row.GrossMargin / row.Revenue
		}

		row.AvgInventoryValue = row.CurrentStock * sku.Cost / 2
		if row.AvgInventoryValue != 0 {
			row.GMROI = row.GrossMargin / row.AvgInventoryValue
		}

		if denom := row.CurrentStock + row.UnitsSold; denom != 0 {
			row.SellThrough = row.UnitsSold / denom
		}
		if row.UnitsSold > 0 {
			row.AvgUnitPrice = row.Revenue / row.UnitsSold
		}

		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].GrossMargin != rows[j].GrossMargin {
			return rows[i].GrossMargin > rows[j].GrossMargin
		}
		return rows[i].SKU < rows[j].SKU
	})

	log.Info().Str("period", period.Label).Int("skus", len(rows)).Msg("pnl: snapshot built")
	return rows, nil
}

// Summary rolls the snapshot up for the executive summary.
type Summary struct {
	TotalRevenue     float64 `json:"total_revenue"`
	TotalCOGS        float64 `json:"total_cogs"`
	TotalGrossMargin float64 `json:"total_gross_margin"`
	GMPct            float64 `json:"gm_pct"`
	AvgGMROI         float64 `json:"avg_gmroi"`        // over SKUs with positive GMROI
	AvgSellThrough   float64 `json:"avg_sell_through"` // over SKUs with positive sell-through
	LowMarginSKUs    int     `json:"low_margin_skus"`
	LowGMROISKUs     int     `json:"low_gmroi_skus"`
}

// Summarize totals the rows. Low-margin and low-GMROI counts only consider SKUs that sold.
func Summarize(rows []domain.PnLRow) Summary {
	var s Summary
	var gmroiSum, stSum float64
	var gmroiN, stN int

	for _, r := range rows {
		s.TotalRevenue += r.Revenue
		s.TotalCOGS += r.COGS
		s.TotalGrossMargin += r.GrossMargin

		if r.GMROI > 0 {
			gmroiSum += r.GMROI
			gmroiN++
		}
		if r.SellThrough > 0 {
			stSum += r.SellThrough
			stN++
		}
		if r.Revenue > 0 && r.GMPct < LowGMPct {
			s.LowMarginSKUs++
		}
		if r.Revenue > 0 && r.GMROI < LowGMROI {
			s.LowGMROISKUs++
		}
	}

	if s.TotalRevenue != 0 {
		s.GMPct = s.TotalGrossMargin / s.TotalRevenue
	}
	if gmroiN > 0 {
		s.AvgGMROI = gmroiSum / float64(gmroiN)
	}
	if stN > 0 {
		s.AvgSellThrough = stSum / float64(stN)
	}
	return s
}
