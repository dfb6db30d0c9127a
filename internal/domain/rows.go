package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ForecastRow is the per-SKU demand forecast for a period.
type ForecastRow struct {
	SKU           string     `json:"sku"`
	Description   string     `json:"description"`
	Category      string     `json:"category"`
	Period        string     `json:"period"`
	BaselineDaily float64    `json:"baseline_daily"`
	BaselineTotal float64    `json:"baseline_total"`
	EventLift     float64    `json:"event_lift"`
	TotalForecast float64    `json:"total_forecast"`
	DemandStd     float64    `json:"demand_std"`
	Confidence    Confidence `json:"confidence"`
	FallbackRate  bool       `json:"fallback_rate"`
}

// BuyPlanRow is the replenishment recommendation for one SKU.
type BuyPlanRow struct {
	SKU            string   `json:"sku"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	CurrentStock   float64  `json:"current_stock"`
	Forecast       float64  `json:"forecast_30d"`
	DailyDemand    float64  `json:"daily_demand"`
	SafetyStock    float64  `json:"safety_stock"`
	ReorderPoint   float64  `json:"rop"`
	TargetStock    float64  `json:"target_stock"`
	RecommendedQty float64  `json:"recommended_qty"`
	OrderCost      float64  `json:"order_cost"`
	DaysOfSupply   float64  `json:"days_of_supply"`
	Priority       Priority `json:"priority"`
	LeadTimeDays   int      `json:"lead_time_days"`
	Notes          string   `json:"notes"`
}

// PnLRow is the profitability snapshot for one SKU.
type PnLRow struct {
	SKU               string  `json:"sku"`
	Description       string  `json:"description"`
	Category          string  `json:"category"`
	Period            string  `json:"period"`
	UnitsSold         float64 `json:"units_sold"`
	Revenue           float64 `json:"revenue"`
	COGS              float64 `json:"cogs"`
	GrossMargin       float64 `json:"gross_margin"`
	GMPct             float64 `json:"gm_pct"`
	CurrentStock      float64 `json:"current_stock"`
	AvgInventoryValue float64 `json:"avg_inventory_value"`
	GMROI             float64 `json:"gmroi"`
	SellThrough       float64 `json:"sell_through"`
	AvgUnitPrice      float64 `json:"avg_unit_price"`
}

// Row is one flat record: column name to scalar value.
type Row map[string]interface{}

// Table is a named flat table with a stable column order.
type Table struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// NewTable creates an empty table with the given columns.
func NewTable(name string, columns ...string) Table {
	return Table{Name: name, Columns: columns}
}

// Append adds a row.
func (t *Table) Append(r Row) {
	t.Rows = append(t.Rows, r)
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// ForecastTable flattens forecast rows.
func ForecastTable(rows []ForecastRow) Table {
	t := NewTable("forecast",
		"sku", "description", "category", "period", "baseline_daily", "baseline_total",
		"event_lift", "total_forecast", "demand_std", "confidence")
	for _, r := range rows {
		t.Append(Row{
			"sku":            r.SKU,
			"description":    r.Description,
			"category":       r.Category,
			"period":         r.Period,
			"baseline_daily": Round(r.BaselineDaily, 2),
			"baseline_total": Round(r.BaselineTotal, 2),
			"event_lift":     Round(r.EventLift, 2),
			"total_forecast": Round(r.TotalForecast, 2),
			"demand_std":     Round(r.DemandStd, 2),
			"confidence":     string(r.Confidence),
		})
	}
	return t
}

// BuyPlanTable flattens buy plan rows, keeping their order.
func BuyPlanTable(rows []BuyPlanRow) Table {
	t := NewTable("buy_plan",
		"sku", "description", "category", "current_stock", "forecast_30d", "daily_demand",
		"safety_stock", "rop", "target_stock", "recommended_qty", "order_cost", "days_of_supply",
		"priority", "lead_time_days", "notes")
	for _, r := range rows {
		t.Append(Row{
			"sku":             r.SKU,
			"description":     r.Description,
			"category":        r.Category,
			"current_stock":   r.CurrentStock,
			"forecast_30d":    Round(r.Forecast, 2),
			"daily_demand":    Round(r.DailyDemand, 2),
			"safety_stock":    Round(r.SafetyStock, 0),
			"rop":             Round(r.ReorderPoint, 0),
			"target_stock":    Round(r.TargetStock, 0),
			"recommended_qty": Round(r.RecommendedQty, 0),
			"order_cost":      Round(r.OrderCost, 2),
			"days_of_supply":  Round(r.DaysOfSupply, 1),
			"priority":        string(r.Priority),
			"lead_time_days":  r.LeadTimeDays,
			"notes":           r.Notes,
		})
	}
	return t
}

// PnLTable flattens P&L rows, keeping their order.
func PnLTable(rows []PnLRow) Table {
	t := NewTable("pnl_snapshot",
		"sku", "description", "category", "period", "units_sold", "revenue", "cogs",
		"gross_margin", "gm_pct", "current_stock", "avg_inventory_value", "gmroi",
		"sell_through", "avg_unit_price")
	for _, r := range rows {
		t.Append(Row{
			"sku":                 r.SKU,
			"description":         r.Description,
			"category":            r.Category,
			"period":              r.Period,
			"units_sold":          r.UnitsSold,
			"revenue":             Round(r.Revenue, 2),
			"cogs":                Round(r.COGS, 2),
			"gross_margin":        Round(r.GrossMargin, 2),
			"gm_pct":              Round(r.GMPct, 4),
			"current_stock":       r.CurrentStock,
			"avg_inventory_value": Round(r.AvgInventoryValue, 2),
			"gmroi":               Round(r.GMROI, 2),
			"sell_through":        Round(r.SellThrough, 4),
			"avg_unit_price":      Round(r.AvgUnitPrice, 2),
		})
	}
	return t
}

// LedgerTable flattens the canonical count ledger, adding unique_key and source.
func LedgerTable(ledger []CountRecord) Table {
	t := NewTable("counts_unified",
		"asof_date", "checkpoint", "location", "sku", "qty", "uom", "counter_id", "notes",
		"submitted_at", "unique_key", "source")
	for _, c := range ledger {
		t.Append(Row{
			"asof_date":    c.AsOfDate.Format("2006-01-02"),
			"checkpoint":   string(c.Checkpoint),
			"location":     string(c.Location),
			"sku":          c.SKU,
			"qty":          c.Qty,
			"uom":          c.UOM,
			"counter_id":   c.CounterID,
			"notes":        c.Notes,
			"submitted_at": c.SubmittedAt.Format(time.RFC3339),
			"unique_key":   c.UniqueKey(),
			"source":       string(c.Source),
		})
	}
	return t
}
