// internal/domain/records.go
package domain

import (
	"fmt"
	"strings"
	"time"
)

// SKU is one row of the SKU master.
type SKU struct {
	SKU          string  `json:"sku" db:"sku" validate:"required"`
	Description  string  `json:"description" db:"description"`
	Category     string  `json:"category" db:"category"`
	Cost         float64 `json:"cost" db:"cost" validate:"gte=0"`
	Price        float64 `json:"price" db:"price" validate:"gte=0"`
	LeadTimeDays int     `json:"lead_time_days" db:"lead_time_days" validate:"gte=0"`
	Supplier     string  `json:"supplier" db:"supplier"`
	UOM          string  `json:"uom" db:"uom"`
	Active       bool    `json:"active" db:"active"`
	MinOrderQty  int     `json:"min_order_qty" db:"min_order_qty" validate:"gte=0"`
}

// SKUMaster indexes SKUs by identifier while keeping master order.
type SKUMaster struct {
	items []SKU
	index map[string]int
}

// NewSKUMaster builds a master from rows. Later duplicates of an identifier replace earlier ones
// in place so the first position is kept.
func NewSKUMaster(items []SKU) *SKUMaster {
	m := &SKUMaster{
		items: make([]SKU, 0, len(items)),
		index: make(map[string]int, len(items)),
	}
	for _, it := range items {
		if i, ok := m.index[it.SKU]; ok {
			m.items[i] = it
			continue
		}
		m.index[it.SKU] = len(m.items)
		m.items = append(m.items, it)
	}
	return m
}

// Get looks up a SKU by identifier.
func (m *SKUMaster) Get(id string) (SKU, bool) {
	if m == nil {
		return SKU{}, false
	}
	i, ok := m.index[id]
	if !ok {
		return SKU{}, false
	}
	return m.items[i], true
}

// All returns the SKUs in master order. Callers must not modify the slice.
func (m *SKUMaster) All() []SKU {
	if m == nil {
		return nil
	}
	return m.items
}

// Len returns the number of SKUs.
func (m *SKUMaster) Len() int {
	if m == nil {
		return 0
	}
	return len(m.items)
}

// CountRecord is one physical count as reported by an intake channel.
type CountRecord struct {
	Source      Source     `json:"source" db:"source"`
	AsOfDate    time.Time  `json:"asof_date" db:"asof_date"`
	Checkpoint  Checkpoint `json:"checkpoint" db:"checkpoint"`
	Location    Location   `json:"location" db:"location"`
	SKU         string     `json:"sku" db:"sku"`
	Qty         int        `json:"qty" db:"qty"`
	QtyValid    bool       `json:"-" db:"-"` // false when the raw quantity was not numeric
	RawQty      string     `json:"-" db:"-"`
	UOM         string     `json:"uom" db:"uom"`
	CounterID   string     `json:"counter_id" db:"counter_id"`
	Notes       string     `json:"notes" db:"notes"`
	SubmittedAt time.Time  `json:"submitted_at" db:"submitted_at"`
}

// UniqueKey derives the canonical key: YYYYMMDD|checkpoint|location|sku|counter_id.
// The source is not part of the key.
func (c CountRecord) UniqueKey() string {
	return strings.Join([]string{
		c.AsOfDate.Format("20060102"),
		string(c.Checkpoint),
		string(c.Location),
		c.SKU,
		c.CounterID,
	}, "|")
}

// HasValidQty reports whether the record may enter the ledger.
func (c CountRecord) HasValidQty() bool {
	return c.QtyValid && c.Qty >= 0
}

func (c CountRecord) String() string {
	qty := fmt.Sprintf("%d", c.Qty)
	if !c.QtyValid {
		qty = fmt.Sprintf("%q", c.RawQty)
	}
	return fmt.Sprintf("%s key=%s qty=%s submitted=%s",
		c.Source, c.UniqueKey(), qty, c.SubmittedAt.Format(time.RFC3339))
}

// CountSource is one channel's list of count records.
type CountSource struct {
	Source  Source
	Records []CountRecord
}

// SaleRecord is one sales line. Ingestion guarantees UnitsSold > 0 and Revenue > 0.
type SaleRecord struct {
	Date      time.Time `json:"date" db:"date" validate:"required"`
	SKU       string    `json:"sku" db:"sku" validate:"required"`
	UnitsSold float64   `json:"units_sold" db:"units_sold" validate:"gt=0"`
	Revenue   float64   `json:"revenue" db:"revenue" validate:"gt=0"`
	EventID   string    `json:"event_id" db:"event_id"`
	Channel   string    `json:"channel" db:"channel"`
}

// EventRecord is one scheduled venue event. Only ForecastAttendance feeds demand lift; the other
// attendance figures are informational.
type EventRecord struct {
	EventID            string    `json:"event_id" db:"event_id"`
	Account            string    `json:"account" db:"account"`
	Name               string    `json:"name" db:"name"`
	VenueArea          string    `json:"venue_area" db:"venue_area"`
	EventType          string    `json:"event_type" db:"event_type"`
	InDate             time.Time `json:"in_date" db:"in_date"`
	StartDate          time.Time `json:"start_dt" db:"start_dt" validate:"required"`
	EndDate            time.Time `json:"end_dt" db:"end_dt"`
	OutDate            time.Time `json:"out_date" db:"out_date"`
	ForecastAttendance float64   `json:"est_attendance" db:"est_attendance" validate:"gte=0"`
	ActualAttendance   float64   `json:"actual_attendance" db:"actual_attendance"`
	RevisedAttendance  float64   `json:"revised_attendance" db:"revised_attendance"`
	CurrentAttendance  float64   `json:"current_attendance" db:"current_attendance"`
	Contact            string    `json:"contact" db:"contact"`
	Salesperson        string    `json:"salesperson" db:"salesperson"`
}

// LifecycleOrdered reports whether in <= start <= end <= out, ignoring unset dates.
func (e EventRecord) LifecycleOrdered() bool {
	dates := []time.Time{e.InDate, e.StartDate, e.EndDate, e.OutDate}
	var prev time.Time
	for _, d := range dates {
		if d.IsZero() {
			continue
		}
		if !prev.IsZero() && d.Before(prev) {
			return false
		}
		prev = d
	}
	return true
}
