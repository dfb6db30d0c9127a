package domain

import (
	"fmt"
	"strings"
	"time"
)

// ExceptionKind classifies a record-level data-quality issue.
type ExceptionKind string

const (
	ExceptionDuplicateKey       ExceptionKind = "DuplicateKey"
	ExceptionInvalidQuantity    ExceptionKind = "InvalidQuantity"
	ExceptionMissingRateMapping ExceptionKind = "MissingRateMapping"
	ExceptionLifecycleOrder     ExceptionKind = "LifecycleOrder"
	ExceptionInvalidSale        ExceptionKind = "InvalidSale"
)

// Severity of an exception.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
)

const ExceptionStatusOpen = "OPEN"

// ExceptionRecord is one entry of the exception log. Every rejected or overridden record appears
// in exactly one entry.
type ExceptionRecord struct {
	Kind     ExceptionKind `json:"exception_type" db:"exception_type"`
	Severity Severity      `json:"severity" db:"severity"`
	Key      string        `json:"key" db:"key"`
	SKU      string        `json:"sku" db:"sku"`
	Sources  []Source      `json:"sources" db:"-"`
	Detail   string        `json:"detail" db:"detail"`
	Record   string        `json:"data" db:"data"`
	Status   string        `json:"status" db:"status"`
	LoggedAt time.Time     `json:"timestamp" db:"logged_at"`
}

// SourcesLabel joins the contributing sources as "Forms,System".
func (e ExceptionRecord) SourcesLabel() string {
	parts := make([]string, len(e.Sources))
	for i, s := range e.Sources {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

// ParseSources reverses SourcesLabel. Unknown labels are kept verbatim.
func ParseSources(label string) []Source {
	if strings.TrimSpace(label) == "" {
		return nil
	}
	parts := strings.Split(label, ",")
	out := make([]Source, 0, len(parts))
	for _, p := range parts {
		if s, ok := ParseSource(p); ok {
			out = append(out, s)
			continue
		}
		out = append(out, Source(strings.TrimSpace(p)))
	}
	return out
}

// NewInvalidQuantity builds the exception for a count that cannot enter the ledger.
func NewInvalidQuantity(c CountRecord, at time.Time) ExceptionRecord {
	detail := fmt.Sprintf("negative quantity %d", c.Qty)
	if !c.QtyValid {
		detail = fmt.Sprintf("non-numeric quantity %q", c.RawQty)
	}
	return ExceptionRecord{
		Kind:     ExceptionInvalidQuantity,
		Severity: SeverityHigh,
		Key:      c.UniqueKey(),
		SKU:      c.SKU,
		Sources:  []Source{c.Source},
		Detail:   detail,
		Record:   c.String(),
		Status:   ExceptionStatusOpen,
		LoggedAt: at,
	}
}

// CountExceptions tallies exceptions per kind.
func CountExceptions(excs []ExceptionRecord) map[ExceptionKind]int {
	out := make(map[ExceptionKind]int)
	for _, e := range excs {
		out[e.Kind]++
	}
	return out
}

// ExceptionTable flattens the exception log for the reporting layer.
func ExceptionTable(excs []ExceptionRecord) Table {
	t := NewTable("exceptions_log",
		"timestamp", "exception_type", "severity", "key", "sku", "sources", "detail", "data", "status")
	for _, e := range excs {
		t.Append(Row{
			"timestamp":      e.LoggedAt.Format(time.RFC3339),
			"exception_type": string(e.Kind),
			"severity":       string(e.Severity),
			"key":            e.Key,
			"sku":            e.SKU,
			"sources":        e.SourcesLabel(),
			"detail":         e.Detail,
			"data":           e.Record,
			"status":         e.Status,
		})
	}
	return t
}
