package domain

import (
	"fmt"
	"time"
)

const periodLayout = "2006-01"

// Period is an inclusive date window [Start, End] at day granularity.
type Period struct {
	Label string
	Start time.Time
	End   time.Time
}

// ParsePeriod parses "YYYY-MM" into the calendar month it names.
func ParsePeriod(s string) (Period, error) {
	start, err := time.Parse(periodLayout, s)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q, expected YYYY-MM: %w", s, err)
	}
	end := start.AddDate(0, 1, -1)
	return Period{Label: s, Start: start, End: end}, nil
}

// NewPeriod builds a custom window. The label defaults to "start..end".
func NewPeriod(start, end time.Time) (Period, error) {
	start, end = truncateDay(start), truncateDay(end)
	if end.Before(start) {
		return Period{}, fmt.Errorf("period end %s before start %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	return Period{
		Label: start.Format("2006-01-02") + ".." + end.Format("2006-01-02"),
		Start: start,
		End:   end,
	}, nil
}

// Days is the inclusive number of calendar days in the window.
func (p Period) Days() int {
	return int(truncateDay(p.End).Sub(truncateDay(p.Start)).Hours()/24) + 1
}

// Contains reports whether t falls on a calendar day inside the window, both ends inclusive.
func (p Period) Contains(t time.Time) bool {
	d := truncateDay(t)
	return !d.Before(truncateDay(p.Start)) && !d.After(truncateDay(p.End))
}

func (p Period) String() string {
	return p.Label
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayKey returns the calendar day of t, used to aggregate records per day.
func DayKey(t time.Time) time.Time {
	return truncateDay(t)
}
