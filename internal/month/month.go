package month

import (
	"fmt"
	"time"
)

// Layout is the wire/storage format for a billing month.
const Layout = "2006-01"

// Month identifies a single billing period: one calendar month in the
// billing timezone. The zero value is not a valid month.
type Month struct {
	year int
	mon  time.Month
}

// New returns the month for the given year and calendar month. Values
// outside January..December are normalized the way time.Date does.
func New(year int, mon time.Month) Month {
	t := time.Date(year, mon, 1, 0, 0, 0, 0, time.UTC)
	return Month{year: t.Year(), mon: t.Month()}
}

// Parse reads a month in "2006-01" form.
func Parse(s string) (Month, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return Month{}, fmt.Errorf("parsing month %q: %w", s, err)
	}

	return Month{year: t.Year(), mon: t.Month()}, nil
}

// FromTime returns the billing month the instant t falls in, evaluated in
// loc. The location matters near midnight at month boundaries: an instant
// that is still the 31st in UTC may already be the 1st in Nairobi.
func FromTime(t time.Time, loc *time.Location) Month {
	t = t.In(loc)
	return Month{year: t.Year(), mon: t.Month()}
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.year, int(m.mon))
}

func (m Month) IsZero() bool {
	return m.year == 0 && m.mon == 0
}

func (m Month) Next() Month {
	return New(m.year, m.mon+1)
}

func (m Month) Prev() Month {
	return New(m.year, m.mon-1)
}

func (m Month) Before(o Month) bool {
	if m.year != o.year {
		return m.year < o.year
	}

	return m.mon < o.mon
}

// Day returns the instant the given day of this month starts in loc.
func (m Month) Day(day int, loc *time.Location) time.Time {
	return time.Date(m.year, m.mon, day, 0, 0, 0, 0, loc)
}
