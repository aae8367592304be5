package domain

import (
	"fmt"
	"strings"
	"time"
)

// Period is a calendar month
type Period struct {
	Year  int
	Month time.Month
}

var periodLayouts = []string{"2006-01", "Jan-06", "Jan-2006", "January 2006"}

// ParsePeriod parses a period label. The canonical form is YYYY-MM; the
// "Jan-25" style labels of the legacy sample sheets are accepted too.
func ParsePeriod(label string) (Period, error) {
	label = strings.TrimSpace(label)
	for _, layout := range periodLayouts {
		if t, err := time.Parse(layout, label); err == nil {
			return Period{Year: t.Year(), Month: t.Month()}, nil
		}
	}
	return Period{}, fmt.Errorf("unrecognized period label %q", label)
}

// MustParsePeriod is ParsePeriod for labels already validated by the catalog.
func MustParsePeriod(label string) Period {
	p, err := ParsePeriod(label)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the canonical YYYY-MM label
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Next returns the following month
func (p Period) Next() Period {
	return p.Add(1)
}

// Add moves the period by n months (n may be negative)
func (p Period) Add(n int) Period {
	t := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	return Period{Year: t.Year(), Month: t.Month()}
}

// Index is a monotonically increasing month counter, used for ordering and gaps.
func (p Period) Index() int {
	return p.Year*12 + int(p.Month) - 1
}

// Quarter returns 1..4
func (p Period) Quarter() int {
	return (int(p.Month)-1)/3 + 1
}
