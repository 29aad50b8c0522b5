package ledger

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Fixed-width calendar day key
// =============================================================================

// Date is a calendar day in fixed-width YYYYMMDD form. The zero-padded
// format makes lexicographic order equal chronological order, which every
// range scan and latest-before / next-after query relies on.
type Date string

const dateLayout = "20060102"

// ParseDate validates a YYYYMMDD string.
func ParseDate(s string) (Date, error) {
	if len(s) != len(dateLayout) {
		return "", &ValidationError{Field: "date", Message: fmt.Sprintf("want YYYYMMDD, got %q", s)}
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		return "", &ValidationError{Field: "date", Message: fmt.Sprintf("invalid date %q", s)}
	}
	return Date(s), nil
}

func NewDate(year int, month time.Month, day int) Date {
	return Date(time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Format(dateLayout))
}

func Today() Date {
	return Date(time.Now().UTC().Format(dateLayout))
}

func (d Date) Time() time.Time {
	t, _ := time.Parse(dateLayout, string(d))
	return t
}

func (d Date) AddDays(n int) Date {
	return Date(d.Time().AddDate(0, 0, n).Format(dateLayout))
}

// Comparison reduces to string comparison thanks to the fixed-width format.
func (d Date) Before(o Date) bool        { return d < o }
func (d Date) After(o Date) bool         { return d > o }
func (d Date) BeforeOrEqual(o Date) bool { return d <= o }
func (d Date) AfterOrEqual(o Date) bool  { return d >= o }

func (d Date) IsZero() bool { return d == "" }

func (d Date) String() string { return string(d) }
