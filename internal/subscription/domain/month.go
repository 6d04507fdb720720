package domain

import (
	"fmt"
	"time"
)

// MonthKey identifies a calendar month. The zero value is not a valid month.
type MonthKey struct {
	Year  int
	Month time.Month
}

// NewMonthKey builds a key, normalising out-of-range months.
func NewMonthKey(year int, month time.Month) MonthKey {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// MonthOf returns the month that contains t in loc.
func MonthOf(t time.Time, loc *time.Location) MonthKey {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return MonthKey{Year: local.Year(), Month: local.Month()}
}

// ParseMonthKey parses the "YYYY-MM" form.
func ParseMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return MonthKey{}, ErrInvalidMonth.WithDetails("%q", s)
	}
	return MonthKey{Year: t.Year(), Month: t.Month()}, nil
}

func (m MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// IsZero reports whether the key is unset.
func (m MonthKey) IsZero() bool { return m.Year == 0 && m.Month == 0 }

// AddMonths moves n months forward (or back when negative).
func (m MonthKey) AddMonths(n int) MonthKey {
	return NewMonthKey(m.Year, m.Month+time.Month(n))
}

func (m MonthKey) Next() MonthKey { return m.AddMonths(1) }

// Before reports whether m is strictly earlier than other.
func (m MonthKey) Before(other MonthKey) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

// Start is the first instant of the month in loc.
func (m MonthKey) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
}

// End is the first instant of the following month; months are half-open.
func (m MonthKey) End(loc *time.Location) time.Time {
	return m.Next().Start(loc)
}

// MarshalText encodes the key as "YYYY-MM".
func (m MonthKey) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes the "YYYY-MM" form.
func (m *MonthKey) UnmarshalText(text []byte) error {
	parsed, err := ParseMonthKey(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
