package core

import (
	"fmt"
	"time"
)

// YearMonth is the month key used to group transactions.
type YearMonth struct {
	Year  int
	Month int // 1-12
}

func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("parse year-month %q: %w", s, err)
	}
	return YearMonth{Year: t.Year(), Month: int(t.Month())}, nil
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}

// Label renders the month for display, e.g. "January 2025".
func (ym YearMonth) Label() string {
	return fmt.Sprintf("%s %d", time.Month(ym.Month), ym.Year)
}

func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// Contains reports whether d falls in this month.
func (ym YearMonth) Contains(d Date) bool {
	return d.Valid() && d.Year() == ym.Year && d.Month() == ym.Month
}
