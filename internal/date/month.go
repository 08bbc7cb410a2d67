package date

import (
	"fmt"
	"time"
)

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// NewYearMonth returns a normalized month (month 13 rolls into the next year).
func NewYearMonth(year int, month time.Month) YearMonth {
	return New(year, month, 1).YearMonth()
}

// ParseYearMonth reads "2025-01" (or "2025-1").
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-1", s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("invalid month %q want format %q", s, "2006-01")
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

func (m YearMonth) IsZero() bool { return m.Year == 0 && m.Month == 0 }

func (m YearMonth) String() string {
	if m.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// AddMonths shifts the month by n.
func (m YearMonth) AddMonths(n int) YearMonth { return NewYearMonth(m.Year, m.Month+time.Month(n)) }

func (m YearMonth) First() Date { return New(m.Year, m.Month, 1) }
func (m YearMonth) Last() Date  { return m.First().EndOfMonth() }

func (m YearMonth) index() int { return m.Year*12 + int(m.Month) - 1 }

// Compare returns -1, 0 or +1.
func (m YearMonth) Compare(x YearMonth) int {
	switch a, b := m.index(), x.index(); {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (m YearMonth) Before(x YearMonth) bool { return m.Compare(x) < 0 }
func (m YearMonth) After(x YearMonth) bool  { return m.Compare(x) > 0 }

// MonthsBetween counts the months in the inclusive range [from, to]; it is zero when to
// precedes from.
func MonthsBetween(from, to YearMonth) int {
	n := to.index() - from.index() + 1
	if n < 0 {
		return 0
	}
	return n
}
