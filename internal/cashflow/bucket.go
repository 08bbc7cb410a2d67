package cashflow

import (
	"fmt"

	"github.com/sjperalta/fintera-cashflow/internal/date"
	"github.com/sjperalta/fintera-cashflow/internal/models"
)

// Window is a named temporal filter over due dates
type Window string

const (
	WindowOverdue        Window = "overdue"
	WindowNext7Days      Window = "next_7_days"
	WindowCurrentMonth   Window = "current_month"
	WindowNextMonth      Window = "next_month"
	WindowPlus2Months    Window = "plus_2_months"
	WindowPlus6Months    Window = "plus_6_months"
	WindowPlus12Months   Window = "plus_12_months"
	WindowThroughYearEnd Window = "through_year_end"
)

// Windows lists every window in display order.
var Windows = []Window{
	WindowOverdue,
	WindowNext7Days,
	WindowCurrentMonth,
	WindowNextMonth,
	WindowPlus2Months,
	WindowPlus6Months,
	WindowPlus12Months,
	WindowThroughYearEnd,
}

// ParseWindow validates a window name
func ParseWindow(s string) (Window, error) {
	for _, w := range Windows {
		if string(w) == s {
			return w, nil
		}
	}
	return "", fmt.Errorf("janela desconhecida: %q", s)
}

// Contains reports whether a due date falls in the window as seen from today.
// A zero due date is never contained.
func (w Window) Contains(today, due date.Date) bool {
	if due.IsZero() || today.IsZero() {
		return false
	}
	upcomingUntil := func(limit date.Date) bool {
		return due.After(today) && !due.After(limit)
	}
	switch w {
	case WindowOverdue:
		return !due.After(today)
	case WindowNext7Days:
		return upcomingUntil(today.AddDays(7))
	case WindowCurrentMonth:
		return !due.After(today.EndOfMonth())
	case WindowNextMonth:
		next := today.FirstOfMonth().AddMonths(1)
		return !due.Before(next) && !due.After(next.EndOfMonth())
	case WindowPlus2Months:
		return upcomingUntil(today.AddMonths(2))
	case WindowPlus6Months:
		return upcomingUntil(today.AddMonths(6))
	case WindowPlus12Months:
		return upcomingUntil(today.AddMonths(12))
	case WindowThroughYearEnd:
		return upcomingUntil(today.EndOfYear())
	}
	return false
}

// Filter returns the entries whose due date falls in w, preserving input order.
func Filter(entries []models.LedgerEntry, today date.Date, w Window) []models.LedgerEntry {
	out := make([]models.LedgerEntry, 0)
	for _, e := range entries {
		if w.Contains(today, e.DueDate) {
			out = append(out, e)
		}
	}
	return out
}

// Buckets evaluates every window independently. An entry may appear under several
// windows but at most once under each.
func Buckets(entries []models.LedgerEntry, today date.Date) map[Window][]models.LedgerEntry {
	out := make(map[Window][]models.LedgerEntry, len(Windows))
	for _, w := range Windows {
		out[w] = Filter(entries, today, w)
	}
	return out
}
