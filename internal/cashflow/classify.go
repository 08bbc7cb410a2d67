// Package cashflow holds the pure ledger computations: temporal classification,
// bucketing into windows, aggregation, balance projection, cost-center split
// resolution and the cost-center by month pivot.
//
// Nothing here touches a store or a clock. Callers pass an explicit snapshot of
// entries and the "today" they want the computation to run against.
package cashflow

import (
	"errors"

	"github.com/sjperalta/fintera-cashflow/internal/date"
)

// ErrMalformedDate marks an entry whose due date is missing or could not be parsed.
// Such entries are excluded from windows and projections, never treated as overdue.
var ErrMalformedDate = errors.New("data de vencimento ausente ou inválida")

// Label is the temporal status of an entry relative to today
type Label string

const (
	LabelOverdue  Label = "overdue"
	LabelDueToday Label = "due_today"
	LabelUpcoming Label = "upcoming"
)

// Classification is the result of comparing a due date with today.
// OffsetDays > 0 means overdue by that many days, < 0 means due in -OffsetDays days.
type Classification struct {
	OffsetDays int   `json:"offset_days"`
	Label      Label `json:"label"`
}

// Classify compares two calendar days. Both values are already day-granular, so the
// result does not depend on time of day or on the offset the dates were read in.
func Classify(today, due date.Date) (Classification, error) {
	if due.IsZero() || today.IsZero() {
		return Classification{}, ErrMalformedDate
	}
	offset := date.DaysBetween(due, today)
	c := Classification{OffsetDays: offset, Label: LabelUpcoming}
	switch {
	case offset > 0:
		c.Label = LabelOverdue
	case offset == 0:
		c.Label = LabelDueToday
	}
	return c, nil
}
