package cashflow

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-cashflow/internal/models"
)

// SplitTable holds the split rows of each schedule, keyed by schedule id.
type SplitTable map[uint][]models.CostCenterSplit

// ResolveSplits fans entries booked on a shared cost center out to the centers listed
// for their schedule. Each of the N children receives amount/N rounded to cents, with
// the rounding remainder on the last child so the children always add up to the
// original amount. The weight column is not used.
//
// Entries on a shared center without split rows (or without a schedule) pass through
// unchanged. So do entries whose cost center is unknown, and entries whose split rows
// name a center missing from centers; those are also reported in the returned error,
// which joins one ErrMissingReference per entry. The returned slice is complete even
// when the error is non-nil.
func ResolveSplits(entries []models.LedgerEntry, centers map[uint]models.CostCenter, splits SplitTable) ([]models.LedgerEntry, error) {
	out := make([]models.LedgerEntry, 0, len(entries))
	var errs []error
	for _, e := range entries {
		if e.CostCenterID == nil {
			out = append(out, e)
			continue
		}
		center, ok := centers[*e.CostCenterID]
		if !ok {
			errs = append(errs, fmt.Errorf("lançamento %d: centro de custo %d: %w", e.ID, *e.CostCenterID, models.ErrMissingReference))
			out = append(out, e)
			continue
		}
		if !center.Shared || e.ScheduleID == nil {
			out = append(out, e)
			continue
		}
		rows := splits[*e.ScheduleID]
		if len(rows) == 0 {
			out = append(out, e)
			continue
		}
		if missing, ok := unknownCenter(rows, centers); ok {
			errs = append(errs, fmt.Errorf("lançamento %d: rateio para centro de custo %d: %w", e.ID, missing, models.ErrMissingReference))
			out = append(out, e)
			continue
		}
		out = append(out, fanOut(e, rows)...)
	}
	return out, errors.Join(errs...)
}

func unknownCenter(rows []models.CostCenterSplit, centers map[uint]models.CostCenter) (uint, bool) {
	for _, row := range rows {
		if _, ok := centers[row.CostCenterID]; !ok {
			return row.CostCenterID, true
		}
	}
	return 0, false
}

func fanOut(e models.LedgerEntry, rows []models.CostCenterSplit) []models.LedgerEntry {
	n := len(rows)
	share := e.Amount.DivRound(decimal.NewFromInt(int64(n)), 2)
	children := make([]models.LedgerEntry, n)
	allocated := decimal.Zero
	for i, row := range rows {
		child := e
		centerID := row.CostCenterID
		child.CostCenterID = &centerID
		if i == n-1 {
			child.Amount = e.Amount.Sub(allocated)
		} else {
			child.Amount = share
			allocated = allocated.Add(share)
		}
		children[i] = child
	}
	return children
}
