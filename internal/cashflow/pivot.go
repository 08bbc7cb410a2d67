package cashflow

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-cashflow/internal/date"
	"github.com/sjperalta/fintera-cashflow/internal/models"
)

// MaxPivotMonths bounds the number of month columns a pivot may hold.
const MaxPivotMonths = 36

// ErrInvalidRange is returned when the pivot range ends before it starts.
var ErrInvalidRange = errors.New("intervalo de meses inválido")

// PivotRow is one label's net amounts per month plus its total.
type PivotRow struct {
	Label string            `json:"label"`
	Cells []decimal.Decimal `json:"cells"`
	Total decimal.Decimal   `json:"total"`
}

// Pivot is a label × month matrix of net signed amounts. Columns are fixed by the
// requested range, not by which months have data.
type Pivot struct {
	Months       []string          `json:"months"`
	Rows         []PivotRow        `json:"rows"`
	ColumnTotals []decimal.Decimal `json:"column_totals"`
	GrandTotal   decimal.Decimal   `json:"grand_total"`
	Truncated    bool              `json:"truncated"`
}

// BuildPivot sums the signed amount of every counted entry into its (label, month)
// cell. Entries outside [from, to] or without a usable date are ignored. Ranges
// longer than MaxPivotMonths are cut at from+MaxPivotMonths-1 and flagged Truncated.
func BuildPivot(entries []models.LedgerEntry, label func(models.LedgerEntry) string, from, to date.YearMonth) (*Pivot, error) {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return nil, ErrInvalidRange
	}
	p := &Pivot{}
	n := date.MonthsBetween(from, to)
	if n > MaxPivotMonths {
		n = MaxPivotMonths
		p.Truncated = true
	}

	col := make(map[date.YearMonth]int, n)
	p.Months = make([]string, n)
	p.ColumnTotals = zeros(n)
	for i := 0; i < n; i++ {
		m := from.AddMonths(i)
		col[m] = i
		p.Months[i] = m.String()
	}

	rows := make(map[string]*PivotRow)
	for _, e := range entries {
		if !e.CountsTowardTotals() {
			continue
		}
		m, ok := EntryMonth(e)
		if !ok {
			continue
		}
		i, ok := col[m]
		if !ok {
			continue
		}
		l := label(e)
		row, exists := rows[l]
		if !exists {
			row = &PivotRow{Label: l, Cells: zeros(n)}
			rows[l] = row
		}
		v := e.SignedAmount()
		row.Cells[i] = row.Cells[i].Add(v)
		row.Total = row.Total.Add(v)
		p.ColumnTotals[i] = p.ColumnTotals[i].Add(v)
		p.GrandTotal = p.GrandTotal.Add(v)
	}

	p.Rows = make([]PivotRow, 0, len(rows))
	for _, r := range rows {
		p.Rows = append(p.Rows, *r)
	}
	sort.Slice(p.Rows, func(i, j int) bool { return p.Rows[i].Label < p.Rows[j].Label })
	return p, nil
}

func zeros(n int) []decimal.Decimal {
	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = decimal.Zero
	}
	return out
}
