package cashflow

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ForecastRow is a month aggregate plus the projected balance after that month.
type ForecastRow struct {
	MonthlyAggregate
	Month          string          `json:"month"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// ProjectForecast accumulates pending net flows on top of start, oldest month first.
// Realized amounts are already part of start and do not move the balance. Aggregates
// without a period cannot be placed in time and are left out.
//
// The input is copied and sorted here, so the caller's order never matters; the
// returned rows are ascending. Use Descending for newest-first display.
func ProjectForecast(start decimal.Decimal, aggregates []MonthlyAggregate) []ForecastRow {
	months := make([]MonthlyAggregate, 0, len(aggregates))
	for _, a := range aggregates {
		if a.Period.IsZero() {
			continue
		}
		months = append(months, a)
	}
	sort.SliceStable(months, func(i, j int) bool {
		return months[i].Period.Before(months[j].Period)
	})

	rows := make([]ForecastRow, len(months))
	balance := start
	for i, m := range months {
		balance = balance.Add(m.PendingNet())
		rows[i] = ForecastRow{
			MonthlyAggregate: m,
			Month:            m.Period.String(),
			RunningBalance:   balance,
		}
	}
	return rows
}

// Descending returns a newest-first copy of rows. Balances are carried as computed.
func Descending(rows []ForecastRow) []ForecastRow {
	out := make([]ForecastRow, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = r
	}
	return out
}
