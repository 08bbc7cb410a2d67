package cashflow

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-cashflow/internal/date"
	"github.com/sjperalta/fintera-cashflow/internal/models"
)

// MonthlyAggregate keeps four non-negative sums per group. Sign is only applied by Net
// and PendingNet.
type MonthlyAggregate struct {
	Key         string          `json:"key"`
	Period      date.YearMonth  `json:"-"`
	PendingIn   decimal.Decimal `json:"pending_in"`
	PendingOut  decimal.Decimal `json:"pending_out"`
	RealizedIn  decimal.Decimal `json:"realized_in"`
	RealizedOut decimal.Decimal `json:"realized_out"`
	Count       int             `json:"count"`
}

// Net is (pending_in + realized_in) − (pending_out + realized_out).
func (a MonthlyAggregate) Net() decimal.Decimal {
	return a.PendingIn.Add(a.RealizedIn).Sub(a.PendingOut.Add(a.RealizedOut))
}

// PendingNet is pending_in − pending_out.
func (a MonthlyAggregate) PendingNet() decimal.Decimal {
	return a.PendingIn.Sub(a.PendingOut)
}

// Group identifies the bucket an entry is summed into. Period is set only for
// month-keyed groups.
type Group struct {
	Key    string
	Period date.YearMonth
}

// GroupKey assigns an entry to a group; ok=false leaves the entry out.
type GroupKey func(e models.LedgerEntry) (g Group, ok bool)

// EntryMonth is the month an entry belongs to: the settlement month once confirmed,
// otherwise the due month.
func EntryMonth(e models.LedgerEntry) (date.YearMonth, bool) {
	if e.Status == models.EntryStatusConfirmed && !e.SettlementDate.IsZero() {
		return e.SettlementDate.YearMonth(), true
	}
	if e.DueDate.IsZero() {
		return date.YearMonth{}, false
	}
	return e.DueDate.YearMonth(), true
}

// ByMonth groups by EntryMonth.
func ByMonth(e models.LedgerEntry) (Group, bool) {
	m, ok := EntryMonth(e)
	if !ok {
		return Group{}, false
	}
	return Group{Key: m.String(), Period: m}, true
}

// ByCostCenter groups by the cost center label. Entries without a cost center, or
// whose center has no label, fall under fallback.
func ByCostCenter(labels map[uint]string, fallback string) GroupKey {
	return byRef(func(e models.LedgerEntry) *uint { return e.CostCenterID }, labels, fallback)
}

// ByCommitmentGroup groups by commitment group label.
func ByCommitmentGroup(labels map[uint]string, fallback string) GroupKey {
	return byRef(func(e models.LedgerEntry) *uint { return e.CommitmentGroupID }, labels, fallback)
}

func byRef(ref func(models.LedgerEntry) *uint, labels map[uint]string, fallback string) GroupKey {
	return func(e models.LedgerEntry) (Group, bool) {
		id := ref(e)
		if id == nil {
			return Group{Key: fallback}, true
		}
		if label, ok := labels[*id]; ok && label != "" {
			return Group{Key: label}, true
		}
		return Group{Key: "#" + strconv.FormatUint(uint64(*id), 10)}, true
	}
}

// Aggregate sums entries per group. Confirmed entries go to the realized buckets,
// pending ones to the pending buckets; skipped and reversed entries add nothing.
// The result is ordered by period, then key.
func Aggregate(entries []models.LedgerEntry, key GroupKey) []MonthlyAggregate {
	groups := make(map[string]*MonthlyAggregate)
	for _, e := range entries {
		if !e.CountsTowardTotals() {
			continue
		}
		g, ok := key(e)
		if !ok {
			continue
		}
		agg, exists := groups[g.Key]
		if !exists {
			agg = &MonthlyAggregate{Key: g.Key, Period: g.Period}
			groups[g.Key] = agg
		}
		agg.add(e)
	}

	out := make([]MonthlyAggregate, 0, len(groups))
	for _, agg := range groups {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Period.Compare(out[j].Period); c != 0 {
			return c < 0
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func (a *MonthlyAggregate) add(e models.LedgerEntry) {
	amount := e.Amount.Abs()
	inflow := e.Operation.IsInflow()
	switch {
	case e.Status == models.EntryStatusConfirmed && inflow:
		a.RealizedIn = a.RealizedIn.Add(amount)
	case e.Status == models.EntryStatusConfirmed:
		a.RealizedOut = a.RealizedOut.Add(amount)
	case inflow:
		a.PendingIn = a.PendingIn.Add(amount)
	default:
		a.PendingOut = a.PendingOut.Add(amount)
	}
	a.Count++
}

// Totals folds aggregates into a single row keyed "total".
func Totals(aggs []MonthlyAggregate) MonthlyAggregate {
	t := MonthlyAggregate{Key: "total"}
	for _, a := range aggs {
		t.PendingIn = t.PendingIn.Add(a.PendingIn)
		t.PendingOut = t.PendingOut.Add(a.PendingOut)
		t.RealizedIn = t.RealizedIn.Add(a.RealizedIn)
		t.RealizedOut = t.RealizedOut.Add(a.RealizedOut)
		t.Count += a.Count
	}
	return t
}
