package cashflow

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-cashflow/internal/date"
	"github.com/sjperalta/fintera-cashflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateByMonth(t *testing.T) {
	confirmed := entry(5, models.OperationRevenue, "40", "2025-01-28", models.EntryStatusConfirmed)
	confirmed.SettlementDate = date.MustParse("2025-02-02")

	entries := []models.LedgerEntry{
		pending(1, models.OperationExpense, "100", "2025-01-05"),
		pending(2, models.OperationRevenue, "300", "2025-01-20"),
		pending(3, models.OperationContribution, "50", "2025-02-10"),
		pending(4, models.OperationWithdrawal, "20", "2025-02-11"),
		confirmed,
		entry(6, models.OperationExpense, "999", "2025-01-07", models.EntryStatusSkipped),
		entry(7, models.OperationExpense, "999", "2025-01-08", models.EntryStatusReversed),
		pending(8, models.OperationExpense, "999", ""),
	}

	aggs := Aggregate(entries, ByMonth)
	require.Len(t, aggs, 2)

	jan, feb := aggs[0], aggs[1]
	assert.Equal(t, "2025-01", jan.Key)
	assert.Equal(t, "100", jan.PendingOut.String())
	assert.Equal(t, "300", jan.PendingIn.String())
	assert.True(t, jan.RealizedIn.IsZero())
	assert.Equal(t, 2, jan.Count)
	assert.Equal(t, "200", jan.Net().String())

	assert.Equal(t, "2025-02", feb.Key)
	assert.Equal(t, "50", feb.PendingIn.String())
	assert.Equal(t, "20", feb.PendingOut.String())
	assert.Equal(t, "40", feb.RealizedIn.String(), "confirmed entry lands in its settlement month")
	assert.Equal(t, "70", feb.Net().String())
	assert.Equal(t, "30", feb.PendingNet().String())
}

func TestAggregateConservation(t *testing.T) {
	entries := []models.LedgerEntry{
		pending(1, models.OperationExpense, "100.10", "2025-01-05"),
		pending(2, models.OperationRevenue, "300.25", "2025-03-20"),
		entry(3, models.OperationWithdrawal, "42.00", "2025-02-01", models.EntryStatusConfirmed),
		entry(4, models.OperationContribution, "7.77", "2025-02-09", models.EntryStatusConfirmed),
		entry(5, models.OperationRevenue, "500", "2025-02-09", models.EntryStatusSkipped),
		pending(6, models.OperationExpense, "13.13", "2025-05-30"),
	}
	costCenter := uint(9)
	entries[0].CostCenterID = &costCenter

	want := decimal.Zero
	for _, e := range entries {
		if e.Status != models.EntryStatusSkipped {
			want = want.Add(e.SignedAmount())
		}
	}

	keys := map[string]GroupKey{
		"month":            ByMonth,
		"cost_center":      ByCostCenter(map[uint]string{9: "Obra"}, "Sem centro"),
		"commitment_group": ByCommitmentGroup(nil, "Sem grupo"),
	}
	for name, key := range keys {
		t.Run(name, func(t *testing.T) {
			got := decimal.Zero
			for _, g := range Aggregate(entries, key) {
				got = got.Add(g.Net())
			}
			assert.True(t, want.Equal(got), "want %s got %s", want, got)
		})
	}
}

func TestByCostCenterLabels(t *testing.T) {
	known, unknown := uint(1), uint(2)
	a := pending(1, models.OperationExpense, "10", "2025-01-01")
	a.CostCenterID = &known
	b := pending(2, models.OperationExpense, "10", "2025-01-01")
	b.CostCenterID = &unknown
	c := pending(3, models.OperationExpense, "10", "2025-01-01")

	aggs := Aggregate([]models.LedgerEntry{a, b, c}, ByCostCenter(map[uint]string{1: "Administrativo"}, "Sem centro de custo"))
	keys := []string{}
	for _, g := range aggs {
		keys = append(keys, g.Key)
		assert.True(t, g.Period.IsZero())
	}
	assert.Equal(t, []string{"#2", "Administrativo", "Sem centro de custo"}, keys)
}

func TestTotals(t *testing.T) {
	aggs := Aggregate([]models.LedgerEntry{
		pending(1, models.OperationExpense, "10", "2025-01-01"),
		pending(2, models.OperationRevenue, "25", "2025-02-01"),
	}, ByMonth)
	total := Totals(aggs)
	assert.Equal(t, "15", total.Net().String())
	assert.Equal(t, 2, total.Count)
}
