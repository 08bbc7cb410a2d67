package cashflow

import (
	"testing"

	"github.com/sjperalta/fintera-cashflow/internal/date"
	"github.com/sjperalta/fintera-cashflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowContains(t *testing.T) {
	today := date.MustParse("2025-01-20")
	tests := []struct {
		window Window
		due    string
		want   bool
	}{
		{WindowOverdue, "2025-01-19", true},
		{WindowOverdue, "2025-01-20", true},
		{WindowOverdue, "2025-01-21", false},

		{WindowNext7Days, "2025-01-20", false},
		{WindowNext7Days, "2025-01-21", true},
		{WindowNext7Days, "2025-01-27", true},
		{WindowNext7Days, "2025-01-28", false},

		{WindowCurrentMonth, "2024-11-02", true},
		{WindowCurrentMonth, "2025-01-31", true},
		{WindowCurrentMonth, "2025-02-01", false},

		{WindowNextMonth, "2025-01-31", false},
		{WindowNextMonth, "2025-02-01", true},
		{WindowNextMonth, "2025-02-28", true},
		{WindowNextMonth, "2025-03-01", false},

		{WindowPlus2Months, "2025-03-20", true},
		{WindowPlus2Months, "2025-03-21", false},
		{WindowPlus6Months, "2025-07-20", true},
		{WindowPlus6Months, "2025-01-20", false},
		{WindowPlus12Months, "2026-01-20", true},
		{WindowPlus12Months, "2026-01-21", false},

		{WindowThroughYearEnd, "2025-12-31", true},
		{WindowThroughYearEnd, "2026-01-01", false},
		{WindowThroughYearEnd, "2025-01-20", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.window)+" "+tt.due, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.window.Contains(today, date.MustParse(tt.due)))
		})
	}
}

func TestPlusMonthsClampsAtMonthEnd(t *testing.T) {
	today := date.MustParse("2025-12-31")
	assert.True(t, WindowPlus2Months.Contains(today, date.MustParse("2026-02-28")))
	assert.False(t, WindowPlus2Months.Contains(today, date.MustParse("2026-03-01")))
}

func TestBucketsExcludeMissingDates(t *testing.T) {
	today := date.MustParse("2025-01-20")
	entries := []models.LedgerEntry{
		pending(1, models.OperationExpense, "10", "2025-01-10"),
		pending(2, models.OperationExpense, "10", ""),
		pending(3, models.OperationRevenue, "10", "2025-01-22"),
	}

	buckets := Buckets(entries, today)
	require.Len(t, buckets, len(Windows))

	for w, got := range buckets {
		seen := map[uint]int{}
		for _, e := range got {
			assert.NotEqual(t, uint(2), e.ID, "entry without due date leaked into %s", w)
			seen[e.ID]++
		}
		for id, n := range seen {
			assert.Equal(t, 1, n, "entry %d repeated in %s", id, w)
		}
	}

	ids := func(es []models.LedgerEntry) []uint {
		out := []uint{}
		for _, e := range es {
			out = append(out, e.ID)
		}
		return out
	}
	assert.Equal(t, []uint{1}, ids(buckets[WindowOverdue]))
	assert.Equal(t, []uint{3}, ids(buckets[WindowNext7Days]))
	assert.Equal(t, []uint{1, 3}, ids(buckets[WindowCurrentMonth]))
	assert.Empty(t, buckets[WindowNextMonth])
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("next_month")
	require.NoError(t, err)
	assert.Equal(t, WindowNextMonth, w)

	_, err = ParseWindow("next_decade")
	assert.Error(t, err)
}
