package statemachine

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-cashflow/internal/date"
	"github.com/sjperalta/fintera-cashflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPending() *models.LedgerEntry {
	return &models.LedgerEntry{
		ID:        1,
		Operation: models.OperationExpense,
		Amount:    decimal.NewFromInt(100),
		DueDate:   date.MustParse("2025-01-05"),
		Status:    models.EntryStatusPending,
	}
}

func TestConfirmThenReverseRoundTrip(t *testing.T) {
	ctx := context.Background()
	entry := newPending()

	require.NoError(t, NewEntryFSM(entry).Confirm(ctx, 3, date.MustParse("2025-01-06"), decimal.Zero))
	assert.Equal(t, models.EntryStatusConfirmed, entry.Status)
	assert.Equal(t, "2025-01-06", entry.SettlementDate.String())
	require.NotNil(t, entry.AccountID)
	assert.Equal(t, uint(3), *entry.AccountID)
	assert.Equal(t, "100", entry.Amount.String())

	require.NoError(t, NewEntryFSM(entry).Reverse(ctx))
	assert.Equal(t, models.EntryStatusPending, entry.Status)
	assert.True(t, entry.SettlementDate.IsZero())
}

func TestConfirmWithPaidAmount(t *testing.T) {
	entry := newPending()
	require.NoError(t, NewEntryFSM(entry).Confirm(context.Background(), 3, date.MustParse("2025-01-06"), decimal.RequireFromString("98.50")))
	assert.Equal(t, "98.5", entry.Amount.String())
}

func TestReverseOnPendingIsRejected(t *testing.T) {
	entry := newPending()
	before := *entry

	err := NewEntryFSM(entry).Reverse(context.Background())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, before, *entry)
}

func TestIllegalTransitions(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		status string
		apply  func(*EntryFSM) error
	}{
		{"confirm confirmed", models.EntryStatusConfirmed, func(f *EntryFSM) error {
			return f.Confirm(ctx, 1, date.MustParse("2025-01-01"), decimal.Zero)
		}},
		{"confirm skipped", models.EntryStatusSkipped, func(f *EntryFSM) error {
			return f.Confirm(ctx, 1, date.MustParse("2025-01-01"), decimal.Zero)
		}},
		{"skip confirmed", models.EntryStatusConfirmed, func(f *EntryFSM) error { return f.Skip(ctx) }},
		{"skip skipped", models.EntryStatusSkipped, func(f *EntryFSM) error { return f.Skip(ctx) }},
		{"unskip pending", models.EntryStatusPending, func(f *EntryFSM) error { return f.Unskip(ctx) }},
		{"reverse skipped", models.EntryStatusSkipped, func(f *EntryFSM) error { return f.Reverse(ctx) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := newPending()
			entry.Status = tt.status
			before := *entry

			err := tt.apply(NewEntryFSM(entry))
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, before, *entry)
		})
	}
}

func TestSkipAndUnskip(t *testing.T) {
	ctx := context.Background()
	entry := newPending()

	require.NoError(t, NewEntryFSM(entry).Skip(ctx))
	assert.Equal(t, models.EntryStatusSkipped, entry.Status)
	assert.False(t, entry.CountsTowardTotals())

	require.NoError(t, NewEntryFSM(entry).Unskip(ctx))
	assert.Equal(t, models.EntryStatusPending, entry.Status)
}

func TestConfirmValidatesArguments(t *testing.T) {
	ctx := context.Background()

	entry := newPending()
	err := NewEntryFSM(entry).Confirm(ctx, 0, date.MustParse("2025-01-06"), decimal.Zero)
	assert.ErrorIs(t, err, models.ErrMissingReference)
	assert.Equal(t, models.EntryStatusPending, entry.Status)

	err = NewEntryFSM(entry).Confirm(ctx, 1, date.Date{}, decimal.Zero)
	assert.Error(t, err)
	assert.Equal(t, models.EntryStatusPending, entry.Status)

	err = NewEntryFSM(entry).Confirm(ctx, 1, date.MustParse("2025-01-06"), decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, models.ErrInvalidAmount)
}

func TestCan(t *testing.T) {
	f := NewEntryFSM(newPending())
	assert.True(t, f.Can(EventConfirm))
	assert.True(t, f.Can(EventSkip))
	assert.False(t, f.Can(EventReverse))
	assert.Equal(t, models.EntryStatusPending, f.Current())
}
