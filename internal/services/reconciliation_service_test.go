package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-cashflow/internal/date"
	"github.com/sjperalta/fintera-cashflow/internal/events"
	"github.com/sjperalta/fintera-cashflow/internal/models"
	"github.com/sjperalta/fintera-cashflow/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var actor = Actor{OrganizationID: 1, UserID: 42}

func TestConfirmAndReverseRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.pending(models.OperationExpense, 100, "2025-03-10")

	confirmed, err := f.recon.Confirm(ctx, actor, e.ID, ConfirmInput{AccountID: f.account.ID})
	require.NoError(t, err)
	assert.Equal(t, models.EntryStatusConfirmed, confirmed.Status)
	assert.Equal(t, date.MustParse("2025-03-15"), confirmed.SettlementDate)
	require.NotNil(t, confirmed.AccountID)
	assert.Equal(t, f.account.ID, *confirmed.AccountID)
	assertDecimal(t, "100", confirmed.Amount)

	balance, err := f.store.CurrentBalance(ctx, 1)
	require.NoError(t, err)
	assertDecimal(t, "900", balance)

	reversed, err := f.recon.Reverse(ctx, actor, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EntryStatusPending, reversed.Status)
	assert.True(t, reversed.SettlementDate.IsZero())
	_, ok := f.store.Movement(e.ID)
	assert.False(t, ok)

	balance, err = f.store.CurrentBalance(ctx, 1)
	require.NoError(t, err)
	assertDecimal(t, "1000", balance)

	logs, total, err := f.audit.List(ctx, 1, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, models.AuditActionReverse, logs[0].Action)
	assert.Equal(t, uint(42), logs[0].UserID)

	assert.ElementsMatch(t, []string{events.TypeEntryConfirmed, events.TypeEntryReversed}, f.published())
}

func TestConfirmWithPaidAmountAndDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.pending(models.OperationExpense, 100, "2025-03-10")

	confirmed, err := f.recon.Confirm(ctx, actor, e.ID, ConfirmInput{
		AccountID: f.account.ID,
		On:        date.MustParse("2025-03-12"),
		Amount:    decimal.RequireFromString("98.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, date.MustParse("2025-03-12"), confirmed.SettlementDate)
	assertDecimal(t, "98.5", confirmed.Amount)

	m, ok := f.store.Movement(e.ID)
	require.True(t, ok)
	assertDecimal(t, "98.5", m.Amount)

	balance, err := f.store.CurrentBalance(ctx, 1)
	require.NoError(t, err)
	assertDecimal(t, "901.5", balance)
}

func TestConfirmFallsBackToEntryAccount(t *testing.T) {
	f := newFixture(t)
	e := f.store.AddEntry(models.LedgerEntry{
		OrganizationID: 1,
		Operation:      models.OperationRevenue,
		Amount:         decimal.NewFromInt(10),
		DueDate:        date.MustParse("2025-03-20"),
		AccountID:      ptr(f.account.ID),
	})

	confirmed, err := f.recon.Confirm(context.Background(), actor, e.ID, ConfirmInput{})
	require.NoError(t, err)
	assert.Equal(t, f.account.ID, *confirmed.AccountID)
}

func TestConfirmRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.store.AddAccount(models.Account{OrganizationID: 2, Name: "Outra", Active: true})
	e := f.pending(models.OperationExpense, 100, "2025-03-10")

	_, err := f.recon.Confirm(ctx, actor, e.ID, ConfirmInput{})
	assert.ErrorIs(t, err, ErrMissingReference)

	_, err = f.recon.Confirm(ctx, actor, e.ID, ConfirmInput{AccountID: other.ID})
	assert.ErrorIs(t, err, ErrMissingReference)

	_, err = f.recon.Confirm(ctx, actor, e.ID, ConfirmInput{AccountID: f.account.ID, Amount: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, models.ErrInvalidAmount)

	closed := f.store.AddAccount(models.Account{OrganizationID: 1, Name: "Encerrada", Active: false})
	_, err = f.recon.Confirm(ctx, actor, e.ID, ConfirmInput{AccountID: closed.ID})
	assert.ErrorIs(t, err, ErrMissingReference)

	_, err = f.recon.Confirm(ctx, actor, e.ID, ConfirmInput{AccountID: 4242})
	assert.ErrorIs(t, err, ErrMissingReference)

	_, err = f.recon.Confirm(ctx, actor, 999, ConfirmInput{AccountID: f.account.ID})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.recon.Confirm(ctx, Actor{OrganizationID: 2}, e.ID, ConfirmInput{AccountID: other.ID})
	assert.ErrorIs(t, err, ErrNotFound)

	stored, err := f.store.FindEntry(ctx, 1, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EntryStatusPending, stored.Status)

	_, err = f.recon.Confirm(ctx, actor, e.ID, ConfirmInput{AccountID: f.account.ID})
	require.NoError(t, err)
	_, err = f.recon.Confirm(ctx, actor, e.ID, ConfirmInput{AccountID: f.account.ID})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReverseRequiresConfirmed(t *testing.T) {
	f := newFixture(t)
	e := f.pending(models.OperationExpense, 100, "2025-03-10")

	_, err := f.recon.Reverse(context.Background(), actor, e.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Empty(t, f.published())
}

func TestSkipAndUnskip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.pending(models.OperationExpense, 100, "2025-03-20")

	skipped, err := f.recon.Skip(ctx, actor, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EntryStatusSkipped, skipped.Status)

	report, err := f.cashflow.Forecast(ctx, 1, date.YearMonth{}, date.YearMonth{})
	require.NoError(t, err)
	assert.Empty(t, report.Rows)

	_, err = f.recon.Confirm(ctx, actor, e.ID, ConfirmInput{AccountID: f.account.ID})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.recon.Skip(ctx, actor, e.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	unskipped, err := f.recon.Unskip(ctx, actor, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EntryStatusPending, unskipped.Status)

	assert.ElementsMatch(t, []string{events.TypeEntrySkipped, events.TypeEntryUnskipped}, f.published())
}

func TestBulkConfirmContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.pending(models.OperationExpense, 100, "2025-03-10")
	b := f.pending(models.OperationRevenue, 50, "2025-03-11")
	skipped := f.pending(models.OperationExpense, 10, "2025-03-12")
	_, err := f.store.Skip(ctx, 1, skipped.ID)
	require.NoError(t, err)

	report, err := f.recon.BulkConfirm(ctx, actor, []uint{a.ID, skipped.ID, a.ID, 999, b.ID}, ConfirmInput{AccountID: f.account.ID})
	require.Error(t, err)
	assert.Equal(t, []uint{a.ID, b.ID}, report.Confirmed)
	require.Len(t, report.Failed, 2)
	assert.Equal(t, skipped.ID, report.Failed[0].EntryID)
	assert.Equal(t, uint(999), report.Failed[1].EntryID)

	partial, ok := IsPartial(err)
	require.True(t, ok)
	assert.Equal(t, 2, partial.Succeeded)
	assert.Equal(t, "2 succeeded, 2 failed", err.Error())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, err, ErrNotFound)

	balance, err := f.store.CurrentBalance(ctx, 1)
	require.NoError(t, err)
	assertDecimal(t, "950", balance)
}

func TestBulkConfirmAllSucceed(t *testing.T) {
	f := newFixture(t)
	a := f.pending(models.OperationExpense, 100, "2025-03-10")

	report, err := f.recon.BulkConfirm(context.Background(), actor, []uint{a.ID}, ConfirmInput{AccountID: f.account.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID}, report.Confirmed)
	assert.Empty(t, report.Failed)

	_, ok := IsPartial(err)
	assert.False(t, ok)
}

func TestEditsOnlyOnPendingEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.pending(models.OperationExpense, 100, "2025-03-10")

	updated, err := f.recon.UpdateAmount(ctx, actor, e.ID, decimal.NewFromInt(120))
	require.NoError(t, err)
	assertDecimal(t, "120", updated.Amount)

	updated, err = f.recon.UpdateDueDate(ctx, actor, e.ID, date.MustParse("2025-04-01"))
	require.NoError(t, err)
	assert.Equal(t, date.MustParse("2025-04-01"), updated.DueDate)

	_, err = f.recon.UpdateAmount(ctx, actor, e.ID, decimal.Zero)
	assert.ErrorIs(t, err, models.ErrInvalidAmount)
	_, err = f.recon.UpdateDueDate(ctx, actor, e.ID, date.Date{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.recon.Confirm(ctx, actor, e.ID, ConfirmInput{AccountID: f.account.ID})
	require.NoError(t, err)
	_, err = f.recon.UpdateAmount(ctx, actor, e.ID, decimal.NewFromInt(5))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDeleteGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := f.pending(models.OperationExpense, 100, "2025-03-10")
	confirmed := f.pending(models.OperationExpense, 100, "2025-03-10")
	_, err := f.recon.Confirm(ctx, actor, confirmed.ID, ConfirmInput{AccountID: f.account.ID})
	require.NoError(t, err)

	err = f.recon.Delete(ctx, actor, confirmed.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, f.recon.Delete(ctx, actor, pending.ID))
	_, err = f.store.FindEntry(ctx, 1, pending.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = f.recon.Delete(ctx, actor, pending.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateForcesPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry := &models.LedgerEntry{
		Operation:      models.OperationRevenue,
		Amount:         decimal.NewFromInt(10),
		DueDate:        date.MustParse("2025-05-01"),
		Status:         models.EntryStatusConfirmed,
		SettlementDate: date.MustParse("2025-05-01"),
	}
	require.NoError(t, f.recon.Create(ctx, actor, entry))
	assert.NotZero(t, entry.ID)
	assert.Equal(t, uint(1), entry.OrganizationID)
	assert.Equal(t, models.EntryStatusPending, entry.Status)
	assert.True(t, entry.SettlementDate.IsZero())

	err := f.recon.Create(ctx, actor, &models.LedgerEntry{Operation: models.OperationRevenue, Amount: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = f.recon.Create(ctx, actor, &models.LedgerEntry{
		Operation:    models.OperationRevenue,
		Amount:       decimal.NewFromInt(10),
		DueDate:      date.MustParse("2025-05-01"),
		CostCenterID: ptr(999),
	})
	assert.ErrorIs(t, err, ErrMissingReference)
}

func TestImportAppliesStatuses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	accountID := f.account.ID

	raws := []repository.RawEntry{
		{
			ValorEntrada:   decimal.NewNullDecimal(decimal.NewFromInt(250)),
			DueDate:        "2025-03-01",
			SettlementDate: "2025-03-02",
			Status:         "pago",
			AccountID:      &accountID,
		},
		{Operation: "despesa", Valor: decimal.NewNullDecimal(decimal.NewFromInt(40)), DueDate: "2025-03-20", Status: "ignorado"},
		{Operation: "transferência", Valor: decimal.NewNullDecimal(decimal.NewFromInt(1))},
		{Operation: "despesa", Valor: decimal.NewNullDecimal(decimal.NewFromInt(5)), DueDate: "2025-03-20", Status: "confirmado"},
	}

	report := f.recon.Import(ctx, actor, raws)
	require.Len(t, report.Created, 3)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, 2, report.Failures[0].Index)
	assert.Equal(t, 3, report.Failures[1].Index)

	paid, err := f.store.FindEntry(ctx, 1, report.Created[0])
	require.NoError(t, err)
	assert.Equal(t, models.EntryStatusConfirmed, paid.Status)
	assert.Equal(t, models.OperationRevenue, paid.Operation)
	assert.Equal(t, date.MustParse("2025-03-02"), paid.SettlementDate)

	ignored, err := f.store.FindEntry(ctx, 1, report.Created[1])
	require.NoError(t, err)
	assert.Equal(t, models.EntryStatusSkipped, ignored.Status)

	// no account to settle into, so it stays pending
	noAccount, err := f.store.FindEntry(ctx, 1, report.Created[2])
	require.NoError(t, err)
	assert.Equal(t, models.EntryStatusPending, noAccount.Status)

	balance, err := f.store.CurrentBalance(ctx, 1)
	require.NoError(t, err)
	assertDecimal(t, "1250", balance)
}

func TestStoreConflictIsInvalidTransition(t *testing.T) {
	err := storeError(repository.ErrStatusConflict)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, err, repository.ErrStatusConflict)

	plain := errors.New("boom")
	assert.Equal(t, plain, storeError(plain))
}

func TestUpdateAppliesBothFieldsOrNeither(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.pending(models.OperationExpense, 100, "2025-03-10")

	amount := decimal.NewFromInt(250)
	var noDue date.Date
	_, err := f.recon.Update(ctx, actor, e.ID, repository.EntryChanges{Amount: &amount, DueDate: &noDue})
	assert.ErrorIs(t, err, ErrInvalidInput)

	stored, err := f.store.FindEntry(ctx, 1, e.ID)
	require.NoError(t, err)
	assertDecimal(t, "100", stored.Amount)

	due := date.MustParse("2025-05-02")
	updated, err := f.recon.Update(ctx, actor, e.ID, repository.EntryChanges{Amount: &amount, DueDate: &due})
	require.NoError(t, err)
	assertDecimal(t, "250", updated.Amount)
	assert.Equal(t, due, updated.DueDate)

	_, err = f.recon.Update(ctx, actor, e.ID, repository.EntryChanges{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
