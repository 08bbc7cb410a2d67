package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-cashflow/internal/date"
	"github.com/sjperalta/fintera-cashflow/internal/events"
	"github.com/sjperalta/fintera-cashflow/internal/jobs"
	"github.com/sjperalta/fintera-cashflow/internal/models"
	"github.com/sjperalta/fintera-cashflow/internal/repository/memory"
	"github.com/stretchr/testify/assert"
)

// 2025-03-15 is "today" in every service test
var fixedNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memory.Store
	audit    *memory.AuditLog
	recorder *events.Recorder
	worker   *jobs.Worker
	account  models.Account

	cashflow *CashflowService
	recon    *ReconciliationService
	overdue  *OverdueService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := func() time.Time { return fixedNow }

	f := &fixture{
		store:    memory.NewStore(),
		audit:    memory.NewAuditLog(),
		recorder: &events.Recorder{},
		worker:   jobs.NewWorker(2),
	}
	t.Cleanup(f.worker.Shutdown)

	auditSvc := NewAuditService(f.audit)
	eventSvc := NewEventService(f.recorder, f.worker)

	f.cashflow = NewCashflowService(f.store, time.UTC)
	f.cashflow.now = clock
	f.recon = NewReconciliationService(f.store, auditSvc, eventSvc, time.UTC)
	f.recon.now = clock
	f.overdue = NewOverdueService(f.store, eventSvc, time.UTC)
	f.overdue.now = clock

	f.account = f.store.AddAccount(models.Account{
		OrganizationID: 1,
		Name:           "Conta corrente",
		OpeningBalance: decimal.NewFromInt(1000),
		Active:         true,
	})
	return f
}

func (f *fixture) pending(op models.Operation, amount int64, due string) models.LedgerEntry {
	e := models.LedgerEntry{
		OrganizationID: 1,
		Operation:      op,
		Amount:         decimal.NewFromInt(amount),
		Status:         models.EntryStatusPending,
	}
	if due != "" {
		e.DueDate = date.MustParse(due)
	}
	return f.store.AddEntry(e)
}

// published waits for every queued event and returns their types
func (f *fixture) published() []string {
	f.worker.Shutdown()
	return f.recorder.Types()
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func ptr(v uint) *uint { return &v }
