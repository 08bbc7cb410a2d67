package services

import (
	"github.com/sjperalta/fintera-cashflow/internal/config"
	"github.com/sjperalta/fintera-cashflow/internal/events"
	"github.com/sjperalta/fintera-cashflow/internal/jobs"
	"github.com/sjperalta/fintera-cashflow/internal/repository"
	"github.com/sjperalta/fintera-cashflow/internal/storage"
)

// Services holds all service instances
type Services struct {
	Cashflow       *CashflowService
	Reconciliation *ReconciliationService
	Overdue        *OverdueService
	Export         *ExportService
	Audit          *AuditService
	Events         *EventService
	Job            *JobService
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, worker *jobs.Worker, storage *storage.LocalStorage, publisher events.Publisher, cfg *config.Config) *Services {
	auditSvc := NewAuditService(repos.Audit)
	eventSvc := NewEventService(publisher, worker)
	cashflowSvc := NewCashflowService(repos.Ledger, cfg.Timezone)

	return &Services{
		Cashflow:       cashflowSvc,
		Reconciliation: NewReconciliationService(repos.Ledger, auditSvc, eventSvc, cfg.Timezone),
		Overdue:        NewOverdueService(repos.Ledger, eventSvc, cfg.Timezone),
		Export:         NewExportService(cashflowSvc, storage, cfg.Currency),
		Audit:          auditSvc,
		Events:         eventSvc,
		Job:            NewJobService(worker),
	}
}
