package handlers

import (
	"github.com/sjperalta/fintera-cashflow/internal/services"
)

// Handlers holds all handler instances
type Handlers struct {
	Health   *HealthHandler
	Entry    *EntryHandler
	Cashflow *CashflowHandler
	Audit    *AuditHandler
	Job      *JobHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services) *Handlers {
	return &Handlers{
		Health:   NewHealthHandler(),
		Entry:    NewEntryHandler(svcs.Cashflow, svcs.Reconciliation),
		Cashflow: NewCashflowHandler(svcs.Cashflow, svcs.Overdue, svcs.Export),
		Audit:    NewAuditHandler(svcs.Audit),
		Job:      NewJobHandler(svcs.Job),
	}
}
