package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-cashflow/internal/date"
	"github.com/sjperalta/fintera-cashflow/internal/models"
)

// Store errors
var (
	ErrNotFound       = errors.New("registro não encontrado")
	ErrStatusConflict = errors.New("estado do lançamento foi alterado")

	ErrNoChanges       = errors.New("nenhuma alteração informada")
	ErrDueDateRequired = errors.New("data de vencimento obrigatória")
)

// EntryFilter narrows ListEntries. Zero values mean no restriction.
type EntryFilter struct {
	OrganizationID uint
	Statuses       []string
	DueFrom        date.Date
	DueTo          date.Date
	CostCenterID   *uint
	ScheduleID     *uint
	Limit          int
}

// EntryChanges lists the editable fields of a pending entry. Nil fields are left alone.
type EntryChanges struct {
	Amount  *decimal.Decimal
	DueDate *date.Date
}

// Empty reports whether no field is set
func (c EntryChanges) Empty() bool {
	return c.Amount == nil && c.DueDate == nil
}

// Validate checks every set field before anything is written
func (c EntryChanges) Validate() error {
	if c.Empty() {
		return ErrNoChanges
	}
	if c.Amount != nil && !c.Amount.IsPositive() {
		return models.ErrInvalidAmount
	}
	if c.DueDate != nil && c.DueDate.IsZero() {
		return ErrDueDateRequired
	}
	return nil
}

// LedgerStore defines the data access the cash-flow engine needs.
//
// Transition methods are conditional on the entry's current status and run in a single
// transaction. When the entry exists but is no longer in the expected status they return
// ErrStatusConflict; when it does not exist for the organization, ErrNotFound.
type LedgerStore interface {
	ListEntries(ctx context.Context, filter EntryFilter) ([]models.LedgerEntry, error)
	FindEntry(ctx context.Context, orgID, id uint) (*models.LedgerEntry, error)
	CreateEntry(ctx context.Context, entry *models.LedgerEntry) error

	// Confirm moves a pending entry to confirmed and records the realized movement
	Confirm(ctx context.Context, orgID, id, accountID uint, on date.Date, amount decimal.Decimal) (*models.LedgerEntry, error)
	// Reverse returns a confirmed entry to pending and removes its movement
	Reverse(ctx context.Context, orgID, id uint) (*models.LedgerEntry, error)
	Skip(ctx context.Context, orgID, id uint) (*models.LedgerEntry, error)
	Unskip(ctx context.Context, orgID, id uint) (*models.LedgerEntry, error)

	// UpdateEntry applies every change of a pending entry in one conditional update
	UpdateEntry(ctx context.Context, orgID, id uint, changes EntryChanges) (*models.LedgerEntry, error)
	DeleteEntry(ctx context.Context, orgID, id uint) error

	// ListCostCenterSplits is keyed by schedule only; callers check the rows against
	// the organization's cost centers before using them
	ListCostCenterSplits(ctx context.Context, scheduleID uint) ([]models.CostCenterSplit, error)
	ListCostCenters(ctx context.Context, orgID uint) ([]models.CostCenter, error)
	FindAccount(ctx context.Context, orgID, id uint) (*models.Account, error)

	// OrganizationIDs lists the organizations that have pending entries
	OrganizationIDs(ctx context.Context) ([]uint, error)

	// CurrentBalance is the opening balance of active accounts plus every realized movement on them
	CurrentBalance(ctx context.Context, orgID uint) (decimal.Decimal, error)
}

// AuditRepository persists the audit trail
type AuditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
	List(ctx context.Context, orgID uint, limit, offset int) ([]models.AuditLog, int64, error)
}
