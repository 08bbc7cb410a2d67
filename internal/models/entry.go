package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-cashflow/internal/date"
)

// Operation defines the direction of a ledger entry
type Operation string

// Operation constants
const (
	OperationExpense      Operation = "expense"
	OperationRevenue      Operation = "revenue"
	OperationContribution Operation = "contribution"
	OperationWithdrawal   Operation = "withdrawal"
)

var operationAliases = map[string]Operation{
	"expense":      OperationExpense,
	"despesa":      OperationExpense,
	"revenue":      OperationRevenue,
	"receita":      OperationRevenue,
	"contribution": OperationContribution,
	"aporte":       OperationContribution,
	"withdrawal":   OperationWithdrawal,
	"retirada":     OperationWithdrawal,
}

// ParseOperation accepts the canonical names and their Portuguese aliases
func ParseOperation(s string) (Operation, error) {
	op, ok := operationAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("operação desconhecida: %q", s)
	}
	return op, nil
}

// IsInflow returns true for revenue and contribution
func (o Operation) IsInflow() bool {
	return o == OperationRevenue || o == OperationContribution
}

// Valid reports whether o is one of the four operations
func (o Operation) Valid() bool {
	switch o {
	case OperationExpense, OperationRevenue, OperationContribution, OperationWithdrawal:
		return true
	}
	return false
}

// Entry status constants
const (
	EntryStatusPending   = "pending"
	EntryStatusConfirmed = "confirmed"
	EntryStatusReversed  = "reversed"
	EntryStatusSkipped   = "skipped"
)

// LedgerEntry is one scheduled or realized financial movement
type LedgerEntry struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	OrganizationID    uint            `gorm:"not null;index" json:"organization_id"`
	Operation         Operation       `gorm:"size:20;not null;index" json:"operation"`
	Amount            decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Description       string          `gorm:"type:text" json:"description"`
	DueDate           date.Date       `gorm:"type:date;index" json:"due_date"`
	SettlementDate    date.Date       `gorm:"type:date" json:"settlement_date"`
	Status            string          `gorm:"size:20;default:pending;not null;index" json:"status"`
	AccountID         *uint           `gorm:"index" json:"account_id"`
	ClientID          *uint           `gorm:"index" json:"client_id"`
	CommitmentGroupID *uint           `gorm:"index" json:"commitment_group_id"`
	CommitmentID      *uint           `gorm:"index" json:"commitment_id"`
	CostCenterID      *uint           `gorm:"index" json:"cost_center_id"`
	ScheduleID        *uint           `gorm:"index" json:"schedule_id"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TableName specifies the table name for LedgerEntry
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// SignedAmount returns the amount with the sign implied by the operation
func (e *LedgerEntry) SignedAmount() decimal.Decimal {
	if e.Operation.IsInflow() {
		return e.Amount
	}
	return e.Amount.Neg()
}

// Installment parses the installment marker out of the description
func (e *LedgerEntry) Installment() Installment {
	return ParseInstallment(e.Description)
}

// CountsTowardTotals is false for skipped and reversed entries
func (e *LedgerEntry) CountsTowardTotals() bool {
	return e.Status == EntryStatusPending || e.Status == EntryStatusConfirmed
}

// MayConfirm returns true if the entry can be confirmed
func (e *LedgerEntry) MayConfirm() bool {
	return e.Status == EntryStatusPending
}

// MayReverse returns true if a confirmation can be undone
func (e *LedgerEntry) MayReverse() bool {
	return e.Status == EntryStatusConfirmed
}

// MaySkip returns true if the entry can be skipped
func (e *LedgerEntry) MaySkip() bool {
	return e.Status == EntryStatusPending
}

// MayUnskip returns true if a skipped entry can go back to pending
func (e *LedgerEntry) MayUnskip() bool {
	return e.Status == EntryStatusSkipped
}

// MayEdit returns true while amount and due date can still be changed
func (e *LedgerEntry) MayEdit() bool {
	return e.Status == EntryStatusPending
}

// MayDelete returns true if the entry can be physically removed
func (e *LedgerEntry) MayDelete() bool {
	return e.Status == EntryStatusPending
}

// Validation errors
var (
	ErrInvalidAmount    = errors.New("valor deve ser positivo")
	ErrInvalidOperation = errors.New("operação inválida")
	ErrMissingReference = errors.New("referência inexistente")
)

// Validate checks the fields every stored entry must satisfy
func (e *LedgerEntry) Validate() error {
	if !e.Operation.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidOperation, e.Operation)
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// LedgerEntryResponse is the JSON response format for entries
type LedgerEntryResponse struct {
	ID                uint            `json:"id"`
	Operation         Operation       `json:"operation"`
	Amount            decimal.Decimal `json:"amount"`
	SignedAmount      decimal.Decimal `json:"signed_amount"`
	Description       string          `json:"description"`
	DueDate           date.Date       `json:"due_date"`
	SettlementDate    date.Date       `json:"settlement_date"`
	Status            string          `json:"status"`
	AccountID         *uint           `json:"account_id"`
	ClientID          *uint           `json:"client_id"`
	CommitmentGroupID *uint           `json:"commitment_group_id"`
	CommitmentID      *uint           `json:"commitment_id"`
	CostCenterID      *uint           `json:"cost_center_id"`
	ScheduleID        *uint           `json:"schedule_id"`
	Installment       Installment     `json:"installment"`
}

// ToResponse converts LedgerEntry to LedgerEntryResponse
func (e *LedgerEntry) ToResponse() LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:                e.ID,
		Operation:         e.Operation,
		Amount:            e.Amount,
		SignedAmount:      e.SignedAmount(),
		Description:       e.Description,
		DueDate:           e.DueDate,
		SettlementDate:    e.SettlementDate,
		Status:            e.Status,
		AccountID:         e.AccountID,
		ClientID:          e.ClientID,
		CommitmentGroupID: e.CommitmentGroupID,
		CommitmentID:      e.CommitmentID,
		CostCenterID:      e.CostCenterID,
		ScheduleID:        e.ScheduleID,
		Installment:       e.Installment(),
	}
}
