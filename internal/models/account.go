package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-cashflow/internal/date"
)

// Account is a bank or cash account entries settle into
type Account struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	OrganizationID uint            `gorm:"not null;index" json:"organization_id"`
	Name           string          `gorm:"not null" json:"name"`
	OpeningBalance decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"opening_balance"`
	Active         bool            `gorm:"default:true;not null" json:"active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Account
func (Account) TableName() string {
	return "accounts"
}

// Movement is the realized record written when an entry is confirmed and removed
// when the confirmation is reversed.
type Movement struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	EntryID   uint            `gorm:"not null;uniqueIndex" json:"entry_id"`
	AccountID uint            `gorm:"not null;index" json:"account_id"`
	Operation Operation       `gorm:"size:20;not null" json:"operation"`
	Amount    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	SettledOn date.Date       `gorm:"type:date;not null" json:"settled_on"`
	CreatedAt time.Time       `json:"created_at"`
}

// TableName specifies the table name for Movement
func (Movement) TableName() string {
	return "movements"
}

// SignedAmount returns the amount with the sign implied by the operation
func (m *Movement) SignedAmount() decimal.Decimal {
	if m.Operation.IsInflow() {
		return m.Amount
	}
	return m.Amount.Neg()
}
