package repository

import (
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Ledger LedgerStore
	Audit  AuditRepository
}

// NewRepositories creates all gorm repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Ledger: NewLedgerRepository(db),
		Audit:  NewAuditRepository(db),
	}
}
