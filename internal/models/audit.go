package models

import (
	"time"
)

// AuditLog records who did what to which ledger record
type AuditLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrganizationID uint      `gorm:"not null;index" json:"organization_id"`
	UserID         uint      `gorm:"not null" json:"user_id"`
	Action         string    `gorm:"size:50;not null" json:"action"` // CONFIRM, REVERSE, SKIP, UNSKIP, UPDATE, DELETE, CREATE
	Entity         string    `gorm:"size:50;not null" json:"entity"` // LedgerEntry
	EntityID       uint      `json:"entity_id"`
	Details        string    `gorm:"type:text" json:"details"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}

// Audit action constants
const (
	AuditActionCreate  = "CREATE"
	AuditActionUpdate  = "UPDATE"
	AuditActionDelete  = "DELETE"
	AuditActionConfirm = "CONFIRM"
	AuditActionReverse = "REVERSE"
	AuditActionSkip    = "SKIP"
	AuditActionUnskip  = "UNSKIP"
)
