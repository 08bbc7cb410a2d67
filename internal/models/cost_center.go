package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CostCenter is a cost/revenue attribution bucket. Amounts booked on a shared center
// are redistributed through CostCenterSplit rows.
type CostCenter struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrganizationID uint      `gorm:"not null;index" json:"organization_id"`
	Description    string    `gorm:"not null" json:"description"`
	Shared         bool      `gorm:"default:false;not null" json:"shared"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for CostCenter
func (CostCenter) TableName() string {
	return "cost_centers"
}

// CostCenterSplit assigns part of a schedule's amounts to a cost center.
// Weight is stored but the resolver fans out in equal parts.
type CostCenterSplit struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	ScheduleID   uint            `gorm:"not null;index" json:"schedule_id"`
	CostCenterID uint            `gorm:"not null" json:"cost_center_id"`
	Weight       decimal.Decimal `gorm:"type:decimal(9,4);default:1" json:"weight"`
}

// TableName specifies the table name for CostCenterSplit
func (CostCenterSplit) TableName() string {
	return "cost_center_splits"
}
