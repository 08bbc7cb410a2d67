package repository

import (
	"context"

	"github.com/sjperalta/fintera-cashflow/internal/models"
	"gorm.io/gorm"
)

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a gorm backed AuditRepository
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// List retrieves the organization's audit logs, newest first
func (r *auditRepository) List(ctx context.Context, orgID uint, limit, offset int) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	db := r.db.WithContext(ctx).Model(&models.AuditLog{}).Where("organization_id = ?", orgID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&logs).Error
	return logs, total, err
}
