package services

import (
	"context"
	"log/slog"

	"github.com/sjperalta/fintera-cashflow/internal/models"
	"github.com/sjperalta/fintera-cashflow/internal/repository"
	"github.com/sjperalta/fintera-cashflow/pkg/logger"
)

// Actor is the authenticated caller an operation runs for
type Actor struct {
	OrganizationID uint
	UserID         uint
}

// AuditService records and lists the audit trail
type AuditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// Log records an audit entry for a ledger entry. Failures are logged and never fail the
// operation being audited.
func (s *AuditService) Log(ctx context.Context, actor Actor, action string, entryID uint, details string) {
	entry := &models.AuditLog{
		OrganizationID: actor.OrganizationID,
		UserID:         actor.UserID,
		Action:         action,
		Entity:         "LedgerEntry",
		EntityID:       entryID,
		Details:        details,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		logger.Warn("[Audit] failed to record",
			slog.String("action", action),
			slog.Uint64("entry_id", uint64(entryID)),
			slog.String("error", err.Error()),
		)
	}
}

// List retrieves the organization's audit logs, newest first
func (s *AuditService) List(ctx context.Context, orgID uint, limit, offset int) ([]models.AuditLog, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, orgID, limit, offset)
}
