package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sjperalta/fintera-cashflow/internal/models"
	"github.com/sjperalta/fintera-cashflow/internal/repository"
)

// AuditLog is an append only AuditRepository
type AuditLog struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

var _ repository.AuditRepository = (*AuditLog)(nil)

// NewAuditLog creates an empty audit log
func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (a *AuditLog) Create(ctx context.Context, log *models.AuditLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	log.ID = uint(len(a.logs) + 1)
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	a.logs = append(a.logs, *log)
	return nil
}

func (a *AuditLog) List(ctx context.Context, orgID uint, limit, offset int) ([]models.AuditLog, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	var matched []models.AuditLog
	for _, l := range a.logs {
		if l.OrganizationID == orgID {
			matched = append(matched, l)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := int64(len(matched))
	if offset >= len(matched) {
		return []models.AuditLog{}, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}
