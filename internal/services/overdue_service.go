package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-cashflow/internal/cashflow"
	"github.com/sjperalta/fintera-cashflow/internal/date"
	"github.com/sjperalta/fintera-cashflow/internal/events"
	"github.com/sjperalta/fintera-cashflow/internal/models"
	"github.com/sjperalta/fintera-cashflow/internal/repository"
	"github.com/sjperalta/fintera-cashflow/pkg/logger"
)

// OverdueDigest is the payload of the entries.overdue event
type OverdueDigest struct {
	Today       date.Date       `json:"today"`
	Count       int             `json:"count"`
	Inflow      decimal.Decimal `json:"inflow"`
	Outflow     decimal.Decimal `json:"outflow"`
	OldestDue   date.Date       `json:"oldest_due"`
	MaxDaysLate int             `json:"max_days_late"`
	EntryIDs    []uint          `json:"entry_ids"`
}

// OverdueService publishes a digest of overdue pending entries per organization
type OverdueService struct {
	store  repository.LedgerStore
	events *EventService
	loc    *time.Location
	now    func() time.Time
}

func NewOverdueService(store repository.LedgerStore, events *EventService, loc *time.Location) *OverdueService {
	if loc == nil {
		loc = time.UTC
	}
	return &OverdueService{store: store, events: events, loc: loc, now: time.Now}
}

// Digest builds the overdue digest of one organization. Entries due today are not late yet.
func (s *OverdueService) Digest(ctx context.Context, orgID uint) (*OverdueDigest, error) {
	today := date.Of(s.now().In(s.loc))
	entries, err := s.store.ListEntries(ctx, repository.EntryFilter{
		OrganizationID: orgID,
		Statuses:       []string{models.EntryStatusPending},
		DueTo:          today.AddDays(-1),
	})
	if err != nil {
		return nil, err
	}

	digest := &OverdueDigest{Today: today, EntryIDs: make([]uint, 0, len(entries))}
	for _, e := range entries {
		c, err := cashflow.Classify(today, e.DueDate)
		if err != nil || c.Label != cashflow.LabelOverdue {
			continue
		}
		digest.Count++
		digest.EntryIDs = append(digest.EntryIDs, e.ID)
		if e.Operation.IsInflow() {
			digest.Inflow = digest.Inflow.Add(e.Amount)
		} else {
			digest.Outflow = digest.Outflow.Add(e.Amount)
		}
		if c.OffsetDays > digest.MaxDaysLate {
			digest.MaxDaysLate = c.OffsetDays
			digest.OldestDue = e.DueDate
		}
	}
	return digest, nil
}

// Run is the scheduled job: one entries.overdue event per organization with late entries
func (s *OverdueService) Run(ctx context.Context) error {
	orgs, err := s.store.OrganizationIDs(ctx)
	if err != nil {
		return fmt.Errorf("list organizations: %w", err)
	}

	published := 0
	for _, orgID := range orgs {
		digest, err := s.Digest(ctx, orgID)
		if err != nil {
			logger.Error("[Overdue] digest failed", slog.Uint64("organization_id", uint64(orgID)), slog.String("error", err.Error()))
			continue
		}
		if digest.Count == 0 {
			continue
		}
		s.events.Emit(events.TypeEntriesOverdue, orgID, digest)
		published++
	}

	logger.Info("[Overdue] digest finished", slog.Int("organizations", len(orgs)), slog.Int("published", published))
	return nil
}
