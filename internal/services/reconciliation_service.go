package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-cashflow/internal/date"
	"github.com/sjperalta/fintera-cashflow/internal/events"
	"github.com/sjperalta/fintera-cashflow/internal/models"
	"github.com/sjperalta/fintera-cashflow/internal/repository"
	"github.com/sjperalta/fintera-cashflow/internal/statemachine"
	"github.com/sjperalta/fintera-cashflow/pkg/logger"
)

// ConfirmInput holds the confirmation details. Zero values fall back to the entry's
// account, today and the entry's amount.
type ConfirmInput struct {
	AccountID uint
	On        date.Date
	Amount    decimal.Decimal
}

// BatchReport lists the outcome of a bulk operation
type BatchReport struct {
	Confirmed []uint         `json:"confirmed"`
	Failed    []EntryFailure `json:"-"`
}

// TransitionPayload is the payload of single entry events
type TransitionPayload struct {
	EntryID        uint             `json:"entry_id"`
	Operation      models.Operation `json:"operation"`
	Amount         decimal.Decimal  `json:"amount"`
	DueDate        date.Date        `json:"due_date"`
	SettlementDate date.Date        `json:"settlement_date"`
	AccountID      *uint            `json:"account_id"`
	Status         string           `json:"status"`
	UserID         uint             `json:"user_id"`
}

// ImportFailure is one record an import could not apply
type ImportFailure struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// ImportReport is the result of Import
type ImportReport struct {
	Created  []uint          `json:"created"`
	Failures []ImportFailure `json:"failures"`
}

// ReconciliationService drives entries through their lifecycle. Every operation re-reads
// the entry, checks the transition on the state machine and persists it with a single
// conditional store call.
type ReconciliationService struct {
	store  repository.LedgerStore
	audit  *AuditService
	events *EventService
	loc    *time.Location
	now    func() time.Time
}

func NewReconciliationService(store repository.LedgerStore, audit *AuditService, events *EventService, loc *time.Location) *ReconciliationService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReconciliationService{store: store, audit: audit, events: events, loc: loc, now: time.Now}
}

func (s *ReconciliationService) today() date.Date {
	return date.Of(s.now().In(s.loc))
}

// Create records a one-off pending entry
func (s *ReconciliationService) Create(ctx context.Context, actor Actor, entry *models.LedgerEntry) error {
	entry.ID = 0
	entry.OrganizationID = actor.OrganizationID
	entry.Status = models.EntryStatusPending
	entry.SettlementDate = date.Date{}
	if entry.DueDate.IsZero() {
		return fmt.Errorf("%w: data de vencimento obrigatória", ErrInvalidInput)
	}

	if err := s.store.CreateEntry(ctx, entry); err != nil {
		return err
	}

	s.audit.Log(ctx, actor, models.AuditActionCreate, entry.ID,
		fmt.Sprintf("Lançamento criado: %s %s vencimento %s", entry.Operation, entry.Amount.StringFixed(2), entry.DueDate))
	logger.Info("[Ledger] entry created", slog.Uint64("entry_id", uint64(entry.ID)), slog.Uint64("organization_id", uint64(actor.OrganizationID)))
	return nil
}

// Import normalizes and records raw entries one by one. Records marked as confirmed are
// created pending and then confirmed, so their movement is written like any other
// confirmation; skipped records are created and skipped.
func (s *ReconciliationService) Import(ctx context.Context, actor Actor, raws []repository.RawEntry) *ImportReport {
	report := &ImportReport{Created: make([]uint, 0), Failures: make([]ImportFailure, 0)}
	for i, raw := range raws {
		entry, err := repository.Normalize(actor.OrganizationID, raw)
		if err != nil {
			report.Failures = append(report.Failures, ImportFailure{Index: i, Error: err.Error()})
			continue
		}

		status, settled := entry.Status, entry.SettlementDate
		entry.Status = models.EntryStatusPending
		entry.SettlementDate = date.Date{}
		if err := s.store.CreateEntry(ctx, &entry); err != nil {
			report.Failures = append(report.Failures, ImportFailure{Index: i, Error: err.Error()})
			continue
		}
		report.Created = append(report.Created, entry.ID)
		s.audit.Log(ctx, actor, models.AuditActionCreate, entry.ID, "Lançamento importado")

		switch status {
		case models.EntryStatusConfirmed:
			in := ConfirmInput{On: settled}
			if entry.AccountID != nil {
				in.AccountID = *entry.AccountID
			}
			_, err = s.Confirm(ctx, actor, entry.ID, in)
		case models.EntryStatusSkipped:
			_, err = s.Skip(ctx, actor, entry.ID)
		}
		if err != nil {
			report.Failures = append(report.Failures, ImportFailure{
				Index: i,
				Error: fmt.Sprintf("lançamento %d criado como pendente: %v", entry.ID, err),
			})
		}
	}
	return report
}

// Confirm settles a pending entry
func (s *ReconciliationService) Confirm(ctx context.Context, actor Actor, id uint, in ConfirmInput) (*models.LedgerEntry, error) {
	entry, err := s.store.FindEntry(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}

	if in.AccountID == 0 && entry.AccountID != nil {
		in.AccountID = *entry.AccountID
	}
	if in.On.IsZero() {
		in.On = s.today()
	}

	if err := statemachine.NewEntryFSM(entry).Confirm(ctx, in.AccountID, in.On, in.Amount); err != nil {
		return nil, err
	}
	if err := s.checkAccount(ctx, actor, in.AccountID); err != nil {
		return nil, err
	}

	updated, err := s.store.Confirm(ctx, actor.OrganizationID, id, *entry.AccountID, entry.SettlementDate, entry.Amount)
	if err != nil {
		return nil, storeError(err)
	}

	s.audit.Log(ctx, actor, models.AuditActionConfirm, id,
		fmt.Sprintf("Confirmado em %s na conta %d: %s", updated.SettlementDate, in.AccountID, updated.Amount.StringFixed(2)))
	s.emit(events.TypeEntryConfirmed, actor, updated)
	return updated, nil
}

// Reverse undoes a confirmation; the entry becomes pending again
func (s *ReconciliationService) Reverse(ctx context.Context, actor Actor, id uint) (*models.LedgerEntry, error) {
	entry, err := s.store.FindEntry(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	settled := entry.SettlementDate

	if err := statemachine.NewEntryFSM(entry).Reverse(ctx); err != nil {
		return nil, err
	}

	updated, err := s.store.Reverse(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, storeError(err)
	}

	s.audit.Log(ctx, actor, models.AuditActionReverse, id, fmt.Sprintf("Confirmação de %s estornada", settled))
	s.emit(events.TypeEntryReversed, actor, updated)
	return updated, nil
}

// Skip excludes a pending entry from totals
func (s *ReconciliationService) Skip(ctx context.Context, actor Actor, id uint) (*models.LedgerEntry, error) {
	entry, err := s.store.FindEntry(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if err := statemachine.NewEntryFSM(entry).Skip(ctx); err != nil {
		return nil, err
	}

	updated, err := s.store.Skip(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, storeError(err)
	}

	s.audit.Log(ctx, actor, models.AuditActionSkip, id, "Lançamento ignorado")
	s.emit(events.TypeEntrySkipped, actor, updated)
	return updated, nil
}

// Unskip makes a skipped entry pending again
func (s *ReconciliationService) Unskip(ctx context.Context, actor Actor, id uint) (*models.LedgerEntry, error) {
	entry, err := s.store.FindEntry(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if err := statemachine.NewEntryFSM(entry).Unskip(ctx); err != nil {
		return nil, err
	}

	updated, err := s.store.Unskip(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, storeError(err)
	}

	s.audit.Log(ctx, actor, models.AuditActionUnskip, id, "Lançamento reativado")
	s.emit(events.TypeEntryUnskipped, actor, updated)
	return updated, nil
}

// BulkConfirm confirms every id independently. When some fail, the report still lists
// the confirmed ones and the error is a *PartialBatchFailure.
func (s *ReconciliationService) BulkConfirm(ctx context.Context, actor Actor, ids []uint, in ConfirmInput) (*BatchReport, error) {
	report := &BatchReport{Confirmed: make([]uint, 0, len(ids))}
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		if err := ctx.Err(); err != nil {
			report.Failed = append(report.Failed, EntryFailure{EntryID: id, Err: err})
			continue
		}
		if _, err := s.Confirm(ctx, actor, id, in); err != nil {
			report.Failed = append(report.Failed, EntryFailure{EntryID: id, Err: err})
			continue
		}
		report.Confirmed = append(report.Confirmed, id)
	}

	logger.Info("[Ledger] bulk confirm",
		slog.Uint64("organization_id", uint64(actor.OrganizationID)),
		slog.Int("confirmed", len(report.Confirmed)),
		slog.Int("failed", len(report.Failed)),
	)
	if len(report.Failed) > 0 {
		return report, &PartialBatchFailure{Succeeded: len(report.Confirmed), Failures: report.Failed}
	}
	return report, nil
}

// Update changes the amount and/or due date of a pending entry. Both fields are checked
// before the single store write, so a rejected request changes nothing.
func (s *ReconciliationService) Update(ctx context.Context, actor Actor, id uint, changes repository.EntryChanges) (*models.LedgerEntry, error) {
	if err := changes.Validate(); err != nil {
		return nil, editError(err)
	}
	entry, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateEntry(ctx, actor.OrganizationID, id, changes)
	if err != nil {
		return nil, storeError(editError(err))
	}

	var details []string
	if changes.Amount != nil {
		details = append(details, fmt.Sprintf("Valor alterado de %s para %s", entry.Amount.StringFixed(2), changes.Amount.StringFixed(2)))
	}
	if changes.DueDate != nil {
		details = append(details, fmt.Sprintf("Vencimento alterado de %s para %s", entry.DueDate, *changes.DueDate))
	}
	s.audit.Log(ctx, actor, models.AuditActionUpdate, id, strings.Join(details, "; "))
	return updated, nil
}

// UpdateAmount changes a pending entry's amount
func (s *ReconciliationService) UpdateAmount(ctx context.Context, actor Actor, id uint, amount decimal.Decimal) (*models.LedgerEntry, error) {
	return s.Update(ctx, actor, id, repository.EntryChanges{Amount: &amount})
}

// UpdateDueDate changes a pending entry's due date
func (s *ReconciliationService) UpdateDueDate(ctx context.Context, actor Actor, id uint, due date.Date) (*models.LedgerEntry, error) {
	return s.Update(ctx, actor, id, repository.EntryChanges{DueDate: &due})
}

// checkAccount fails with ErrMissingReference unless the account is an active account
// of the actor's organization
func (s *ReconciliationService) checkAccount(ctx context.Context, actor Actor, id uint) error {
	account, err := s.store.FindAccount(ctx, actor.OrganizationID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("conta %d: %w", id, ErrMissingReference)
	}
	if err != nil {
		return err
	}
	if !account.Active {
		return fmt.Errorf("conta %d inativa: %w", id, ErrMissingReference)
	}
	return nil
}

func editError(err error) error {
	if errors.Is(err, repository.ErrNoChanges) || errors.Is(err, repository.ErrDueDateRequired) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}

// Delete removes a pending entry
func (s *ReconciliationService) Delete(ctx context.Context, actor Actor, id uint) error {
	entry, err := s.store.FindEntry(ctx, actor.OrganizationID, id)
	if err != nil {
		return err
	}
	if !entry.MayDelete() {
		return fmt.Errorf("%w: apenas lançamentos pendentes podem ser excluídos (%s)", ErrInvalidTransition, entry.Status)
	}

	if err := s.store.DeleteEntry(ctx, actor.OrganizationID, id); err != nil {
		return storeError(err)
	}
	s.audit.Log(ctx, actor, models.AuditActionDelete, id,
		fmt.Sprintf("Lançamento excluído: %s %s", entry.Operation, entry.Amount.StringFixed(2)))
	return nil
}

func (s *ReconciliationService) editable(ctx context.Context, actor Actor, id uint) (*models.LedgerEntry, error) {
	entry, err := s.store.FindEntry(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if !entry.MayEdit() {
		return nil, fmt.Errorf("%w: apenas lançamentos pendentes podem ser alterados (%s)", ErrInvalidTransition, entry.Status)
	}
	return entry, nil
}

func (s *ReconciliationService) emit(eventType string, actor Actor, e *models.LedgerEntry) {
	logger.Info("[Ledger] transition",
		slog.String("event", eventType),
		slog.Uint64("entry_id", uint64(e.ID)),
		slog.Uint64("organization_id", uint64(actor.OrganizationID)),
		slog.String("status", e.Status),
	)
	s.events.Emit(eventType, actor.OrganizationID, TransitionPayload{
		EntryID:        e.ID,
		Operation:      e.Operation,
		Amount:         e.Amount,
		DueDate:        e.DueDate,
		SettlementDate: e.SettlementDate,
		AccountID:      e.AccountID,
		Status:         e.Status,
		UserID:         actor.UserID,
	})
}

// IsPartial reports whether err is a partial batch failure
func IsPartial(err error) (*PartialBatchFailure, bool) {
	var partial *PartialBatchFailure
	if errors.As(err, &partial) {
		return partial, true
	}
	return nil, false
}
