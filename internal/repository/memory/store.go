// Package memory provides in-process implementations of the repository interfaces.
// They back the memory store driver and the service and handler tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-cashflow/internal/date"
	"github.com/sjperalta/fintera-cashflow/internal/models"
	"github.com/sjperalta/fintera-cashflow/internal/repository"
)

// Store is a mutex guarded LedgerStore
type Store struct {
	mu        sync.RWMutex
	nextID    uint
	entries   map[uint]models.LedgerEntry
	movements map[uint]models.Movement // by entry id
	accounts  map[uint]models.Account
	centers   map[uint]models.CostCenter
	splits    map[uint][]models.CostCenterSplit
}

var _ repository.LedgerStore = (*Store)(nil)

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		entries:   make(map[uint]models.LedgerEntry),
		movements: make(map[uint]models.Movement),
		accounts:  make(map[uint]models.Account),
		centers:   make(map[uint]models.CostCenter),
		splits:    make(map[uint][]models.CostCenterSplit),
	}
}

func (s *Store) id() uint {
	s.nextID++
	return s.nextID
}

// AddAccount seeds an account and returns it with its id
func (s *Store) AddAccount(a models.Account) models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.id()
	}
	s.accounts[a.ID] = a
	return a
}

// AddCostCenter seeds a cost center and returns it with its id
func (s *Store) AddCostCenter(c models.CostCenter) models.CostCenter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.id()
	}
	s.centers[c.ID] = c
	return c
}

// AddSplit seeds a split row for a schedule
func (s *Store) AddSplit(split models.CostCenterSplit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if split.ID == 0 {
		split.ID = s.id()
	}
	s.splits[split.ScheduleID] = append(s.splits[split.ScheduleID], split)
}

// AddEntry seeds an entry as is, bypassing validation
func (s *Store) AddEntry(e models.LedgerEntry) models.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		e.ID = s.id()
	}
	if e.Status == "" {
		e.Status = models.EntryStatusPending
	}
	s.entries[e.ID] = e
	return e
}

func (s *Store) ListEntries(ctx context.Context, filter repository.EntryFilter) ([]models.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.LedgerEntry, 0)
	for _, e := range s.entries {
		if matches(e, filter) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].DueDate, out[j].DueDate
		if a.IsZero() != b.IsZero() {
			return b.IsZero()
		}
		if c := a.Compare(b); c != 0 {
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func matches(e models.LedgerEntry, f repository.EntryFilter) bool {
	if e.OrganizationID != f.OrganizationID {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, st := range f.Statuses {
			if e.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.DueFrom.IsZero() && (e.DueDate.IsZero() || e.DueDate.Before(f.DueFrom)) {
		return false
	}
	if !f.DueTo.IsZero() && (e.DueDate.IsZero() || e.DueDate.After(f.DueTo)) {
		return false
	}
	if f.CostCenterID != nil && (e.CostCenterID == nil || *e.CostCenterID != *f.CostCenterID) {
		return false
	}
	if f.ScheduleID != nil && (e.ScheduleID == nil || *e.ScheduleID != *f.ScheduleID) {
		return false
	}
	return true
}

func (s *Store) FindEntry(ctx context.Context, orgID, id uint) (*models.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok || e.OrganizationID != orgID {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (s *Store) CreateEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.AccountID != nil {
		if a, ok := s.accounts[*entry.AccountID]; !ok || a.OrganizationID != entry.OrganizationID {
			return fmt.Errorf("conta %d: %w", *entry.AccountID, models.ErrMissingReference)
		}
	}
	if entry.CostCenterID != nil {
		if c, ok := s.centers[*entry.CostCenterID]; !ok || c.OrganizationID != entry.OrganizationID {
			return fmt.Errorf("centro de custo %d: %w", *entry.CostCenterID, models.ErrMissingReference)
		}
	}
	if entry.Status == "" {
		entry.Status = models.EntryStatusPending
	}
	now := time.Now()
	entry.ID = s.id()
	entry.CreatedAt, entry.UpdatedAt = now, now
	s.entries[entry.ID] = *entry
	return nil
}

func (s *Store) Confirm(ctx context.Context, orgID, id, accountID uint, on date.Date, amount decimal.Decimal) (*models.LedgerEntry, error) {
	return s.transition(ctx, orgID, id, models.EntryStatusPending, func(e *models.LedgerEntry) error {
		a, ok := s.accounts[accountID]
		if !ok || a.OrganizationID != orgID || !a.Active {
			return fmt.Errorf("conta %d: %w", accountID, models.ErrMissingReference)
		}
		e.Status = models.EntryStatusConfirmed
		e.SettlementDate = on
		e.AccountID = &accountID
		if amount.IsPositive() {
			e.Amount = amount
		}
		s.movements[e.ID] = models.Movement{
			ID:        s.id(),
			EntryID:   e.ID,
			AccountID: accountID,
			Operation: e.Operation,
			Amount:    e.Amount,
			SettledOn: on,
			CreatedAt: time.Now(),
		}
		return nil
	})
}

func (s *Store) Reverse(ctx context.Context, orgID, id uint) (*models.LedgerEntry, error) {
	return s.transition(ctx, orgID, id, models.EntryStatusConfirmed, func(e *models.LedgerEntry) error {
		e.Status = models.EntryStatusPending
		e.SettlementDate = date.Date{}
		delete(s.movements, e.ID)
		return nil
	})
}

func (s *Store) Skip(ctx context.Context, orgID, id uint) (*models.LedgerEntry, error) {
	return s.transition(ctx, orgID, id, models.EntryStatusPending, func(e *models.LedgerEntry) error {
		e.Status = models.EntryStatusSkipped
		return nil
	})
}

func (s *Store) Unskip(ctx context.Context, orgID, id uint) (*models.LedgerEntry, error) {
	return s.transition(ctx, orgID, id, models.EntryStatusSkipped, func(e *models.LedgerEntry) error {
		e.Status = models.EntryStatusPending
		return nil
	})
}

func (s *Store) UpdateEntry(ctx context.Context, orgID, id uint, changes repository.EntryChanges) (*models.LedgerEntry, error) {
	if err := changes.Validate(); err != nil {
		return nil, err
	}
	return s.transition(ctx, orgID, id, models.EntryStatusPending, func(e *models.LedgerEntry) error {
		if changes.Amount != nil {
			e.Amount = *changes.Amount
		}
		if changes.DueDate != nil {
			e.DueDate = *changes.DueDate
		}
		return nil
	})
}

func (s *Store) DeleteEntry(ctx context.Context, orgID, id uint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.OrganizationID != orgID {
		return repository.ErrNotFound
	}
	if e.Status != models.EntryStatusPending {
		return repository.ErrStatusConflict
	}
	delete(s.entries, id)
	return nil
}

// transition applies fn to a copy of the entry only while it is in status from.
// The copy is stored only when fn succeeds.
func (s *Store) transition(ctx context.Context, orgID, id uint, from string, fn func(*models.LedgerEntry) error) (*models.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.OrganizationID != orgID {
		return nil, repository.ErrNotFound
	}
	if e.Status != from {
		return nil, repository.ErrStatusConflict
	}
	if err := fn(&e); err != nil {
		return nil, err
	}
	e.UpdatedAt = time.Now()
	s.entries[id] = e
	return &e, nil
}

func (s *Store) ListCostCenterSplits(ctx context.Context, scheduleID uint) ([]models.CostCenterSplit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.CostCenterSplit(nil), s.splits[scheduleID]...), nil
}

func (s *Store) ListCostCenters(ctx context.Context, orgID uint) ([]models.CostCenter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.CostCenter, 0, len(s.centers))
	for _, c := range s.centers {
		if c.OrganizationID == orgID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Description < out[j].Description })
	return out, nil
}

func (s *Store) FindAccount(ctx context.Context, orgID, id uint) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok || a.OrganizationID != orgID {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (s *Store) CurrentBalance(ctx context.Context, orgID uint) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, a := range s.accounts {
		if a.OrganizationID == orgID && a.Active {
			total = total.Add(a.OpeningBalance)
		}
	}
	for _, m := range s.movements {
		a, ok := s.accounts[m.AccountID]
		if ok && a.OrganizationID == orgID && a.Active {
			total = total.Add(m.SignedAmount())
		}
	}
	return total, nil
}

func (s *Store) OrganizationIDs(ctx context.Context) ([]uint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[uint]bool)
	ids := make([]uint, 0)
	for _, e := range s.entries {
		if e.Status == models.EntryStatusPending && !seen[e.OrganizationID] {
			seen[e.OrganizationID] = true
			ids = append(ids, e.OrganizationID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Movement returns the realized movement of an entry, if any
func (s *Store) Movement(entryID uint) (models.Movement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.movements[entryID]
	return m, ok
}
