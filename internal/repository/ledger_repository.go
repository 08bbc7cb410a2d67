package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-cashflow/internal/date"
	"github.com/sjperalta/fintera-cashflow/internal/models"

	"gorm.io/gorm"
)

// ledgerRepository handles database operations for ledger entries
type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a gorm backed LedgerStore
func NewLedgerRepository(db *gorm.DB) LedgerStore {
	return &ledgerRepository{db: db}
}

// ListEntries retrieves entries matching the filter ordered by due date
func (r *ledgerRepository) ListEntries(ctx context.Context, filter EntryFilter) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry

	db := r.db.WithContext(ctx).Where("organization_id = ?", filter.OrganizationID)
	if len(filter.Statuses) > 0 {
		db = db.Where("status IN ?", filter.Statuses)
	}
	if !filter.DueFrom.IsZero() {
		db = db.Where("due_date >= ?", filter.DueFrom)
	}
	if !filter.DueTo.IsZero() {
		db = db.Where("due_date <= ?", filter.DueTo)
	}
	if filter.CostCenterID != nil {
		db = db.Where("cost_center_id = ?", *filter.CostCenterID)
	}
	if filter.ScheduleID != nil {
		db = db.Where("schedule_id = ?", *filter.ScheduleID)
	}
	if filter.Limit > 0 {
		db = db.Limit(filter.Limit)
	}

	err := db.Order("due_date ASC NULLS LAST, id ASC").Find(&entries).Error
	return entries, err
}

// FindEntry retrieves one entry of the organization
func (r *ledgerRepository) FindEntry(ctx context.Context, orgID, id uint) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&entry).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &entry, nil
}

// CreateEntry inserts a new entry after validating its references
func (r *ledgerRepository) CreateEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.Status == "" {
		entry.Status = models.EntryStatusPending
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if entry.AccountID != nil {
			if err := exists(tx, &models.Account{}, entry.OrganizationID, *entry.AccountID); err != nil {
				return fmt.Errorf("conta %d: %w", *entry.AccountID, err)
			}
		}
		if entry.CostCenterID != nil {
			if err := exists(tx, &models.CostCenter{}, entry.OrganizationID, *entry.CostCenterID); err != nil {
				return fmt.Errorf("centro de custo %d: %w", *entry.CostCenterID, err)
			}
		}
		return tx.Create(entry).Error
	})
}

// Confirm moves a pending entry to confirmed and writes its movement
func (r *ledgerRepository) Confirm(ctx context.Context, orgID, id, accountID uint, on date.Date, amount decimal.Decimal) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account models.Account
		err := tx.Where("id = ? AND organization_id = ? AND active = ?", accountID, orgID, true).First(&account).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("conta %d: %w", accountID, models.ErrMissingReference)
		}
		if err != nil {
			return err
		}

		updates := map[string]any{
			"status":          models.EntryStatusConfirmed,
			"settlement_date": on,
			"account_id":      accountID,
		}
		if amount.IsPositive() {
			updates["amount"] = amount
		}
		if err := transition(tx, orgID, id, models.EntryStatusPending, updates, &entry); err != nil {
			return err
		}

		movement := &models.Movement{
			EntryID:   entry.ID,
			AccountID: accountID,
			Operation: entry.Operation,
			Amount:    entry.Amount,
			SettledOn: on,
		}
		return tx.Create(movement).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Reverse returns a confirmed entry to pending and removes its movement
func (r *ledgerRepository) Reverse(ctx context.Context, orgID, id uint) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":          models.EntryStatusPending,
			"settlement_date": nil,
		}
		if err := transition(tx, orgID, id, models.EntryStatusConfirmed, updates, &entry); err != nil {
			return err
		}
		return tx.Where("entry_id = ?", id).Delete(&models.Movement{}).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Skip marks a pending entry as skipped
func (r *ledgerRepository) Skip(ctx context.Context, orgID, id uint) (*models.LedgerEntry, error) {
	return r.simpleTransition(ctx, orgID, id, models.EntryStatusPending, map[string]any{"status": models.EntryStatusSkipped})
}

// Unskip brings a skipped entry back to pending
func (r *ledgerRepository) Unskip(ctx context.Context, orgID, id uint) (*models.LedgerEntry, error) {
	return r.simpleTransition(ctx, orgID, id, models.EntryStatusSkipped, map[string]any{"status": models.EntryStatusPending})
}

// UpdateEntry changes the amount and/or due date of a pending entry in one statement
func (r *ledgerRepository) UpdateEntry(ctx context.Context, orgID, id uint, changes EntryChanges) (*models.LedgerEntry, error) {
	if err := changes.Validate(); err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if changes.Amount != nil {
		updates["amount"] = *changes.Amount
	}
	if changes.DueDate != nil {
		updates["due_date"] = *changes.DueDate
	}
	return r.simpleTransition(ctx, orgID, id, models.EntryStatusPending, updates)
}

// DeleteEntry removes a pending entry
func (r *ledgerRepository) DeleteEntry(ctx context.Context, orgID, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND organization_id = ? AND status = ?", id, orgID, models.EntryStatusPending).
			Delete(&models.LedgerEntry{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return missingOrConflict(tx, orgID, id)
		}
		return nil
	})
}

// ListCostCenterSplits retrieves the split rows of a schedule
func (r *ledgerRepository) ListCostCenterSplits(ctx context.Context, scheduleID uint) ([]models.CostCenterSplit, error) {
	var splits []models.CostCenterSplit
	err := r.db.WithContext(ctx).
		Where("schedule_id = ?", scheduleID).
		Order("id ASC").
		Find(&splits).Error
	return splits, err
}

// ListCostCenters retrieves every cost center of the organization
func (r *ledgerRepository) ListCostCenters(ctx context.Context, orgID uint) ([]models.CostCenter, error) {
	var centers []models.CostCenter
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("description ASC").
		Find(&centers).Error
	return centers, err
}

// FindAccount retrieves an account of the organization
func (r *ledgerRepository) FindAccount(ctx context.Context, orgID, id uint) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&account).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &account, nil
}

// CurrentBalance sums opening balances and realized movements of active accounts
func (r *ledgerRepository) CurrentBalance(ctx context.Context, orgID uint) (decimal.Decimal, error) {
	var opening struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Select("COALESCE(SUM(opening_balance), 0) as total").
		Where("organization_id = ? AND active = ?", orgID, true).
		Scan(&opening).Error
	if err != nil {
		return decimal.Zero, err
	}

	var realized struct {
		Total decimal.Decimal
	}
	err = r.db.WithContext(ctx).
		Model(&models.Movement{}).
		Select("COALESCE(SUM(CASE WHEN movements.operation IN ? THEN movements.amount ELSE -movements.amount END), 0) as total",
			[]string{string(models.OperationRevenue), string(models.OperationContribution)}).
		Joins("JOIN accounts ON accounts.id = movements.account_id").
		Where("accounts.organization_id = ? AND accounts.active = ?", orgID, true).
		Scan(&realized).Error
	if err != nil {
		return decimal.Zero, err
	}

	return opening.Total.Add(realized.Total), nil
}

// OrganizationIDs lists the organizations that have pending entries
func (r *ledgerRepository) OrganizationIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("status = ?", models.EntryStatusPending).
		Distinct().
		Order("organization_id ASC").
		Pluck("organization_id", &ids).Error
	return ids, err
}

func (r *ledgerRepository) simpleTransition(ctx context.Context, orgID, id uint, from string, updates map[string]any) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return transition(tx, orgID, id, from, updates, &entry)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// transition applies updates only while the entry is still in status from, then reloads it
func transition(tx *gorm.DB, orgID, id uint, from string, updates map[string]any, out *models.LedgerEntry) error {
	res := tx.Model(&models.LedgerEntry{}).
		Where("id = ? AND organization_id = ? AND status = ?", id, orgID, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return missingOrConflict(tx, orgID, id)
	}
	return tx.Where("id = ?", id).First(out).Error
}

func missingOrConflict(tx *gorm.DB, orgID, id uint) error {
	var count int64
	if err := tx.Model(&models.LedgerEntry{}).Where("id = ? AND organization_id = ?", id, orgID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrStatusConflict
}

func exists(tx *gorm.DB, model any, orgID, id uint) error {
	var count int64
	if err := tx.Model(model).Where("id = ? AND organization_id = ?", id, orgID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return models.ErrMissingReference
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
