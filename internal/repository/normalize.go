package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-cashflow/internal/date"
	"github.com/sjperalta/fintera-cashflow/internal/models"
)

// RawEntry is a loosely typed ledger record as it arrives from imports and older clients.
// Amounts come either as a single valor or split into valor_entrada and valor_saida.
type RawEntry struct {
	Operation         string              `json:"operation"`
	Valor             decimal.NullDecimal `json:"valor"`
	ValorEntrada      decimal.NullDecimal `json:"valor_entrada"`
	ValorSaida        decimal.NullDecimal `json:"valor_saida"`
	Description       string              `json:"description"`
	DueDate           string              `json:"due_date"`
	SettlementDate    string              `json:"settlement_date"`
	Status            string              `json:"status"`
	AccountID         *uint               `json:"account_id"`
	ClientID          *uint               `json:"client_id"`
	CommitmentGroupID *uint               `json:"commitment_group_id"`
	CommitmentID      *uint               `json:"commitment_id"`
	CostCenterID      *uint               `json:"cost_center_id"`
	ScheduleID        *uint               `json:"schedule_id"`
}

var statusAliases = map[string]string{
	"":                          models.EntryStatusPending,
	models.EntryStatusPending:   models.EntryStatusPending,
	"pendente":                  models.EntryStatusPending,
	models.EntryStatusConfirmed: models.EntryStatusConfirmed,
	"confirmado":                models.EntryStatusConfirmed,
	"pago":                      models.EntryStatusConfirmed,
	models.EntryStatusSkipped:   models.EntryStatusSkipped,
	"ignorado":                  models.EntryStatusSkipped,
}

// Normalize turns a raw record into a LedgerEntry of the organization.
//
// The operation decides which amount field is read: inflows prefer valor_entrada,
// outflows valor_saida, and both fall back to valor. Without an operation it is inferred
// from whichever split field is set, or from the sign of valor. Unparseable dates are
// kept as zero dates so the entry is excluded from date based reports.
func Normalize(orgID uint, raw RawEntry) (models.LedgerEntry, error) {
	op, err := normalizeOperation(raw)
	if err != nil {
		return models.LedgerEntry{}, err
	}

	amount, ok := pickAmount(op, raw)
	if !ok {
		return models.LedgerEntry{}, fmt.Errorf("%w: nenhum valor informado", models.ErrInvalidAmount)
	}

	status, ok := statusAliases[strings.ToLower(strings.TrimSpace(raw.Status))]
	if !ok {
		return models.LedgerEntry{}, fmt.Errorf("situação desconhecida: %q", raw.Status)
	}

	entry := models.LedgerEntry{
		OrganizationID:    orgID,
		Operation:         op,
		Amount:            amount.Abs(),
		Description:       strings.TrimSpace(raw.Description),
		DueDate:           lenientDate(raw.DueDate),
		SettlementDate:    lenientDate(raw.SettlementDate),
		Status:            status,
		AccountID:         raw.AccountID,
		ClientID:          raw.ClientID,
		CommitmentGroupID: raw.CommitmentGroupID,
		CommitmentID:      raw.CommitmentID,
		CostCenterID:      raw.CostCenterID,
		ScheduleID:        raw.ScheduleID,
	}
	if entry.Status != models.EntryStatusConfirmed {
		entry.SettlementDate = date.Date{}
	}

	if err := entry.Validate(); err != nil {
		return models.LedgerEntry{}, err
	}
	return entry, nil
}

func normalizeOperation(raw RawEntry) (models.Operation, error) {
	if strings.TrimSpace(raw.Operation) != "" {
		return models.ParseOperation(raw.Operation)
	}

	switch {
	case raw.ValorEntrada.Valid && !raw.ValorEntrada.Decimal.IsZero():
		return models.OperationRevenue, nil
	case raw.ValorSaida.Valid && !raw.ValorSaida.Decimal.IsZero():
		return models.OperationExpense, nil
	case raw.Valor.Valid && raw.Valor.Decimal.IsNegative():
		return models.OperationExpense, nil
	case raw.Valor.Valid && raw.Valor.Decimal.IsPositive():
		return models.OperationRevenue, nil
	}
	return "", errors.New("operação não informada")
}

func pickAmount(op models.Operation, raw RawEntry) (decimal.Decimal, bool) {
	primary := raw.ValorSaida
	if op.IsInflow() {
		primary = raw.ValorEntrada
	}
	if primary.Valid && !primary.Decimal.IsZero() {
		return primary.Decimal, true
	}
	if raw.Valor.Valid {
		return raw.Valor.Decimal, true
	}
	return decimal.Zero, false
}

func lenientDate(s string) date.Date {
	d, err := date.Parse(strings.TrimSpace(s))
	if err != nil {
		return date.Date{}
	}
	return d
}
