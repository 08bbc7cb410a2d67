package cashflow

import (
	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-cashflow/internal/date"
	"github.com/sjperalta/fintera-cashflow/internal/models"
)

func uintPtr(v uint) *uint { return &v }

func entry(id uint, op models.Operation, amount string, due string, status string) models.LedgerEntry {
	e := models.LedgerEntry{
		ID:        id,
		Operation: op,
		Amount:    decimal.RequireFromString(amount),
		Status:    status,
	}
	if due != "" {
		e.DueDate = date.MustParse(due)
	}
	return e
}

func pending(id uint, op models.Operation, amount, due string) models.LedgerEntry {
	return entry(id, op, amount, due, models.EntryStatusPending)
}

func ym(s string) date.YearMonth {
	m, err := date.ParseYearMonth(s)
	if err != nil {
		panic(err)
	}
	return m
}
