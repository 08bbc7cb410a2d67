package statemachine

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-cashflow/internal/date"
	"github.com/sjperalta/fintera-cashflow/internal/models"
)

// ErrInvalidTransition is returned when an event is not legal from the entry's status
var ErrInvalidTransition = errors.New("transição de estado inválida")

// Event names
const (
	EventConfirm = "confirm"
	EventReverse = "reverse"
	EventReopen  = "reopen"
	EventSkip    = "skip"
	EventUnskip  = "unskip"
)

// EntryFSM wraps a ledger entry with its state machine
type EntryFSM struct {
	entry *models.LedgerEntry
	fsm   *fsm.FSM
}

// NewEntryFSM creates a new entry state machine
func NewEntryFSM(entry *models.LedgerEntry) *EntryFSM {
	efsm := &EntryFSM{
		entry: entry,
	}

	efsm.fsm = fsm.NewFSM(
		entry.Status,
		fsm.Events{
			// pending → confirmed (settled into an account)
			{Name: EventConfirm, Src: []string{models.EntryStatusPending}, Dst: models.EntryStatusConfirmed},

			// confirmed → reversed (confirmation undone)
			{Name: EventReverse, Src: []string{models.EntryStatusConfirmed}, Dst: models.EntryStatusReversed},

			// reversed → pending
			{Name: EventReopen, Src: []string{models.EntryStatusReversed}, Dst: models.EntryStatusPending},

			// pending → skipped (kept, excluded from totals)
			{Name: EventSkip, Src: []string{models.EntryStatusPending}, Dst: models.EntryStatusSkipped},

			// skipped → pending
			{Name: EventUnskip, Src: []string{models.EntryStatusSkipped}, Dst: models.EntryStatusPending},
		},
		fsm.Callbacks{},
	)

	return efsm
}

// Confirm settles the entry into account on the given day. A zero amount keeps the
// entry's own amount.
func (e *EntryFSM) Confirm(ctx context.Context, accountID uint, on date.Date, amount decimal.Decimal) error {
	if !e.entry.MayConfirm() {
		return fmt.Errorf("%w: lançamento não pode ser confirmado no estado %s", ErrInvalidTransition, e.entry.Status)
	}
	if accountID == 0 {
		return fmt.Errorf("conta obrigatória para confirmar: %w", models.ErrMissingReference)
	}
	if on.IsZero() {
		return errors.New("data de confirmação obrigatória")
	}
	if amount.IsNegative() {
		return models.ErrInvalidAmount
	}

	if err := e.event(ctx, EventConfirm); err != nil {
		return err
	}

	e.entry.SettlementDate = on
	e.entry.AccountID = &accountID
	if amount.IsPositive() {
		e.entry.Amount = amount
	}
	return nil
}

// Reverse undoes a confirmation and leaves the entry pending with no settlement date.
// Reversing an entry that is not confirmed is an error and changes nothing.
func (e *EntryFSM) Reverse(ctx context.Context) error {
	if !e.entry.MayReverse() {
		return fmt.Errorf("%w: lançamento não pode ser estornado no estado %s", ErrInvalidTransition, e.entry.Status)
	}

	if err := e.event(ctx, EventReverse); err != nil {
		return err
	}
	if err := e.event(ctx, EventReopen); err != nil {
		return err
	}

	e.entry.SettlementDate = date.Date{}
	return nil
}

// Skip excludes a pending entry from totals
func (e *EntryFSM) Skip(ctx context.Context) error {
	if !e.entry.MaySkip() {
		return fmt.Errorf("%w: lançamento não pode ser ignorado no estado %s", ErrInvalidTransition, e.entry.Status)
	}
	return e.event(ctx, EventSkip)
}

// Unskip brings a skipped entry back to pending
func (e *EntryFSM) Unskip(ctx context.Context) error {
	if !e.entry.MayUnskip() {
		return fmt.Errorf("%w: lançamento não está ignorado (%s)", ErrInvalidTransition, e.entry.Status)
	}
	return e.event(ctx, EventUnskip)
}

func (e *EntryFSM) event(ctx context.Context, name string) error {
	if err := e.fsm.Event(ctx, name); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidTransition, name, err)
	}
	e.entry.Status = e.fsm.Current()
	return nil
}

// Current returns the current state
func (e *EntryFSM) Current() string {
	return e.fsm.Current()
}

// Can checks if a transition is possible
func (e *EntryFSM) Can(event string) bool {
	return e.fsm.Can(event)
}
