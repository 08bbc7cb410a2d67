package services

import (
	"errors"
	"fmt"

	"github.com/sjperalta/fintera-cashflow/internal/cashflow"
	"github.com/sjperalta/fintera-cashflow/internal/models"
	"github.com/sjperalta/fintera-cashflow/internal/repository"
	"github.com/sjperalta/fintera-cashflow/internal/statemachine"
)

// Common service errors. They alias the lower layers so callers only import services.
var (
	ErrNotFound          = repository.ErrNotFound
	ErrInvalidTransition = statemachine.ErrInvalidTransition
	ErrMissingReference  = models.ErrMissingReference
	ErrMalformedDate     = cashflow.ErrMalformedDate
	ErrInvalidInput      = errors.New("dados inválidos")
)

// EntryFailure is one entry a batch operation could not apply
type EntryFailure struct {
	EntryID uint
	Err     error
}

// PartialBatchFailure reports the entries of a batch that failed. The other entries
// were applied.
type PartialBatchFailure struct {
	Succeeded int
	Failures  []EntryFailure
}

func (e *PartialBatchFailure) Error() string {
	return fmt.Sprintf("%d succeeded, %d failed", e.Succeeded, len(e.Failures))
}

// Unwrap exposes every per-entry error to errors.Is and errors.As
func (e *PartialBatchFailure) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// storeError folds a lost race on the entry's status into ErrInvalidTransition
func storeError(err error) error {
	if errors.Is(err, repository.ErrStatusConflict) {
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}
	return err
}
