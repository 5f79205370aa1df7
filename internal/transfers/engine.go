package transfers

import (
	"errors"
	"fmt"

	"github.com/jason-KITIO/k.kits-sub004/internal/ledger"
	"github.com/jason-KITIO/k.kits-sub004/internal/movements"
	custom_error "github.com/jason-KITIO/k.kits-sub004/pkg/errors"
	"github.com/jason-KITIO/k.kits-sub004/pkg/models"
)

// Engine is the reserve-at-approval / debit-at-completion protocol shared by
// the transfer workflow and the movement request workflow. Transfers run Hold
// at approve and Commit at complete; movement requests run both inside a
// single approve. Only the granularity differs, never the ledger discipline.
type Engine struct {
	Ledger   *ledger.Service
	Recorder *movements.Recorder
}

func NewEngine(l *ledger.Service, r *movements.Recorder) *Engine {
	return &Engine{Ledger: l, Recorder: r}
}

// Hold reserves quantity at the source. ErrInsufficientStock means the caller
// lost the race for available stock and the request stays where it was.
func (e *Engine) Hold(productID int, source models.LocationRef, quantity int) error {
	return e.Ledger.Reserve(productID, source, quantity)
}

// ReleaseHold gives the reservation back, for cancellations and for unwinding
// a hold whose status transition lost a race.
func (e *Engine) ReleaseHold(productID int, source models.LocationRef, quantity int) error {
	return e.Ledger.Release(productID, source, quantity)
}

// Commit turns a held reservation into the actual goods move: debit the source
// (recorded as TRANSFER_OUT), release the hold, credit the destination
// (recorded as TRANSFER_IN). The debit cannot legitimately fail after a
// successful reservation, so a failure here is an invariant violation and the
// commit aborts with nothing applied. A failure later in the sequence is
// compensated so the caller always observes either the full move or the
// pre-commit state with the hold intact.
func (e *Engine) Commit(productID int, source, destination models.LocationRef, quantity int,
	actorUserID int, transferID int) error {

	if _, err := e.Recorder.Record(productID, source, models.MovementTransferOut,
		-quantity, actorUserID, nil, &transferID); err != nil {
		if errors.Is(err, custom_error.ErrInsufficientStock) {
			return custom_error.InvariantViolation("transfer.commit",
				"debit of %d failed at %s despite reservation for transfer %d",
				quantity, source.Key(), transferID)
		}
		return fmt.Errorf("failed to debit source: %w", err)
	}

	if err := e.Ledger.Release(productID, source, quantity); err != nil {
		if _, compErr := e.Ledger.Apply(productID, source, quantity); compErr != nil {
			return custom_error.InvariantViolation("transfer.commit",
				"release failed after debit for transfer %d and the compensating credit failed: %v, %v",
				transferID, err, compErr)
		}
		return fmt.Errorf("failed to release reservation, debit compensated: %w", err)
	}

	if _, err := e.Recorder.Record(productID, destination, models.MovementTransferIn,
		quantity, actorUserID, nil, &transferID); err != nil {
		_, compErr := e.Ledger.Apply(productID, source, quantity)
		if compErr == nil {
			compErr = e.Ledger.Reserve(productID, source, quantity)
		}
		if compErr != nil {
			return custom_error.InvariantViolation("transfer.commit",
				"credit failed after debit for transfer %d and restoring the source failed: %v, %v",
				transferID, err, compErr)
		}
		return fmt.Errorf("failed to credit destination, source restored: %w", err)
	}

	return nil
}
