package transfers

import (
	"time"

	"github.com/doug-martin/goqu/v9"
	"go.uber.org/zap"

	"github.com/jason-KITIO/k.kits-sub004/internal/notifier"
	custom_error "github.com/jason-KITIO/k.kits-sub004/pkg/errors"
	"github.com/jason-KITIO/k.kits-sub004/pkg/models"
)

// LocationResolver confirms a location reference exists before a workflow
// touches stock for it.
type LocationResolver interface {
	Resolve(ref models.LocationRef) (*models.Location, error)
}

type TransferService struct {
	tr     TransferRepository
	engine *Engine
	locs   LocationResolver
	notify notifier.Sink
	log    *zap.Logger
}

func NewTransferService(tr TransferRepository, engine *Engine, locs LocationResolver,
	notify notifier.Sink, log *zap.Logger) *TransferService {
	return &TransferService{tr: tr, engine: engine, locs: locs, notify: notify, log: log}
}

// RequestTransfer creates a PENDING proposal. No stock is reserved yet: many
// pending requests may compete for the same stock, and contention is resolved
// at approval time.
func (s *TransferService) RequestTransfer(productID int, source, destination models.LocationRef,
	quantity int, requestedBy int, notes *string) (*models.TransferRequest, error) {

	if quantity <= 0 {
		return nil, custom_error.Validation("transfer quantity must be positive, got %d", quantity)
	}
	if source.Equal(destination) {
		return nil, custom_error.Validation("source and destination must differ")
	}

	for _, ref := range []models.LocationRef{source, destination} {
		loc, err := s.locs.Resolve(ref)
		if err != nil {
			return nil, err
		}
		if !loc.Active {
			return nil, custom_error.Validation("location %s is deactivated", ref.Key())
		}
	}

	transfer := &models.TransferRequest{
		ProductID:   productID,
		Quantity:    quantity,
		Source:      source,
		Destination: destination,
		RequestedBy: requestedBy,
		Notes:       notes,
	}

	if err := s.tr.InsertTransferRecord(transfer); err != nil {
		return nil, err
	}

	return transfer, nil
}

// Approve is where the system commits to holding stock, so it is where
// scarcity surfaces: when the reservation fails the request simply stays
// PENDING and the approver retries later or rejects. When several pending
// requests compete, whichever approval wins the reservation race succeeds.
func (s *TransferService) Approve(transferID int, approvedBy int) (*models.TransferRequest, error) {
	transfer, err := s.tr.GetTransferRow(transferID)
	if err != nil {
		return nil, err
	}
	if !transfer.Status.CanTransitionTo(models.TransferApproved) {
		return nil, &custom_error.InvalidTransitionError{
			Entity: "transfer", From: string(transfer.Status), Action: "approve",
		}
	}

	if err := s.engine.Hold(transfer.ProductID, transfer.Source, transfer.Quantity); err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.tr.UpdateStatus(transferID, models.TransferPending, models.TransferApproved, goqu.Record{
		"approved_by": approvedBy,
		"approved_at": now,
	})
	if err != nil {
		// Lost the transition race after winning the reservation; give the
		// hold back before reporting the conflict.
		if releaseErr := s.engine.ReleaseHold(transfer.ProductID, transfer.Source, transfer.Quantity); releaseErr != nil {
			s.log.Error("failed to unwind reservation after stale approve",
				zap.Int("transfer_id", transferID), zap.Error(releaseErr))
		}
		return nil, err
	}

	transfer.Status = models.TransferApproved
	transfer.ApprovedBy = &approvedBy
	transfer.ApprovedAt = &now

	go s.notify.TransferApproved(transfer)

	return transfer, nil
}

// Complete realizes the move: debit source, release the hold, credit
// destination, both sides recorded against the transfer id. The status flips
// first so a concurrent complete applies the stock effect exactly once.
func (s *TransferService) Complete(transferID int, completedBy int) (*models.TransferRequest, error) {
	transfer, err := s.tr.GetTransferRow(transferID)
	if err != nil {
		return nil, err
	}
	if !transfer.Status.CanTransitionTo(models.TransferCompleted) {
		return nil, &custom_error.InvalidTransitionError{
			Entity: "transfer", From: string(transfer.Status), Action: "complete",
		}
	}

	now := time.Now()
	err = s.tr.UpdateStatus(transferID, models.TransferApproved, models.TransferCompleted, goqu.Record{
		"completed_by": completedBy,
		"completed_at": now,
	})
	if err != nil {
		return nil, err
	}

	if err := s.engine.Commit(transfer.ProductID, transfer.Source, transfer.Destination,
		transfer.Quantity, completedBy, transferID); err != nil {

		// A failed commit compensates its own partial effects, so APPROVED
		// with the hold still in place is the state being returned to.
		s.log.Error("transfer commit failed, reverting to approved",
			zap.Int("transfer_id", transferID), zap.Error(err))
		revertErr := s.tr.UpdateStatus(transferID, models.TransferCompleted, models.TransferApproved, goqu.Record{
			"completed_by": nil,
			"completed_at": nil,
		})
		if revertErr != nil {
			s.log.Error("failed to revert transfer status",
				zap.Int("transfer_id", transferID), zap.Error(revertErr))
		}
		return nil, err
	}

	transfer.Status = models.TransferCompleted
	transfer.CompletedBy = &completedBy
	transfer.CompletedAt = &now

	go s.notify.TransferCompleted(transfer)

	return transfer, nil
}

// Cancel is valid from PENDING (no ledger effect) and from APPROVED (the
// reservation is given back). Against a terminal transfer it is a no-op
// reported as ErrAlreadyTerminal.
func (s *TransferService) Cancel(transferID int) (*models.TransferRequest, error) {
	transfer, err := s.tr.GetTransferRow(transferID)
	if err != nil {
		return nil, err
	}

	switch transfer.Status {
	case models.TransferPending:
		if err := s.tr.UpdateStatus(transferID, models.TransferPending, models.TransferCancelled, goqu.Record{}); err != nil {
			return nil, err
		}
	case models.TransferApproved:
		if err := s.tr.UpdateStatus(transferID, models.TransferApproved, models.TransferCancelled, goqu.Record{}); err != nil {
			return nil, err
		}
		if err := s.engine.ReleaseHold(transfer.ProductID, transfer.Source, transfer.Quantity); err != nil {
			s.log.Error("failed to release reservation on cancel",
				zap.Int("transfer_id", transferID), zap.Error(err))
			return nil, err
		}
	default:
		return transfer, custom_error.ErrAlreadyTerminal
	}

	transfer.Status = models.TransferCancelled
	return transfer, nil
}

// Reject refuses a PENDING proposal. There is nothing to unwind because a
// pending request holds no stock.
func (s *TransferService) Reject(transferID int, reason string) (*models.TransferRequest, error) {
	transfer, err := s.tr.GetTransferRow(transferID)
	if err != nil {
		return nil, err
	}
	if !transfer.Status.CanTransitionTo(models.TransferRejected) {
		return nil, &custom_error.InvalidTransitionError{
			Entity: "transfer", From: string(transfer.Status), Action: "reject",
		}
	}

	extra := goqu.Record{}
	if reason != "" {
		extra["notes"] = reason
	}
	if err := s.tr.UpdateStatus(transferID, models.TransferPending, models.TransferRejected, extra); err != nil {
		return nil, err
	}

	transfer.Status = models.TransferRejected
	if reason != "" {
		transfer.Notes = &reason
	}
	return transfer, nil
}

func (s *TransferService) GetTransfer(transferID int) (*models.TransferRequest, error) {
	return s.tr.GetTransferRow(transferID)
}

func (s *TransferService) ListTransfers(status *models.TransferStatus) ([]models.TransferRequest, error) {
	return s.tr.GetTransferRows(status)
}

// movements for one transfer, for the audit surface
func (s *TransferService) GetTransferMovements(transferID int) ([]models.MovementRecord, error) {
	if _, err := s.tr.GetTransferRow(transferID); err != nil {
		return nil, err
	}
	return s.engine.Recorder.ListByTransfer(transferID)
}
