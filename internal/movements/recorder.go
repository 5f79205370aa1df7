package movements

import (
	"go.uber.org/zap"

	"github.com/jason-KITIO/k.kits-sub004/internal/ledger"
	"github.com/jason-KITIO/k.kits-sub004/pkg/models"
)

// Recorder pairs a ledger apply with an append to the movement log. The apply
// goes first and the record is only written on success, so the log never
// describes an effect that did not happen. If the append itself fails the
// ledger stays correct and the gap is left for reconciliation to find.
type Recorder struct {
	ledger *ledger.Service
	repo   MovementRepository
	log    *zap.Logger
}

func NewRecorder(l *ledger.Service, repo MovementRepository, log *zap.Logger) *Recorder {
	return &Recorder{ledger: l, repo: repo, log: log}
}

func (r *Recorder) Record(productID int, loc models.LocationRef, movementType models.MovementType,
	delta int, actorUserID int, reason *string, relatedTransferID *int) (*models.MovementRecord, error) {

	entry, err := r.ledger.Apply(productID, loc, delta)
	if err != nil {
		return nil, err
	}

	record := &models.MovementRecord{
		ProductID:         productID,
		Location:          loc,
		Type:              movementType,
		QuantityDelta:     delta,
		ResultingQuantity: entry.Quantity,
		ActorUserID:       actorUserID,
		RelatedTransferID: relatedTransferID,
		Reason:            reason,
	}

	if err := r.repo.Insert(record); err != nil {
		// The ledger effect is already in and must not be re-driven by a retry.
		// A missing audit row beats a phantom one; log the gap for operators
		// and report the movement as applied.
		r.log.Error("movement applied but not recorded",
			zap.Int("product_id", productID),
			zap.String("location", loc.Key()),
			zap.String("type", string(movementType)),
			zap.Int("delta", delta),
			zap.Error(err),
		)
	}

	return record, nil
}

func (r *Recorder) ListByKey(productID int, loc models.LocationRef, limit int) ([]models.MovementRecord, error) {
	return r.repo.ListByKey(productID, loc, limit)
}

func (r *Recorder) ListByTransfer(transferID int) ([]models.MovementRecord, error) {
	return r.repo.ListByTransfer(transferID)
}
