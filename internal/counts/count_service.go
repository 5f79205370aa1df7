package counts

import (
	"time"

	"github.com/doug-martin/goqu/v9"
	"go.uber.org/zap"

	"github.com/jason-KITIO/k.kits-sub004/internal/ledger"
	"github.com/jason-KITIO/k.kits-sub004/internal/movements"
	"github.com/jason-KITIO/k.kits-sub004/internal/notifier"
	custom_error "github.com/jason-KITIO/k.kits-sub004/pkg/errors"
	"github.com/jason-KITIO/k.kits-sub004/pkg/models"
)

// discrepancyThreshold is the absolute difference at which a completed count
// is flagged to the notification sink.
const discrepancyThreshold = 10

// CountService reconciles scheduled physical counts against the ledger. The
// expected quantity is snapshotted when the count is scheduled; the adjustment
// at completion uses that snapshot, never the current ledger value, so the
// delta reflects exactly the drift between snapshot and physical reality.
type CountService struct {
	cr       CountRepository
	ledger   *ledger.Service
	recorder *movements.Recorder
	notify   notifier.Sink
	log      *zap.Logger
}

func NewCountService(cr CountRepository, l *ledger.Service, recorder *movements.Recorder,
	notify notifier.Sink, log *zap.Logger) *CountService {
	return &CountService{cr: cr, ledger: l, recorder: recorder, notify: notify, log: log}
}

func (s *CountService) Schedule(productID int, loc models.LocationRef,
	scheduledDate time.Time, performedBy int) (*models.InventoryCount, error) {

	if err := loc.Validate(); err != nil {
		return nil, custom_error.Validation("%s", err.Error())
	}

	quantity, _, err := s.ledger.GetQuantity(productID, loc)
	if err != nil {
		return nil, err
	}

	count := &models.InventoryCount{
		ProductID:     productID,
		Location:      loc,
		ExpectedQty:   quantity,
		ScheduledDate: scheduledDate,
		PerformedBy:   performedBy,
	}

	if err := s.cr.InsertCountRecord(count); err != nil {
		return nil, err
	}

	return count, nil
}

// Complete accepts the physically observed quantity. A completed count is
// ground truth and always wins: any nonzero difference against the scheduled
// snapshot becomes an ADJUSTMENT movement converging the ledger.
func (s *CountService) Complete(countID int, actualQty int, performedBy int) (*models.InventoryCount, error) {
	if actualQty < 0 {
		return nil, custom_error.Validation("actual quantity cannot be negative, got %d", actualQty)
	}

	count, err := s.cr.GetCountRow(countID)
	if err != nil {
		return nil, err
	}
	if count.Status != models.CountScheduled {
		return nil, &custom_error.InvalidTransitionError{
			Entity: "inventory count", From: string(count.Status), Action: "complete",
		}
	}

	difference := actualQty - count.ExpectedQty
	now := time.Now()

	// Flip the status first so a concurrent complete cannot emit the
	// adjustment twice.
	err = s.cr.UpdateStatus(countID, models.CountScheduled, models.CountCompleted, goqu.Record{
		"actual_qty":   actualQty,
		"difference":   difference,
		"completed_at": now,
	})
	if err != nil {
		return nil, err
	}

	if difference != 0 {
		reason := "inventory count reconciliation"
		if _, err := s.recorder.Record(count.ProductID, count.Location, models.MovementAdjustment,
			difference, performedBy, &reason, nil); err != nil {
			// The count is already marked completed; an unapplied adjustment
			// is operator territory, not something to retry blindly.
			s.log.Error("failed to apply count adjustment",
				zap.Int("count_id", countID),
				zap.Int("difference", difference),
				zap.Error(err),
			)
			return nil, custom_error.InvariantViolation("count.complete",
				"adjustment of %d for count %d could not be applied", difference, countID)
		}
	}

	count.Status = models.CountCompleted
	count.ActualQty = &actualQty
	count.Difference = &difference
	count.CompletedAt = &now

	if difference >= discrepancyThreshold || difference <= -discrepancyThreshold {
		go s.notify.CountDiscrepancy(count)
	}

	return count, nil
}

func (s *CountService) Cancel(countID int) (*models.InventoryCount, error) {
	count, err := s.cr.GetCountRow(countID)
	if err != nil {
		return nil, err
	}
	if count.Status != models.CountScheduled {
		return count, custom_error.ErrAlreadyTerminal
	}

	if err := s.cr.UpdateStatus(countID, models.CountScheduled, models.CountCancelled, goqu.Record{}); err != nil {
		return nil, err
	}

	count.Status = models.CountCancelled
	return count, nil
}

func (s *CountService) GetCount(countID int) (*models.InventoryCount, error) {
	return s.cr.GetCountRow(countID)
}

func (s *CountService) ListCounts(status *models.CountStatus) ([]models.InventoryCount, error) {
	return s.cr.GetCountRows(status)
}
