package ledger

import (
	"errors"

	"go.uber.org/zap"

	custom_error "github.com/jason-KITIO/k.kits-sub004/pkg/errors"
	"github.com/jason-KITIO/k.kits-sub004/pkg/models"
)

// Service is the single source of truth for how much stock a location holds
// right now. All quantity changes anywhere in the system go through its four
// atomic operations.
type Service struct {
	store Store
	log   *zap.Logger
}

func NewService(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

// GetQuantity reads current quantity and reservation for a key. Unknown keys
// read as zero.
func (s *Service) GetQuantity(productID int, loc models.LocationRef) (quantity int, reserved int, err error) {
	entry, err := s.store.Get(productID, loc)
	if err != nil {
		return 0, 0, err
	}
	return entry.Quantity, entry.ReservedQuantity, nil
}

func (s *Service) GetEntry(productID int, loc models.LocationRef) (models.StockEntry, error) {
	return s.store.Get(productID, loc)
}

// ListByLocation is the batch read used by the location stock listing.
func (s *Service) ListByLocation(loc models.LocationRef) ([]models.StockEntry, error) {
	return s.store.ListByLocation(loc)
}

// Reserve places a soft hold on stock. Failing with ErrInsufficientStock is a
// normal business outcome, surfaced to the caller for a retry or rejection.
func (s *Service) Reserve(productID int, loc models.LocationRef, amount int) error {
	if amount <= 0 {
		return custom_error.Validation("reserve amount must be positive, got %d", amount)
	}
	return s.store.Reserve(productID, loc, amount)
}

// Release gives a hold back. Over-release beyond the current reservation is a
// programming error, logged and reported as an invariant violation.
func (s *Service) Release(productID int, loc models.LocationRef, amount int) error {
	if amount <= 0 {
		return custom_error.Validation("release amount must be positive, got %d", amount)
	}

	err := s.store.Release(productID, loc, amount)

	var violation *custom_error.InvariantViolationError
	if errors.As(err, &violation) {
		s.log.Error("ledger invariant violated",
			zap.String("op", violation.Op),
			zap.Int("product_id", productID),
			zap.String("location", loc.Key()),
			zap.Error(err),
		)
	}
	return err
}

// Apply adjusts quantity by a signed delta without touching the reservation.
// Callers converting a hold into a debit call Apply first and Release after,
// so the held stock never looks available to a competing reservation.
func (s *Service) Apply(productID int, loc models.LocationRef, delta int) (models.StockEntry, error) {
	if delta == 0 {
		return s.store.Get(productID, loc)
	}
	return s.store.Apply(productID, loc, delta)
}
