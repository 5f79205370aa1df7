package ledger

import (
	"github.com/jason-KITIO/k.kits-sub004/pkg/models"
)

// Store is the persistence boundary for stock entries. Every method is atomic
// per (product, location) key; operations on different keys never block each
// other. Nothing outside this package mutates quantity or reserved_quantity.
type Store interface {
	// Get returns the entry for a key, or the zero entry if the key was never
	// touched.
	Get(productID int, loc models.LocationRef) (models.StockEntry, error)

	// ListByLocation returns all entries held at one location.
	ListByLocation(loc models.LocationRef) ([]models.StockEntry, error)

	// Reserve raises reserved_quantity by amount iff reserved+amount <= quantity.
	// Returns ErrInsufficientStock otherwise.
	Reserve(productID int, loc models.LocationRef, amount int) error

	// Release lowers reserved_quantity by amount. Releasing more than is
	// currently reserved is an InvariantViolationError.
	Release(productID int, loc models.LocationRef, amount int) error

	// Apply adjusts quantity by delta and returns the post-apply entry.
	// Returns ErrInsufficientStock if the result would go negative. Reserved
	// quantity is untouched; converting a hold into a debit is apply then
	// release, so the stock never flashes available in between.
	Apply(productID int, loc models.LocationRef, delta int) (models.StockEntry, error)
}
