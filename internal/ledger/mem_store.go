package ledger

import (
	"fmt"
	"sync"
	"time"

	custom_error "github.com/jason-KITIO/k.kits-sub004/pkg/errors"
	"github.com/jason-KITIO/k.kits-sub004/pkg/models"
)

// memStore keeps stock entries in memory behind one mutex per (product,
// location) key, so operations on different keys never block each other. It
// backs the concurrency tests and any deployment that does not need durable
// stock.
type memStore struct {
	mu      sync.Mutex
	entries map[string]*memEntry
}

type memEntry struct {
	mu    sync.Mutex
	entry models.StockEntry
}

func NewMemStore() Store {
	return &memStore{entries: make(map[string]*memEntry)}
}

func memKey(productID int, loc models.LocationRef) string {
	return fmt.Sprintf("%d@%s", productID, loc.Key())
}

// lookup returns the entry for a key, creating the zero entry on first touch.
// The store mutex guards only the map; each entry carries its own lock.
func (s *memStore) lookup(productID int, loc models.LocationRef) *memEntry {
	key := memKey(productID, loc)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &memEntry{entry: models.StockEntry{ProductID: productID, Location: loc}}
		s.entries[key] = e
	}
	return e
}

func (s *memStore) Get(productID int, loc models.LocationRef) (models.StockEntry, error) {
	e := s.lookup(productID, loc)

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.entry, nil
}

func (s *memStore) ListByLocation(loc models.LocationRef) ([]models.StockEntry, error) {
	s.mu.Lock()
	candidates := make([]*memEntry, 0, len(s.entries))
	for _, e := range s.entries {
		candidates = append(candidates, e)
	}
	s.mu.Unlock()

	var entries []models.StockEntry
	for _, e := range candidates {
		e.mu.Lock()
		if e.entry.Location.Equal(loc) {
			entries = append(entries, e.entry)
		}
		e.mu.Unlock()
	}
	return entries, nil
}

func (s *memStore) Reserve(productID int, loc models.LocationRef, amount int) error {
	e := s.lookup(productID, loc)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.entry.ReservedQuantity+amount > e.entry.Quantity {
		return custom_error.ErrInsufficientStock
	}
	e.entry.ReservedQuantity += amount
	e.entry.LastUpdated = time.Now()
	return nil
}

func (s *memStore) Release(productID int, loc models.LocationRef, amount int) error {
	e := s.lookup(productID, loc)

	e.mu.Lock()
	defer e.mu.Unlock()

	if amount > e.entry.ReservedQuantity {
		return custom_error.InvariantViolation("ledger.release",
			"release of %d exceeds current reservation of %d for product %d at %s",
			amount, e.entry.ReservedQuantity, productID, loc.Key())
	}
	e.entry.ReservedQuantity -= amount
	e.entry.LastUpdated = time.Now()
	return nil
}

func (s *memStore) Apply(productID int, loc models.LocationRef, delta int) (models.StockEntry, error) {
	e := s.lookup(productID, loc)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.entry.Quantity+delta < 0 {
		return models.StockEntry{}, custom_error.ErrInsufficientStock
	}
	e.entry.Quantity += delta
	e.entry.LastUpdated = time.Now()
	return e.entry, nil
}
