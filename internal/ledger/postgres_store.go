package ledger

import (
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/jason-KITIO/k.kits-sub004/internal/repository"
	custom_error "github.com/jason-KITIO/k.kits-sub004/pkg/errors"
	"github.com/jason-KITIO/k.kits-sub004/pkg/models"
)

// postgresStore keeps stock entries in the stock_entries table. Atomicity per
// key comes from single-statement guarded updates: the WHERE clause carries
// the invariant and RowsAffected == 0 means the guard refused the change.
// Row-level locking scopes contention to one key.
type postgresStore struct {
	repo *repository.Repository
}

func NewPostgresStore(r *repository.Repository) Store {
	return &postgresStore{repo: r}
}

type flatEntry struct {
	ProductID        int                 `db:"product_id"`
	LocationKind     models.LocationKind `db:"location_kind"`
	LocationID       int                 `db:"location_id"`
	Quantity         int                 `db:"quantity"`
	ReservedQuantity int                 `db:"reserved_quantity"`
	LastUpdated      time.Time           `db:"last_updated"`
}

func (f flatEntry) toEntry() models.StockEntry {
	return models.StockEntry{
		ProductID:        f.ProductID,
		Location:         models.LocationRef{Kind: f.LocationKind, ID: f.LocationID},
		Quantity:         f.Quantity,
		ReservedQuantity: f.ReservedQuantity,
		LastUpdated:      f.LastUpdated,
	}
}

func keyEx(productID int, loc models.LocationRef) goqu.Ex {
	return goqu.Ex{
		"product_id":    productID,
		"location_kind": string(loc.Kind),
		"location_id":   loc.ID,
	}
}

func (s *postgresStore) Get(productID int, loc models.LocationRef) (models.StockEntry, error) {
	var flat flatEntry
	query := s.repo.GoquDBWrapper.
		Select("product_id", "location_kind", "location_id", "quantity", "reserved_quantity", "last_updated").
		From("stock_entries").
		Where(keyEx(productID, loc))

	found, err := query.Executor().ScanStruct(&flat)
	if err != nil {
		return models.StockEntry{}, fmt.Errorf("failed to read stock entry: %w", err)
	}
	if !found {
		// First touch: an untouched key reads as the zero entry.
		return models.StockEntry{ProductID: productID, Location: loc}, nil
	}

	return flat.toEntry(), nil
}

func (s *postgresStore) ListByLocation(loc models.LocationRef) ([]models.StockEntry, error) {
	var flats []flatEntry
	query := s.repo.GoquDBWrapper.
		Select("product_id", "location_kind", "location_id", "quantity", "reserved_quantity", "last_updated").
		From("stock_entries").
		Where(goqu.Ex{
			"location_kind": string(loc.Kind),
			"location_id":   loc.ID,
		})

	if err := query.Executor().ScanStructs(&flats); err != nil {
		return nil, fmt.Errorf("failed to list stock entries: %w", err)
	}

	entries := make([]models.StockEntry, 0, len(flats))
	for _, flat := range flats {
		entries = append(entries, flat.toEntry())
	}

	return entries, nil
}

// ensureRow creates the zero entry for a key so guarded updates have a row to
// match. ON CONFLICT DO NOTHING keeps concurrent first touches harmless.
func (s *postgresStore) ensureRow(productID int, loc models.LocationRef) error {
	query := s.repo.GoquDBWrapper.Insert("stock_entries").
		Rows(goqu.Record{
			"product_id":        productID,
			"location_kind":     string(loc.Kind),
			"location_id":       loc.ID,
			"quantity":          0,
			"reserved_quantity": 0,
		}).
		OnConflict(goqu.DoNothing())

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to initialize stock entry: %w", err)
	}

	return nil
}

func (s *postgresStore) Reserve(productID int, loc models.LocationRef, amount int) error {
	if err := s.ensureRow(productID, loc); err != nil {
		return err
	}

	query := s.repo.GoquDBWrapper.Update("stock_entries").
		Set(goqu.Record{
			"reserved_quantity": goqu.L("reserved_quantity + ?", amount),
			"last_updated":      goqu.L("NOW()"),
		}).
		Where(keyEx(productID, loc)).
		Where(goqu.L("quantity - reserved_quantity >= ?", amount))

	result, err := query.Executor().Exec()
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return custom_error.ErrInsufficientStock
	}

	return nil
}

func (s *postgresStore) Release(productID int, loc models.LocationRef, amount int) error {
	query := s.repo.GoquDBWrapper.Update("stock_entries").
		Set(goqu.Record{
			"reserved_quantity": goqu.L("reserved_quantity - ?", amount),
			"last_updated":      goqu.L("NOW()"),
		}).
		Where(keyEx(productID, loc)).
		Where(goqu.C("reserved_quantity").Gte(amount))

	result, err := query.Executor().Exec()
	if err != nil {
		return fmt.Errorf("failed to release stock reservation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return custom_error.InvariantViolation("ledger.release",
			"release of %d exceeds current reservation for product %d at %s", amount, productID, loc.Key())
	}

	return nil
}

func (s *postgresStore) Apply(productID int, loc models.LocationRef, delta int) (models.StockEntry, error) {
	if delta > 0 {
		if err := s.ensureRow(productID, loc); err != nil {
			return models.StockEntry{}, err
		}
	}

	query := s.repo.GoquDBWrapper.Update("stock_entries").
		Set(goqu.Record{
			"quantity":     goqu.L("quantity + ?", delta),
			"last_updated": goqu.L("NOW()"),
		}).
		Where(keyEx(productID, loc)).
		Where(goqu.L("quantity + ? >= 0", delta)).
		Returning("product_id", "location_kind", "location_id", "quantity", "reserved_quantity", "last_updated")

	var flat flatEntry
	found, err := query.Executor().ScanStruct(&flat)
	if err != nil {
		return models.StockEntry{}, fmt.Errorf("failed to apply stock delta: %w", err)
	}
	if !found {
		return models.StockEntry{}, custom_error.ErrInsufficientStock
	}

	return flat.toEntry(), nil
}
