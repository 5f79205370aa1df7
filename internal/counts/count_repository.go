package counts

import (
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/jason-KITIO/k.kits-sub004/internal/repository"
	custom_error "github.com/jason-KITIO/k.kits-sub004/pkg/errors"
	"github.com/jason-KITIO/k.kits-sub004/pkg/models"
)

type CountRepository interface {
	InsertCountRecord(c *models.InventoryCount) error
	GetCountRow(countID int) (*models.InventoryCount, error)
	GetCountRows(status *models.CountStatus) ([]models.InventoryCount, error)
	UpdateStatus(countID int, from, to models.CountStatus, extra goqu.Record) error
}

type countRepository struct {
	Repo *repository.Repository
}

func NewRepository(r *repository.Repository) CountRepository {
	return &countRepository{Repo: r}
}

var countColumns = []any{
	"id", "product_id", "location_kind", "location_id", "expected_qty",
	"actual_qty", "difference", "status", "scheduled_date", "completed_at", "performed_by",
}

type flatCount struct {
	ID            int                 `db:"id"`
	ProductID     int                 `db:"product_id"`
	LocationKind  models.LocationKind `db:"location_kind"`
	LocationID    int                 `db:"location_id"`
	ExpectedQty   int                 `db:"expected_qty"`
	ActualQty     *int                `db:"actual_qty"`
	Difference    *int                `db:"difference"`
	Status        string              `db:"status"`
	ScheduledDate time.Time           `db:"scheduled_date"`
	CompletedAt   *time.Time          `db:"completed_at"`
	PerformedBy   int                 `db:"performed_by"`
}

func (f flatCount) toCount() models.InventoryCount {
	return models.InventoryCount{
		ID:            f.ID,
		ProductID:     f.ProductID,
		Location:      models.LocationRef{Kind: f.LocationKind, ID: f.LocationID},
		ExpectedQty:   f.ExpectedQty,
		ActualQty:     f.ActualQty,
		Difference:    f.Difference,
		Status:        models.CountStatus(f.Status),
		ScheduledDate: f.ScheduledDate,
		CompletedAt:   f.CompletedAt,
		PerformedBy:   f.PerformedBy,
	}
}

func (r *countRepository) InsertCountRecord(c *models.InventoryCount) error {
	query := r.Repo.GoquDBWrapper.Insert("inventory_counts").
		Rows(goqu.Record{
			"product_id":     c.ProductID,
			"location_kind":  string(c.Location.Kind),
			"location_id":    c.Location.ID,
			"expected_qty":   c.ExpectedQty,
			"status":         string(models.CountScheduled),
			"scheduled_date": c.ScheduledDate,
			"performed_by":   c.PerformedBy,
		}).
		Returning("id")

	if _, err := query.Executor().ScanVal(&c.ID); err != nil {
		return fmt.Errorf("failed to insert inventory count record: %w", err)
	}
	c.Status = models.CountScheduled

	return nil
}

func (r *countRepository) GetCountRow(countID int) (*models.InventoryCount, error) {
	var flat flatCount

	query := r.Repo.GoquDBWrapper.
		Select(countColumns...).
		From("inventory_counts").
		Where(goqu.Ex{"id": countID})

	found, err := query.Executor().ScanStruct(&flat)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	if !found {
		return nil, custom_error.NotFound("inventory count", countID)
	}

	count := flat.toCount()
	return &count, nil
}

func (r *countRepository) GetCountRows(status *models.CountStatus) ([]models.InventoryCount, error) {
	query := r.Repo.GoquDBWrapper.
		Select(countColumns...).
		From("inventory_counts").
		Order(goqu.C("id").Desc())
	if status != nil {
		query = query.Where(goqu.Ex{"status": string(*status)})
	}

	var flats []flatCount
	if err := query.Executor().ScanStructs(&flats); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	rows := make([]models.InventoryCount, 0, len(flats))
	for _, flat := range flats {
		rows = append(rows, flat.toCount())
	}

	return rows, nil
}

func (r *countRepository) UpdateStatus(countID int, from, to models.CountStatus, extra goqu.Record) error {
	record := goqu.Record{"status": string(to)}
	for column, value := range extra {
		record[column] = value
	}

	query := r.Repo.GoquDBWrapper.
		Update("inventory_counts").
		Set(record).
		Where(goqu.Ex{
			"id":     countID,
			"status": string(from),
		})

	result, err := query.Executor().Exec()
	if err != nil {
		return fmt.Errorf("failed to update inventory count %d: %w", countID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &custom_error.StaleStateError{Entity: "inventory count", ID: countID, Expected: string(from)}
	}

	return nil
}
