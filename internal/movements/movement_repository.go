package movements

import (
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/jason-KITIO/k.kits-sub004/internal/repository"
	"github.com/jason-KITIO/k.kits-sub004/pkg/models"
)

type MovementRepository interface {
	Insert(record *models.MovementRecord) error
	ListByKey(productID int, loc models.LocationRef, limit int) ([]models.MovementRecord, error)
	ListByTransfer(transferID int) ([]models.MovementRecord, error)
}

type movementRepository struct {
	repo *repository.Repository
}

func NewRepository(r *repository.Repository) MovementRepository {
	return &movementRepository{repo: r}
}

type flatMovement struct {
	ID                int64               `db:"id"`
	ProductID         int                 `db:"product_id"`
	LocationKind      models.LocationKind `db:"location_kind"`
	LocationID        int                 `db:"location_id"`
	Type              models.MovementType `db:"movement_type"`
	QuantityDelta     int                 `db:"quantity_delta"`
	ResultingQuantity int                 `db:"resulting_quantity"`
	ActorUserID       int                 `db:"actor_user_id"`
	RelatedTransferID *int                `db:"related_transfer_id"`
	Reason            *string             `db:"reason"`
	CreatedAt         time.Time           `db:"created_at"`
}

func (f flatMovement) toRecord() models.MovementRecord {
	return models.MovementRecord{
		ID:                f.ID,
		ProductID:         f.ProductID,
		Location:          models.LocationRef{Kind: f.LocationKind, ID: f.LocationID},
		Type:              f.Type,
		QuantityDelta:     f.QuantityDelta,
		ResultingQuantity: f.ResultingQuantity,
		ActorUserID:       f.ActorUserID,
		RelatedTransferID: f.RelatedTransferID,
		Reason:            f.Reason,
		CreatedAt:         f.CreatedAt,
	}
}

// Insert appends one row to the movement log. There is no update or delete
// anywhere against stock_movements; the serial id gives the log its order.
func (r *movementRepository) Insert(record *models.MovementRecord) error {
	query := r.repo.GoquDBWrapper.Insert("stock_movements").
		Rows(goqu.Record{
			"product_id":          record.ProductID,
			"location_kind":       string(record.Location.Kind),
			"location_id":         record.Location.ID,
			"movement_type":       string(record.Type),
			"quantity_delta":      record.QuantityDelta,
			"resulting_quantity":  record.ResultingQuantity,
			"actor_user_id":       record.ActorUserID,
			"related_transfer_id": record.RelatedTransferID,
			"reason":              record.Reason,
		}).
		Returning("id", "created_at")

	var inserted struct {
		ID        int64     `db:"id"`
		CreatedAt time.Time `db:"created_at"`
	}
	if _, err := query.Executor().ScanStruct(&inserted); err != nil {
		return fmt.Errorf("failed to insert movement record: %w", err)
	}
	record.ID = inserted.ID
	record.CreatedAt = inserted.CreatedAt

	return nil
}

func (r *movementRepository) ListByKey(productID int, loc models.LocationRef, limit int) ([]models.MovementRecord, error) {
	query := r.repo.GoquDBWrapper.
		Select("id", "product_id", "location_kind", "location_id", "movement_type",
			"quantity_delta", "resulting_quantity", "actor_user_id", "related_transfer_id", "reason", "created_at").
		From("stock_movements").
		Where(goqu.Ex{
			"product_id":    productID,
			"location_kind": string(loc.Kind),
			"location_id":   loc.ID,
		}).
		Order(goqu.C("id").Desc())
	if limit > 0 {
		query = query.Limit(uint(limit))
	}

	return scanMovements(query)
}

func (r *movementRepository) ListByTransfer(transferID int) ([]models.MovementRecord, error) {
	query := r.repo.GoquDBWrapper.
		Select("id", "product_id", "location_kind", "location_id", "movement_type",
			"quantity_delta", "resulting_quantity", "actor_user_id", "related_transfer_id", "reason", "created_at").
		From("stock_movements").
		Where(goqu.Ex{"related_transfer_id": transferID}).
		Order(goqu.C("id").Asc())

	return scanMovements(query)
}

func scanMovements(query *goqu.SelectDataset) ([]models.MovementRecord, error) {
	var flats []flatMovement
	if err := query.Executor().ScanStructs(&flats); err != nil {
		return nil, fmt.Errorf("error executing SQL statement for movements: %w", err)
	}

	records := make([]models.MovementRecord, 0, len(flats))
	for _, flat := range flats {
		records = append(records, flat.toRecord())
	}
	return records, nil
}
