package alerts

import (
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/jason-KITIO/k.kits-sub004/internal/repository"
	"github.com/jason-KITIO/k.kits-sub004/pkg/models"
)

// StockThresholdRow is one stock entry joined with its product thresholds,
// the raw material for one classification.
type StockThresholdRow struct {
	ProductID    int                 `db:"product_id"`
	LocationKind models.LocationKind `db:"location_kind"`
	LocationID   int                 `db:"location_id"`
	Quantity     int                 `db:"quantity"`
	MinStock     int                 `db:"min_stock"`
	MaxStock     *int                `db:"max_stock"`
}

func (r StockThresholdRow) Location() models.LocationRef {
	return models.LocationRef{Kind: r.LocationKind, ID: r.LocationID}
}

type AlertRepository interface {
	ListStockWithThresholds(organizationID int, loc *models.LocationRef) ([]StockThresholdRow, error)
	ListAlertRows(organizationID int) ([]models.StockAlert, error)
	InsertAlertRow(alert *models.StockAlert) error
	DeleteAlertRows(ids []string) error
	MarkRead(ids []string) error
	MarkAllRead(organizationID int) error
}

type alertRepository struct {
	Repo *repository.Repository
}

func NewRepository(r *repository.Repository) AlertRepository {
	return &alertRepository{Repo: r}
}

// ListStockWithThresholds scans every stock row of an organization in one
// query. This is deliberately a rescan-and-filter, not an incremental index.
func (r *alertRepository) ListStockWithThresholds(organizationID int, loc *models.LocationRef) ([]StockThresholdRow, error) {
	query := r.Repo.GoquDBWrapper.
		Select(
			goqu.I("s.product_id").As("product_id"),
			goqu.I("s.location_kind").As("location_kind"),
			goqu.I("s.location_id").As("location_id"),
			goqu.I("s.quantity").As("quantity"),
			goqu.I("p.min_stock").As("min_stock"),
			goqu.I("p.max_stock").As("max_stock"),
		).
		From(goqu.T("stock_entries").As("s")).
		Join(
			goqu.T("products").As("p"),
			goqu.On(goqu.Ex{"p.id": goqu.I("s.product_id")}),
		).
		Where(goqu.Ex{"p.organization_id": organizationID})
	if loc != nil {
		query = query.Where(goqu.Ex{
			"s.location_kind": string(loc.Kind),
			"s.location_id":   loc.ID,
		})
	}

	var rows []StockThresholdRow
	if err := query.Executor().ScanStructs(&rows); err != nil {
		return nil, fmt.Errorf("error executing SQL statement for stock thresholds: %w", err)
	}

	return rows, nil
}

type flatAlert struct {
	ID             string              `db:"id"`
	OrganizationID int                 `db:"organization_id"`
	ProductID      int                 `db:"product_id"`
	LocationKind   models.LocationKind `db:"location_kind"`
	LocationID     int                 `db:"location_id"`
	AlertType      string              `db:"alert_type"`
	Severity       string              `db:"severity"`
	CurrentQty     int                 `db:"current_qty"`
	ThresholdQty   int                 `db:"threshold_qty"`
	IsRead         bool                `db:"is_read"`
	CreatedAt      time.Time           `db:"created_at"`
	ReadAt         *time.Time          `db:"read_at"`
}

func (r *alertRepository) ListAlertRows(organizationID int) ([]models.StockAlert, error) {
	query := r.Repo.GoquDBWrapper.
		Select("id", "organization_id", "product_id", "location_kind", "location_id",
			"alert_type", "severity", "current_qty", "threshold_qty", "is_read", "created_at", "read_at").
		From("stock_alerts").
		Where(goqu.Ex{"organization_id": organizationID})

	var flats []flatAlert
	if err := query.Executor().ScanStructs(&flats); err != nil {
		return nil, fmt.Errorf("error executing SQL statement for stock alerts: %w", err)
	}

	alerts := make([]models.StockAlert, 0, len(flats))
	for _, flat := range flats {
		alerts = append(alerts, models.StockAlert{
			ID:             flat.ID,
			OrganizationID: flat.OrganizationID,
			ProductID:      flat.ProductID,
			Location:       models.LocationRef{Kind: flat.LocationKind, ID: flat.LocationID},
			AlertType:      models.AlertType(flat.AlertType),
			Severity:       models.AlertSeverity(flat.Severity),
			CurrentQty:     flat.CurrentQty,
			ThresholdQty:   flat.ThresholdQty,
			IsRead:         flat.IsRead,
			CreatedAt:      flat.CreatedAt,
			ReadAt:         flat.ReadAt,
		})
	}

	return alerts, nil
}

func (r *alertRepository) InsertAlertRow(alert *models.StockAlert) error {
	query := r.Repo.GoquDBWrapper.Insert("stock_alerts").
		Rows(goqu.Record{
			"id":              alert.ID,
			"organization_id": alert.OrganizationID,
			"product_id":      alert.ProductID,
			"location_kind":   string(alert.Location.Kind),
			"location_id":     alert.Location.ID,
			"alert_type":      string(alert.AlertType),
			"severity":        string(alert.Severity),
			"current_qty":     alert.CurrentQty,
			"threshold_qty":   alert.ThresholdQty,
			"is_read":         alert.IsRead,
			"created_at":      alert.CreatedAt,
		})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to insert stock alert: %w", err)
	}

	return nil
}

func (r *alertRepository) DeleteAlertRows(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := r.Repo.GoquDBWrapper.Delete("stock_alerts").
		Where(goqu.C("id").In(ids))

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to delete stale stock alerts: %w", err)
	}

	return nil
}

func (r *alertRepository) MarkRead(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := r.Repo.GoquDBWrapper.Update("stock_alerts").
		Set(goqu.Record{
			"is_read": true,
			"read_at": goqu.L("NOW()"),
		}).
		Where(goqu.C("id").In(ids))

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to mark alerts read: %w", err)
	}

	return nil
}

func (r *alertRepository) MarkAllRead(organizationID int) error {
	query := r.Repo.GoquDBWrapper.Update("stock_alerts").
		Set(goqu.Record{
			"is_read": true,
			"read_at": goqu.L("NOW()"),
		}).
		Where(goqu.Ex{
			"organization_id": organizationID,
			"is_read":         false,
		})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to mark all alerts read: %w", err)
	}

	return nil
}
