package requests

import (
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/jason-KITIO/k.kits-sub004/internal/repository"
	custom_error "github.com/jason-KITIO/k.kits-sub004/pkg/errors"
	"github.com/jason-KITIO/k.kits-sub004/pkg/models"
)

type RequestRepository interface {
	InsertRequestRecord(m *models.MovementRequest) error
	GetRequestRow(requestID int) (*models.MovementRequest, error)
	GetRequestRows(status *models.TransferStatus) ([]models.MovementRequest, error)
	UpdateStatus(requestID int, from, to models.TransferStatus, extra goqu.Record) error
}

type requestRepository struct {
	Repo *repository.Repository
}

func NewRepository(r *repository.Repository) RequestRepository {
	return &requestRepository{Repo: r}
}

var requestColumns = []any{
	"id", "product_id", "quantity", "from_kind", "from_id", "to_kind", "to_id",
	"status", "requested_by", "approved_by", "requested_at", "approved_at", "notes",
}

func (r *requestRepository) InsertRequestRecord(m *models.MovementRequest) error {
	query := r.Repo.GoquDBWrapper.Insert("movement_requests").
		Rows(goqu.Record{
			"product_id":   m.ProductID,
			"quantity":     m.Quantity,
			"from_kind":    string(m.FromKind),
			"from_id":      m.FromID,
			"to_kind":      string(m.ToKind),
			"to_id":        m.ToID,
			"status":       string(models.TransferPending),
			"requested_by": m.RequestedBy,
			"notes":        m.Notes,
		}).
		Returning("id", "requested_at")

	var inserted struct {
		ID          int       `db:"id"`
		RequestedAt time.Time `db:"requested_at"`
	}
	if _, err := query.Executor().ScanStruct(&inserted); err != nil {
		return fmt.Errorf("failed to insert movement request record: %w", err)
	}
	m.ID = inserted.ID
	m.RequestedAt = inserted.RequestedAt
	m.Status = models.TransferPending

	return nil
}

func (r *requestRepository) GetRequestRow(requestID int) (*models.MovementRequest, error) {
	var request models.MovementRequest

	query := r.Repo.GoquDBWrapper.
		Select(requestColumns...).
		From("movement_requests").
		Where(goqu.Ex{"id": requestID})

	found, err := query.Executor().ScanStruct(&request)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	if !found {
		return nil, custom_error.NotFound("movement request", requestID)
	}

	return &request, nil
}

func (r *requestRepository) GetRequestRows(status *models.TransferStatus) ([]models.MovementRequest, error) {
	query := r.Repo.GoquDBWrapper.
		Select(requestColumns...).
		From("movement_requests").
		Order(goqu.C("id").Desc())
	if status != nil {
		query = query.Where(goqu.Ex{"status": string(*status)})
	}

	var rows []models.MovementRequest
	if err := query.Executor().ScanStructs(&rows); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return rows, nil
}

func (r *requestRepository) UpdateStatus(requestID int, from, to models.TransferStatus, extra goqu.Record) error {
	record := goqu.Record{"status": string(to)}
	for column, value := range extra {
		record[column] = value
	}

	query := r.Repo.GoquDBWrapper.
		Update("movement_requests").
		Set(record).
		Where(goqu.Ex{
			"id":     requestID,
			"status": string(from),
		})

	result, err := query.Executor().Exec()
	if err != nil {
		return fmt.Errorf("failed to update movement request %d: %w", requestID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &custom_error.StaleStateError{Entity: "movement request", ID: requestID, Expected: string(from)}
	}

	return nil
}
