package transfers

import (
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/jason-KITIO/k.kits-sub004/internal/repository"
	custom_error "github.com/jason-KITIO/k.kits-sub004/pkg/errors"
	"github.com/jason-KITIO/k.kits-sub004/pkg/models"
)

type TransferRepository interface {
	InsertTransferRecord(t *models.TransferRequest) error
	GetTransferRow(transferID int) (*models.TransferRequest, error)
	GetTransferRows(status *models.TransferStatus) ([]models.TransferRequest, error)
	// UpdateStatus moves a transfer from one status to another, applying extra
	// column updates in the same statement. It fails with StaleStateError when
	// the row is no longer in the expected status.
	UpdateStatus(transferID int, from, to models.TransferStatus, extra goqu.Record) error
}

type transferRepository struct {
	Repo *repository.Repository
}

func NewRepository(r *repository.Repository) TransferRepository {
	return &transferRepository{Repo: r}
}

type flatTransfer struct {
	ID              int                 `db:"id"`
	ProductID       int                 `db:"product_id"`
	Quantity        int                 `db:"quantity"`
	SourceKind      models.LocationKind `db:"source_kind"`
	SourceID        int                 `db:"source_id"`
	DestinationKind models.LocationKind `db:"destination_kind"`
	DestinationID   int                 `db:"destination_id"`
	Status          string              `db:"status"`
	RequestedBy     int                 `db:"requested_by"`
	ApprovedBy      *int                `db:"approved_by"`
	CompletedBy     *int                `db:"completed_by"`
	RequestedAt     time.Time           `db:"requested_at"`
	ApprovedAt      *time.Time          `db:"approved_at"`
	CompletedAt     *time.Time          `db:"completed_at"`
	Notes           *string             `db:"notes"`
}

var transferColumns = []any{
	"id", "product_id", "quantity", "source_kind", "source_id",
	"destination_kind", "destination_id", "status", "requested_by",
	"approved_by", "completed_by", "requested_at", "approved_at",
	"completed_at", "notes",
}

func (f flatTransfer) toTransfer() models.TransferRequest {
	return models.TransferRequest{
		ID:          f.ID,
		ProductID:   f.ProductID,
		Quantity:    f.Quantity,
		Source:      models.LocationRef{Kind: f.SourceKind, ID: f.SourceID},
		Destination: models.LocationRef{Kind: f.DestinationKind, ID: f.DestinationID},
		Status:      models.TransferStatus(f.Status),
		RequestedBy: f.RequestedBy,
		ApprovedBy:  f.ApprovedBy,
		CompletedBy: f.CompletedBy,
		RequestedAt: f.RequestedAt,
		ApprovedAt:  f.ApprovedAt,
		CompletedAt: f.CompletedAt,
		Notes:       f.Notes,
	}
}

func (r *transferRepository) InsertTransferRecord(t *models.TransferRequest) error {
	query := r.Repo.GoquDBWrapper.Insert("transfers").
		Rows(goqu.Record{
			"product_id":       t.ProductID,
			"quantity":         t.Quantity,
			"source_kind":      string(t.Source.Kind),
			"source_id":        t.Source.ID,
			"destination_kind": string(t.Destination.Kind),
			"destination_id":   t.Destination.ID,
			"status":           string(models.TransferPending),
			"requested_by":     t.RequestedBy,
			"notes":            t.Notes,
		}).
		Returning("id", "requested_at")

	var inserted struct {
		ID          int       `db:"id"`
		RequestedAt time.Time `db:"requested_at"`
	}
	if _, err := query.Executor().ScanStruct(&inserted); err != nil {
		return fmt.Errorf("failed to insert transfer record: %w", err)
	}
	t.ID = inserted.ID
	t.RequestedAt = inserted.RequestedAt
	t.Status = models.TransferPending

	return nil
}

func (r *transferRepository) GetTransferRow(transferID int) (*models.TransferRequest, error) {
	var flat flatTransfer

	query := r.Repo.GoquDBWrapper.
		Select(transferColumns...).
		From("transfers").
		Where(goqu.Ex{"id": transferID})

	found, err := query.Executor().ScanStruct(&flat)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	if !found {
		return nil, custom_error.NotFound("transfer", transferID)
	}

	transfer := flat.toTransfer()
	return &transfer, nil
}

func (r *transferRepository) GetTransferRows(status *models.TransferStatus) ([]models.TransferRequest, error) {
	query := r.Repo.GoquDBWrapper.
		Select(transferColumns...).
		From("transfers").
		Order(goqu.C("id").Desc())
	if status != nil {
		query = query.Where(goqu.Ex{"status": string(*status)})
	}

	var flats []flatTransfer
	if err := query.Executor().ScanStructs(&flats); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	transfers := make([]models.TransferRequest, 0, len(flats))
	for _, flat := range flats {
		transfers = append(transfers, flat.toTransfer())
	}

	return transfers, nil
}

func (r *transferRepository) UpdateStatus(transferID int, from, to models.TransferStatus, extra goqu.Record) error {
	record := goqu.Record{"status": string(to)}
	for column, value := range extra {
		record[column] = value
	}

	query := r.Repo.GoquDBWrapper.
		Update("transfers").
		Set(record).
		Where(goqu.Ex{
			"id":     transferID,
			"status": string(from),
		})

	result, err := query.Executor().Exec()
	if err != nil {
		return fmt.Errorf("failed to update transfer %d: %w", transferID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &custom_error.StaleStateError{Entity: "transfer", ID: transferID, Expected: string(from)}
	}

	return nil
}
