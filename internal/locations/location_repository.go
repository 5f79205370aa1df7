package locations

import (
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"github.com/jason-KITIO/k.kits-sub004/internal/repository"
	custom_error "github.com/jason-KITIO/k.kits-sub004/pkg/errors"
	"github.com/jason-KITIO/k.kits-sub004/pkg/models"
)

type LocationRepository struct {
	Repository *repository.Repository
}

func NewLocationRepository(r *repository.Repository) *LocationRepository {
	return &LocationRepository{Repository: r}
}

func (r *LocationRepository) GetLocations(organizationID int) ([]models.Location, error) {
	var locations = []models.Location{}
	query := r.Repository.GoquDBWrapper.
		Select("id", "organization_id", "kind", "name", "store_id", "details", "active").
		From("locations").
		Where(goqu.Ex{"organization_id": organizationID})
	if err := query.Executor().ScanStructs(&locations); err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}

	return locations, nil
}

func (r *LocationRepository) GetLocation(locationID int) (*models.Location, error) {
	var loc models.Location
	query := r.Repository.GoquDBWrapper.
		Select("id", "organization_id", "kind", "name", "store_id", "details", "active").
		From("locations").
		Where(goqu.Ex{"id": locationID})

	found, err := query.Executor().ScanStruct(&loc)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	if !found {
		return nil, custom_error.NotFound("location", locationID)
	}

	return &loc, nil
}

// Resolve maps a ledger location reference back to its registry row. Workflow
// services use it to confirm a reference exists and is active before touching
// stock.
func (r *LocationRepository) Resolve(ref models.LocationRef) (*models.Location, error) {
	loc, err := r.GetLocation(ref.ID)
	if err != nil {
		return nil, err
	}
	if loc.Kind != ref.Kind {
		return nil, custom_error.NotFound("location", ref.Key())
	}
	return loc, nil
}

func (r *LocationRepository) PersistLocation(location *models.Location) error {
	query := r.Repository.GoquDBWrapper.Insert("locations").
		Rows(goqu.Record{
			"organization_id": location.OrganizationID,
			"kind":            string(location.Kind),
			"name":            location.Name,
			"store_id":        location.StoreID,
			"details":         location.Details,
			"active":          true,
		}).
		Returning("id")

	if _, err := query.Executor().ScanVal(&location.ID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return custom_error.WrapDBError("Duplicate location", string(pqErr.Code))
		}
		return fmt.Errorf("failed to insert location record: %w", err)
	}
	location.Active = true

	return nil
}

func (r *LocationRepository) UpdateLocation(locationID int, req UpdateLocationRequest) (models.Location, error) {
	updates := make(map[string]interface{})

	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Details != nil {
		updates["details"] = *req.Details
	}
	if len(updates) == 0 {
		return models.Location{}, fmt.Errorf("no fields to update")
	}

	query := r.Repository.GoquDBWrapper.
		Update("locations").
		Set(updates).
		Where(goqu.Ex{"id": locationID}).
		Returning("id", "organization_id", "kind", "name", "store_id", "details", "active")

	var loc models.Location
	found, err := query.Executor().ScanStruct(&loc)
	if err != nil {
		return models.Location{}, fmt.Errorf("failed to update location: %w", err)
	}
	if !found {
		return models.Location{}, custom_error.NotFound("location", locationID)
	}

	return loc, nil
}

// DeactivateLocation flips the active flag. Locations are never deleted:
// ledger entries and movement history keep pointing at the row.
func (r *LocationRepository) DeactivateLocation(locationID int) error {
	result, err := r.Repository.GoquDBWrapper.
		Update("locations").
		Set(goqu.Record{"active": false}).
		Where(goqu.Ex{"id": locationID}).
		Executor().
		Exec()
	if err != nil {
		return fmt.Errorf("failed to deactivate location: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not retrieve rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return custom_error.NotFound("location", locationID)
	}

	return nil
}
