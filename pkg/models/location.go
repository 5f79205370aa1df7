package models

import "fmt"

type LocationKind string

const (
	LocationWarehouse LocationKind = "warehouse"
	LocationStore     LocationKind = "store"
	LocationEmployee  LocationKind = "employee"
)

func NewLocationKind(value string) (LocationKind, error) {
	kind := LocationKind(value)
	if !kind.isValid() {
		return "", fmt.Errorf("invalid location kind: %s", value)
	}
	return kind, nil
}

func (k LocationKind) isValid() bool {
	switch k {
	case LocationWarehouse, LocationStore, LocationEmployee:
		return true
	default:
		return false
	}
}

// LocationRef identifies a stock-holding point: kind plus the id of its row
// in the location registry, for employee-held stock included. It is the
// location half of every ledger key.
type LocationRef struct {
	Kind LocationKind `json:"kind" db:"location_kind" binding:"required"`
	ID   int          `json:"id" db:"location_id" binding:"required"`
}

func (r LocationRef) Key() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

func (r LocationRef) Equal(other LocationRef) bool {
	return r.Kind == other.Kind && r.ID == other.ID
}

func (r LocationRef) Validate() error {
	if !r.Kind.isValid() {
		return fmt.Errorf("invalid location kind: %s", r.Kind)
	}
	if r.ID <= 0 {
		return fmt.Errorf("invalid location id: %d", r.ID)
	}
	return nil
}

// Location is a registry row. Rows are deactivated, never deleted, so movement
// history stays resolvable.
type Location struct {
	ID             int          `json:"id" db:"id"`
	OrganizationID int          `json:"organization_id" db:"organization_id"`
	Kind           LocationKind `json:"kind" db:"kind"`
	Name           string       `json:"name" db:"name"`
	StoreID        *int         `json:"store_id,omitempty" db:"store_id"`
	Details        *string      `json:"details" db:"details"`
	Active         bool         `json:"active" db:"active"`
}

func (l *Location) Ref() LocationRef {
	return LocationRef{Kind: l.Kind, ID: l.ID}
}
