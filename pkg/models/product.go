package models

// Product carries the per-product alert thresholds. The rest of the product
// catalogue lives outside this service.
type Product struct {
	ID             int    `json:"id" db:"id"`
	OrganizationID int    `json:"organization_id" db:"organization_id"`
	Name           string `json:"name" db:"name"`
	MinStock       int    `json:"min_stock" db:"min_stock"`
	MaxStock       *int   `json:"max_stock,omitempty" db:"max_stock"`
}
