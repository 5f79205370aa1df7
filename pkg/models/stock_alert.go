package models

import "time"

type AlertType string

const (
	AlertLowStock   AlertType = "LOW_STOCK"
	AlertOutOfStock AlertType = "OUT_OF_STOCK"
	AlertOverstock  AlertType = "OVERSTOCK"
)

type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "LOW"
	SeverityMedium   AlertSeverity = "MEDIUM"
	SeverityHigh     AlertSeverity = "HIGH"
	SeverityCritical AlertSeverity = "CRITICAL"
)

// StockAlert is a derived classification of a live stock entry. The persisted
// row is not authoritative for quantity; it only carries read/acknowledge
// state across recomputation cycles, matched by (product, location, type).
type StockAlert struct {
	ID             string        `json:"id" db:"id"`
	OrganizationID int           `json:"organization_id" db:"organization_id"`
	ProductID      int           `json:"product_id" db:"product_id"`
	Location       LocationRef   `json:"location"`
	AlertType      AlertType     `json:"alert_type" db:"alert_type"`
	Severity       AlertSeverity `json:"severity" db:"severity"`
	CurrentQty     int           `json:"current_qty" db:"current_qty"`
	ThresholdQty   int           `json:"threshold_qty" db:"threshold_qty"`
	PercentageLeft float64       `json:"percentage_left" db:"-"`
	IsRead         bool          `json:"is_read" db:"is_read"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	ReadAt         *time.Time    `json:"read_at,omitempty" db:"read_at"`
}
