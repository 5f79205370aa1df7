package models

import "time"

// StockEntry is the current state for one (product, location) key. It is owned
// by the ledger: reserved never exceeds quantity and quantity never goes
// negative; nothing outside the ledger mutates these fields.
type StockEntry struct {
	ProductID        int         `json:"product_id" db:"product_id"`
	Location         LocationRef `json:"location"`
	Quantity         int         `json:"quantity" db:"quantity"`
	ReservedQuantity int         `json:"reserved_quantity" db:"reserved_quantity"`
	LastUpdated      time.Time   `json:"last_updated" db:"last_updated"`
}

// Available is the quantity not held by any reservation.
func (e StockEntry) Available() int {
	return e.Quantity - e.ReservedQuantity
}
