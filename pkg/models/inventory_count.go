package models

import (
	"fmt"
	"time"
)

type CountStatus string

const (
	CountScheduled CountStatus = "scheduled"
	CountCompleted CountStatus = "completed"
	CountCancelled CountStatus = "cancelled"
)

func NewCountStatus(value string) (CountStatus, error) {
	status := CountStatus(value)
	switch status {
	case CountScheduled, CountCompleted, CountCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("invalid count status: %s", value)
	}
}

func (s CountStatus) IsTerminal() bool {
	return s != CountScheduled
}

// InventoryCount compares a ledger snapshot taken at schedule time against a
// physically counted quantity. ExpectedQty is frozen when the count is
// scheduled; the difference at completion is relative to that snapshot, never
// to the current ledger value.
type InventoryCount struct {
	ID            int         `json:"id" db:"id"`
	ProductID     int         `json:"product_id" db:"product_id"`
	Location      LocationRef `json:"location"`
	ExpectedQty   int         `json:"expected_qty" db:"expected_qty"`
	ActualQty     *int        `json:"actual_qty,omitempty" db:"actual_qty"`
	Difference    *int        `json:"difference,omitempty" db:"difference"`
	Status        CountStatus `json:"status" db:"status"`
	ScheduledDate time.Time   `json:"scheduled_date" db:"scheduled_date"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
	PerformedBy   int         `json:"performed_by" db:"performed_by"`
}
