package models

import (
	"fmt"
	"time"
)

type MovementType string

const (
	MovementIn          MovementType = "IN"
	MovementOut         MovementType = "OUT"
	MovementTransferOut MovementType = "TRANSFER_OUT"
	MovementTransferIn  MovementType = "TRANSFER_IN"
	MovementAdjustment  MovementType = "ADJUSTMENT"
)

func NewMovementType(value string) (MovementType, error) {
	t := MovementType(value)
	if !t.isValid() {
		return "", fmt.Errorf("invalid movement type: %s", value)
	}
	return t, nil
}

func (t MovementType) isValid() bool {
	switch t {
	case MovementIn, MovementOut, MovementTransferOut, MovementTransferIn, MovementAdjustment:
		return true
	default:
		return false
	}
}

// MovementRecord is one row of the append-only movement log. Rows are never
// updated or deleted; ResultingQuantity snapshots the ledger right after the
// delta was applied.
type MovementRecord struct {
	ID                int64        `json:"id" db:"id"`
	ProductID         int          `json:"product_id" db:"product_id"`
	Location          LocationRef  `json:"location"`
	Type              MovementType `json:"type" db:"movement_type"`
	QuantityDelta     int          `json:"quantity_delta" db:"quantity_delta"`
	ResultingQuantity int          `json:"resulting_quantity" db:"resulting_quantity"`
	ActorUserID       int          `json:"actor_user_id" db:"actor_user_id"`
	RelatedTransferID *int         `json:"related_transfer_id,omitempty" db:"related_transfer_id"`
	Reason            *string      `json:"reason,omitempty" db:"reason"`
	CreatedAt         time.Time    `json:"created_at" db:"created_at"`
}
