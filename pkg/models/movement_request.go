package models

import "time"

// MovementRequest is the warehouse<->store sibling of TransferRequest: one
// approver, and approval carries the stock effect, so approved is terminal.
// It shares TransferStatus but only pending, approved and rejected are
// reachable.
type MovementRequest struct {
	ID          int            `json:"id" db:"id"`
	ProductID   int            `json:"product_id" db:"product_id"`
	Quantity    int            `json:"quantity" db:"quantity"`
	FromKind    LocationKind   `json:"from_kind" db:"from_kind"`
	FromID      int            `json:"from_id" db:"from_id"`
	ToKind      LocationKind   `json:"to_kind" db:"to_kind"`
	ToID        int            `json:"to_id" db:"to_id"`
	Status      TransferStatus `json:"status" db:"status"`
	RequestedBy int            `json:"requested_by" db:"requested_by"`
	ApprovedBy  *int           `json:"approved_by,omitempty" db:"approved_by"`
	RequestedAt time.Time      `json:"requested_at" db:"requested_at"`
	ApprovedAt  *time.Time     `json:"approved_at,omitempty" db:"approved_at"`
	Notes       *string        `json:"notes,omitempty" db:"notes"`
}

func (m *MovementRequest) From() LocationRef {
	return LocationRef{Kind: m.FromKind, ID: m.FromID}
}

func (m *MovementRequest) To() LocationRef {
	return LocationRef{Kind: m.ToKind, ID: m.ToID}
}
