package models

import (
	"fmt"
	"time"
)

type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferApproved  TransferStatus = "approved"
	TransferCompleted TransferStatus = "completed"
	TransferCancelled TransferStatus = "cancelled"
	TransferRejected  TransferStatus = "rejected"
)

// transferTransitions is the full state machine. Absence of a key means the
// state is terminal.
var transferTransitions = map[TransferStatus][]TransferStatus{
	TransferPending:  {TransferApproved, TransferRejected, TransferCancelled},
	TransferApproved: {TransferCompleted, TransferCancelled},
}

func NewTransferStatus(value string) (TransferStatus, error) {
	status := TransferStatus(value)
	if !status.isValid() {
		return "", fmt.Errorf("invalid transfer status: %s", value)
	}
	return status, nil
}

func (s TransferStatus) isValid() bool {
	switch s {
	case TransferPending, TransferApproved, TransferCompleted, TransferCancelled, TransferRejected:
		return true
	default:
		return false
	}
}

func (s TransferStatus) IsTerminal() bool {
	return len(transferTransitions[s]) == 0
}

func (s TransferStatus) CanTransitionTo(next TransferStatus) bool {
	for _, allowed := range transferTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransferRequest proposes a goods move between exactly two locations. From
// approval until completion or cancellation it owns a reservation on the
// source stock entry.
type TransferRequest struct {
	ID          int            `json:"id" db:"id"`
	ProductID   int            `json:"product_id" db:"product_id"`
	Quantity    int            `json:"quantity" db:"quantity"`
	Source      LocationRef    `json:"source"`
	Destination LocationRef    `json:"destination"`
	Status      TransferStatus `json:"status" db:"status"`
	RequestedBy int            `json:"requested_by" db:"requested_by"`
	ApprovedBy  *int           `json:"approved_by,omitempty" db:"approved_by"`
	CompletedBy *int           `json:"completed_by,omitempty" db:"completed_by"`
	RequestedAt time.Time      `json:"requested_at" db:"requested_at"`
	ApprovedAt  *time.Time     `json:"approved_at,omitempty" db:"approved_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
	Notes       *string        `json:"notes,omitempty" db:"notes"`
}
