package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransferStatusTransitions(t *testing.T) {
	tests := []struct {
		name     string
		from     TransferStatus
		to       TransferStatus
		expected bool
	}{
		{"Pending To Approved", TransferPending, TransferApproved, true},
		{"Pending To Rejected", TransferPending, TransferRejected, true},
		{"Pending To Cancelled", TransferPending, TransferCancelled, true},
		{"Pending To Completed", TransferPending, TransferCompleted, false},
		{"Approved To Completed", TransferApproved, TransferCompleted, true},
		{"Approved To Cancelled", TransferApproved, TransferCancelled, true},
		{"Approved To Rejected", TransferApproved, TransferRejected, false},
		{"Completed Is Terminal", TransferCompleted, TransferCancelled, false},
		{"Cancelled Is Terminal", TransferCancelled, TransferApproved, false},
		{"Rejected Is Terminal", TransferRejected, TransferApproved, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestTransferStatusIsTerminal(t *testing.T) {
	assert.False(t, TransferPending.IsTerminal())
	assert.False(t, TransferApproved.IsTerminal())
	assert.True(t, TransferCompleted.IsTerminal())
	assert.True(t, TransferCancelled.IsTerminal())
	assert.True(t, TransferRejected.IsTerminal())
}

func TestLocationRefValidate(t *testing.T) {
	assert.NoError(t, LocationRef{Kind: LocationWarehouse, ID: 1}.Validate())
	assert.Error(t, LocationRef{Kind: "garage", ID: 1}.Validate())
	assert.Error(t, LocationRef{Kind: LocationStore, ID: 0}.Validate())
}
