package escrow

import (
	"context"

	id "remitpool/pkg/domain"
)

// Store owns the remittance table and the creator/recipient indexes.
// Records are never deleted; terminal states are permanent.
type Store interface {
	// Create assigns the next id (starting at 1, strictly increasing, never
	// reused), stores the record, and appends it to both indexes.
	Create(ctx context.Context, record *Remittance) (id.RemittanceID, error)

	// Get returns the live record for in-place mutation by the service.
	// Errors: sentinel.ErrNotFound when the id was never assigned.
	Get(ctx context.Context, rid id.RemittanceID) (*Remittance, error)

	// Restore overwrites a record from a snapshot, undoing a failed mutation.
	Restore(ctx context.Context, record *Remittance) error

	// ByCreator lists remittance ids created by the account, oldest first.
	ByCreator(ctx context.Context, account id.AccountID) ([]id.RemittanceID, error)

	// ByRecipient lists remittance ids addressed to the account, oldest first.
	ByRecipient(ctx context.Context, account id.AccountID) ([]id.RemittanceID, error)

	// NextID returns the id the next Create will assign.
	NextID(ctx context.Context) (id.RemittanceID, error)
}
