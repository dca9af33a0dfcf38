package escrow

// Ports consumed by the escrow ledger. Interfaces live here because the
// ledger owns them; collaborators (compliance engine, resolver, value-transfer
// gateway) provide implementations or adapters.

import (
	"context"

	"remitpool/internal/audit"
	id "remitpool/pkg/domain"
)

// ComplianceModule gates every value-affecting operation.
type ComplianceModule interface {
	// IsCompliant reports whether the transfer is permitted. Pure read.
	IsCompliant(ctx context.Context, sender, recipient id.AccountID, amount uint64) (bool, error)

	// RecordUsage adds amount to the sender's daily usage. The implementation
	// authenticates the ledger as its authorized caller.
	RecordUsage(ctx context.Context, sender id.AccountID, amount uint64) error
}

// IdentifierResolver resolves a privacy-preserving alias hash to a recipient.
type IdentifierResolver interface {
	Resolve(ctx context.Context, hash id.IdentifierHash) (id.AccountID, error)
}

// Transfer is one outward leg of a batch custody movement.
type Transfer struct {
	To     id.AccountID
	Amount uint64
}

// Gateway moves value between external balances and escrow custody. The
// ledger serializes every mutating operation, including gateway calls, behind
// one mutex; implementations must not call back into the ledger.
type Gateway interface {
	// TransferIn moves amount from the account's external balance into
	// escrow custody.
	// Errors: sentinel.ErrInsufficientFunds when the balance cannot cover it.
	TransferIn(ctx context.Context, from id.AccountID, amount uint64) error

	// TransferOut moves amount from escrow custody to the account.
	TransferOut(ctx context.Context, to id.AccountID, amount uint64) error

	// TransferOutBatch performs several outward transfers atomically: either
	// every leg completes or none does. Refund fan-outs rely on this.
	TransferOutBatch(ctx context.Context, transfers []Transfer) error
}

// EventPublisher emits domain events for observers. Emission failures are
// logged, never propagated into ledger results.
type EventPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
