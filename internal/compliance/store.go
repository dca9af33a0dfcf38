package compliance

import (
	"context"

	id "remitpool/pkg/domain"
)

// ListStore persists per-account allow/block state.
type ListStore interface {
	// Get retrieves the record for an account, or nil if none exists.
	Get(ctx context.Context, account id.AccountID) (*AccountRecord, error)

	// Save upserts a record.
	Save(ctx context.Context, record AccountRecord) error
}

// UsageStore persists the per-account per-day usage accumulators.
type UsageStore interface {
	// Add increases the accumulator for (account, day) by amount.
	Add(ctx context.Context, account id.AccountID, day int64, amount uint64) error

	// Used returns the accumulator for (account, day); 0 if absent.
	Used(ctx context.Context, account id.AccountID, day int64) (uint64, error)
}
