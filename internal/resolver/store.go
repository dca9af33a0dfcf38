package resolver

import (
	"context"

	id "remitpool/pkg/domain"
)

// Store persists the hash↔account bijection. Implementations return sentinel
// errors (pkg/platform/sentinel) for factual states; the service translates
// them into domain errors.
type Store interface {
	// Resolve returns the account a hash points to.
	// Errors: sentinel.ErrNotFound when the hash is not registered.
	Resolve(ctx context.Context, hash id.IdentifierHash) (id.AccountID, error)

	// ReverseLookup returns the hash an account owns.
	// Errors: sentinel.ErrNotFound when the account has no registration.
	ReverseLookup(ctx context.Context, account id.AccountID) (id.IdentifierHash, error)

	// Register installs both forward and reverse mappings.
	// Errors: sentinel.ErrConflict when the hash is taken or the account
	// already owns a different hash. No mutation on failure.
	Register(ctx context.Context, hash id.IdentifierHash, account id.AccountID) error

	// Unregister clears both mappings.
	// Errors: sentinel.ErrNotFound when the hash is not registered.
	Unregister(ctx context.Context, hash id.IdentifierHash) error

	// Repoint atomically releases the old account's reverse mapping and
	// installs the new forward/reverse pair, keeping the hash unchanged.
	// Errors: sentinel.ErrNotFound when the hash is not registered;
	// sentinel.ErrConflict when the new account owns a different hash.
	Repoint(ctx context.Context, hash id.IdentifierHash, account id.AccountID) error
}
