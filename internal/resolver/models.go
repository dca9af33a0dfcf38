package resolver

import (
	id "remitpool/pkg/domain"
)

// Registration binds an identifier hash to a wallet account.
// Invariant: the registry is a strict bijection; each hash maps to at most one
// account and each account owns at most one hash, at all times.
type Registration struct {
	Hash    id.IdentifierHash
	Account id.AccountID
}
