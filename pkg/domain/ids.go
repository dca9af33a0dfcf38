package domain

import (
	"strconv"

	dErrors "remitpool/pkg/domain-errors"
)

// AccountID identifies a participant account (creator, contributor, recipient,
// fee collector). Accounts are opaque addresses owned by the value-transfer
// venue; this module only compares and indexes them.
//
// Usage: construct via ParseAccountID at trust boundaries; direct casting
// bypasses the non-empty check.
type AccountID string

// ParseAccountID constructs an AccountID from external input.
//
// Errors: returns CodeInvalidInput when the value is empty.
func ParseAccountID(s string) (AccountID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "account id cannot be empty")
	}
	return AccountID(s), nil
}

// IsNil reports whether the account ID is the zero value.
func (a AccountID) IsNil() bool {
	return a == ""
}

func (a AccountID) String() string {
	return string(a)
}

// RemittanceID identifies a remittance record. IDs are assigned by the escrow
// store starting at 1, strictly increasing, and never reused.
type RemittanceID uint64

// ParseRemittanceID constructs a RemittanceID from external input.
//
// Errors: returns CodeInvalidInput when the value is not a positive integer.
func ParseRemittanceID(s string) (RemittanceID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "remittance id must be a positive integer")
	}
	return RemittanceID(n), nil
}

// IsNil reports whether the remittance ID is the zero value. Zero is never a
// valid assigned ID.
func (r RemittanceID) IsNil() bool {
	return r == 0
}

func (r RemittanceID) String() string {
	return strconv.FormatUint(uint64(r), 10)
}

// IdentifierHash is the privacy-preserving alias for a recipient account,
// produced by the resolver's one-way transform. It is hex-encoded and fixed
// length; raw identifiers never cross this module's boundary.
type IdentifierHash string

// IsNil reports whether the hash is the zero value.
func (h IdentifierHash) IsNil() bool {
	return h == ""
}

func (h IdentifierHash) String() string {
	return string(h)
}
