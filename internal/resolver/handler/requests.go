package handler

import (
	"strings"

	id "remitpool/pkg/domain"
	dErrors "remitpool/pkg/domain-errors"
)

const maxBatchSize = 100

// RegisterRequest is the body for POST /admin/resolver/registrations.
type RegisterRequest struct {
	Hash   string `json:"hash"`
	Wallet string `json:"wallet"`

	parsedHash   id.IdentifierHash
	parsedWallet id.AccountID
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Hash = strings.TrimSpace(r.Hash)
	if r.Hash == "" {
		return dErrors.New(dErrors.CodeValidation, "hash is required")
	}
	r.Wallet = strings.TrimSpace(r.Wallet)
	if r.Wallet == "" {
		return dErrors.New(dErrors.CodeValidation, "wallet is required")
	}
	wallet, err := id.ParseAccountID(r.Wallet)
	if err != nil {
		return err
	}
	r.parsedHash = id.IdentifierHash(r.Hash)
	r.parsedWallet = wallet
	return nil
}

// ParsedHash returns the validated hash.
func (r *RegisterRequest) ParsedHash() id.IdentifierHash { return r.parsedHash }

// ParsedWallet returns the validated wallet.
func (r *RegisterRequest) ParsedWallet() id.AccountID { return r.parsedWallet }

// BatchRegisterRequest is the body for POST /admin/resolver/registrations/batch.
// Hashes and wallets are parallel slices.
type BatchRegisterRequest struct {
	Hashes  []string `json:"hashes"`
	Wallets []string `json:"wallets"`

	parsedHashes  []id.IdentifierHash
	parsedWallets []id.AccountID
}

// Validate validates and parses the request. Per-entry problems are carried
// through; the service skips them without failing the batch. Only a length
// mismatch fails validation outright.
func (r *BatchRegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Hashes) != len(r.Wallets) {
		return dErrors.New(dErrors.CodeValidation, "hashes and wallets must have equal length")
	}
	if len(r.Hashes) == 0 {
		return dErrors.New(dErrors.CodeValidation, "hashes is required")
	}
	if len(r.Hashes) > maxBatchSize {
		return dErrors.New(dErrors.CodeValidation, "batch must contain at most 100 entries")
	}
	r.parsedHashes = make([]id.IdentifierHash, 0, len(r.Hashes))
	r.parsedWallets = make([]id.AccountID, 0, len(r.Wallets))
	for i := range r.Hashes {
		r.parsedHashes = append(r.parsedHashes, id.IdentifierHash(strings.TrimSpace(r.Hashes[i])))
		r.parsedWallets = append(r.parsedWallets, id.AccountID(strings.TrimSpace(r.Wallets[i])))
	}
	return nil
}

// ParsedHashes returns the parsed hash slice.
func (r *BatchRegisterRequest) ParsedHashes() []id.IdentifierHash { return r.parsedHashes }

// ParsedWallets returns the parsed wallet slice.
func (r *BatchRegisterRequest) ParsedWallets() []id.AccountID { return r.parsedWallets }

// UpdateWalletRequest is the body for PUT /admin/resolver/registrations/{hash}.
type UpdateWalletRequest struct {
	Wallet string `json:"wallet"`

	parsedWallet id.AccountID
}

// Validate validates and parses the request.
func (r *UpdateWalletRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Wallet = strings.TrimSpace(r.Wallet)
	if r.Wallet == "" {
		return dErrors.New(dErrors.CodeValidation, "wallet is required")
	}
	wallet, err := id.ParseAccountID(r.Wallet)
	if err != nil {
		return err
	}
	r.parsedWallet = wallet
	return nil
}

// ParsedWallet returns the validated wallet.
func (r *UpdateWalletRequest) ParsedWallet() id.AccountID { return r.parsedWallet }
