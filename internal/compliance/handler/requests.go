package handler

import (
	"strings"

	id "remitpool/pkg/domain"
	dErrors "remitpool/pkg/domain-errors"
)

const maxBatchSize = 100

// AllowlistRequest is the body for POST /admin/compliance/allowlist.
type AllowlistRequest struct {
	Account string `json:"account"`
	// CustomLimit of 0 inherits the default daily limit.
	CustomLimit uint64 `json:"custom_daily_limit,omitempty"`

	parsedAccount id.AccountID
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *AllowlistRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Account = strings.TrimSpace(r.Account)
	if r.Account == "" {
		return dErrors.New(dErrors.CodeValidation, "account is required")
	}
	account, err := id.ParseAccountID(r.Account)
	if err != nil {
		return err
	}
	r.parsedAccount = account
	return nil
}

// ParsedAccount returns the validated account.
func (r *AllowlistRequest) ParsedAccount() id.AccountID { return r.parsedAccount }

// BatchAllowlistRequest is the body for POST /admin/compliance/allowlist/batch.
type BatchAllowlistRequest struct {
	Accounts []string `json:"accounts"`

	parsedAccounts []id.AccountID
}

// Validate validates and parses the request. Empty entries are carried
// through; the service skips them without failing the batch.
func (r *BatchAllowlistRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Accounts) == 0 {
		return dErrors.New(dErrors.CodeValidation, "accounts is required")
	}
	if len(r.Accounts) > maxBatchSize {
		return dErrors.New(dErrors.CodeValidation, "accounts must contain at most 100 entries")
	}
	r.parsedAccounts = make([]id.AccountID, 0, len(r.Accounts))
	for _, a := range r.Accounts {
		r.parsedAccounts = append(r.parsedAccounts, id.AccountID(strings.TrimSpace(a)))
	}
	return nil
}

// ParsedAccounts returns the parsed batch.
func (r *BatchAllowlistRequest) ParsedAccounts() []id.AccountID { return r.parsedAccounts }

// AccountRequest is the shared body for blocklist and delist operations.
type AccountRequest struct {
	Account string `json:"account"`

	parsedAccount id.AccountID
}

// Validate validates and parses the request.
func (r *AccountRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Account = strings.TrimSpace(r.Account)
	if r.Account == "" {
		return dErrors.New(dErrors.CodeValidation, "account is required")
	}
	account, err := id.ParseAccountID(r.Account)
	if err != nil {
		return err
	}
	r.parsedAccount = account
	return nil
}

// ParsedAccount returns the validated account.
func (r *AccountRequest) ParsedAccount() id.AccountID { return r.parsedAccount }

// CustomLimitRequest is the body for PUT /admin/compliance/accounts/{account}/limit.
type CustomLimitRequest struct {
	// Limit of 0 reverts the account to the default daily limit.
	Limit uint64 `json:"limit"`
}

func (r *CustomLimitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}

// LimitRequest is the body for the default-limit and minimum-amount endpoints.
type LimitRequest struct {
	Value uint64 `json:"value"`
}

func (r *LimitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}
