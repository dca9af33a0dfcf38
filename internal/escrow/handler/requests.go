package handler

import (
	"strings"
	"time"

	id "remitpool/pkg/domain"
	dErrors "remitpool/pkg/domain-errors"
)

const maxAnnotationLength = 256

// CreateRequest is the HTTP request body for POST /remittances.
type CreateRequest struct {
	Creator    string `json:"creator"`
	Recipient  string `json:"recipient,omitempty"`
	Identifier string `json:"identifier_hash,omitempty"`
	Target     uint64 `json:"target_amount"`
	// ExpiresAt is RFC 3339; absent means the remittance never expires.
	ExpiresAt   string `json:"expires_at,omitempty"`
	Annotation  string `json:"annotation,omitempty"`
	AutoRelease bool   `json:"auto_release"`

	parsedCreator   id.AccountID
	parsedRecipient id.AccountID
	parsedHash      id.IdentifierHash
	parsedExpiry    time.Time
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	if len(r.Annotation) > maxAnnotationLength {
		return dErrors.New(dErrors.CodeValidation, "annotation must be at most 256 characters")
	}

	r.Creator = strings.TrimSpace(r.Creator)
	if r.Creator == "" {
		return dErrors.New(dErrors.CodeValidation, "creator is required")
	}
	creator, err := id.ParseAccountID(r.Creator)
	if err != nil {
		return err
	}
	r.parsedCreator = creator

	r.Recipient = strings.TrimSpace(r.Recipient)
	r.Identifier = strings.TrimSpace(r.Identifier)
	switch {
	case r.Recipient == "" && r.Identifier == "":
		return dErrors.New(dErrors.CodeValidation, "recipient or identifier_hash is required")
	case r.Recipient != "" && r.Identifier != "":
		return dErrors.New(dErrors.CodeValidation, "recipient and identifier_hash are mutually exclusive")
	case r.Recipient != "":
		recipient, err := id.ParseAccountID(r.Recipient)
		if err != nil {
			return err
		}
		r.parsedRecipient = recipient
	default:
		r.parsedHash = id.IdentifierHash(r.Identifier)
	}

	if r.Target == 0 {
		return dErrors.New(dErrors.CodeValidation, "target_amount must be positive")
	}

	if r.ExpiresAt != "" {
		expiry, err := time.Parse(time.RFC3339, r.ExpiresAt)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "expires_at must be RFC 3339")
		}
		r.parsedExpiry = expiry
	}
	return nil
}

// ParsedCreator returns the validated creator account.
func (r *CreateRequest) ParsedCreator() id.AccountID { return r.parsedCreator }

// ParsedRecipient returns the validated recipient account; zero when the
// request addressed an identifier hash instead.
func (r *CreateRequest) ParsedRecipient() id.AccountID { return r.parsedRecipient }

// ParsedHash returns the identifier hash; zero when the request addressed a
// recipient account directly.
func (r *CreateRequest) ParsedHash() id.IdentifierHash { return r.parsedHash }

// ParsedExpiry returns the validated expiry; zero means never.
func (r *CreateRequest) ParsedExpiry() time.Time { return r.parsedExpiry }

// ContributeRequest is the HTTP request body for POST /remittances/{id}/contributions.
type ContributeRequest struct {
	Contributor string `json:"contributor"`
	Amount      uint64 `json:"amount"`

	parsedContributor id.AccountID
}

// Validate validates and parses the request.
func (r *ContributeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Contributor = strings.TrimSpace(r.Contributor)
	if r.Contributor == "" {
		return dErrors.New(dErrors.CodeValidation, "contributor is required")
	}
	contributor, err := id.ParseAccountID(r.Contributor)
	if err != nil {
		return err
	}
	r.parsedContributor = contributor

	if r.Amount == 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	return nil
}

// ParsedContributor returns the validated contributor account.
func (r *ContributeRequest) ParsedContributor() id.AccountID { return r.parsedContributor }

// CallerRequest is the shared body for release, cancel, and refund claims;
// the acting account is explicit because these endpoints are invoked by the
// value-transfer venue on a participant's behalf.
type CallerRequest struct {
	Caller string `json:"caller"`

	parsedCaller id.AccountID
}

// Validate validates and parses the request.
func (r *CallerRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Caller = strings.TrimSpace(r.Caller)
	if r.Caller == "" {
		return dErrors.New(dErrors.CodeValidation, "caller is required")
	}
	caller, err := id.ParseAccountID(r.Caller)
	if err != nil {
		return err
	}
	r.parsedCaller = caller
	return nil
}

// ParsedCaller returns the validated acting account.
func (r *CallerRequest) ParsedCaller() id.AccountID { return r.parsedCaller }

// SetFeeCollectorRequest is the body for PUT /admin/escrow/fee-collector.
type SetFeeCollectorRequest struct {
	Collector string `json:"collector"`

	parsedCollector id.AccountID
}

func (r *SetFeeCollectorRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Collector = strings.TrimSpace(r.Collector)
	if r.Collector == "" {
		return dErrors.New(dErrors.CodeValidation, "collector is required")
	}
	collector, err := id.ParseAccountID(r.Collector)
	if err != nil {
		return err
	}
	r.parsedCollector = collector
	return nil
}

// ParsedCollector returns the validated collector account.
func (r *SetFeeCollectorRequest) ParsedCollector() id.AccountID { return r.parsedCollector }

// SetPlatformFeeRequest is the body for PUT /admin/escrow/platform-fee.
type SetPlatformFeeRequest struct {
	BasisPoints uint32 `json:"basis_points"`
}

func (r *SetPlatformFeeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}

// SetAutoReleaseRequest is the body for PUT /admin/escrow/auto-release.
type SetAutoReleaseRequest struct {
	Enabled bool `json:"enabled"`
}

func (r *SetAutoReleaseRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}
