package handler

import (
	"time"

	"remitpool/internal/escrow"
	id "remitpool/pkg/domain"
)

// CreateResponse is the HTTP response for POST /remittances.
type CreateResponse struct {
	ID uint64 `json:"id"`
}

// RemittanceResponse is the HTTP response for GET /remittances/{id}.
type RemittanceResponse struct {
	ID             uint64     `json:"id"`
	Creator        string     `json:"creator"`
	Recipient      string     `json:"recipient"`
	Annotation     string     `json:"annotation,omitempty"`
	TargetAmount   uint64     `json:"target_amount"`
	CurrentAmount  uint64     `json:"current_amount"`
	FeeBasisPoints uint32     `json:"fee_basis_points"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	Status         string     `json:"status"`
	AutoRelease    bool       `json:"auto_release"`
	Contributors   []string   `json:"contributors"`
}

// FromView converts a ledger view to an HTTP response.
func FromView(v escrow.View) *RemittanceResponse {
	resp := &RemittanceResponse{
		ID:             uint64(v.ID),
		Creator:        v.Creator.String(),
		Recipient:      v.Recipient.String(),
		Annotation:     v.Annotation,
		TargetAmount:   v.TargetAmount,
		CurrentAmount:  v.CurrentAmount,
		FeeBasisPoints: v.FeeBasisPoints,
		CreatedAt:      v.CreatedAt,
		Status:         string(v.Status),
		AutoRelease:    v.AutoRelease,
		Contributors:   make([]string, 0, len(v.Contributors)),
	}
	if !v.ExpiresAt.IsZero() {
		expiry := v.ExpiresAt
		resp.ExpiresAt = &expiry
	}
	for _, c := range v.Contributors {
		resp.Contributors = append(resp.Contributors, c.String())
	}
	return resp
}

// ContributionResponse is the HTTP response for a contribution, including the
// release that may have fired on the same call.
type ContributionResponse struct {
	NewTotal uint64 `json:"new_total"`
	Released bool   `json:"released"`
	Payout   uint64 `json:"payout,omitempty"`
	Fee      uint64 `json:"fee,omitempty"`
}

// ReleaseResponse is the HTTP response for a release.
type ReleaseResponse struct {
	Payout uint64 `json:"payout"`
	Fee    uint64 `json:"fee"`
}

// RefundResponse is the HTTP response for cancellations and expiry claims.
type RefundResponse struct {
	Refunded uint64 `json:"refunded"`
}

// ContributionOfResponse is the HTTP response for a contributor's ledger entry.
type ContributionOfResponse struct {
	Contributor string `json:"contributor"`
	Amount      uint64 `json:"amount"`
}

// ListResponse is the HTTP response for creator/recipient listings.
type ListResponse struct {
	IDs []uint64 `json:"ids"`
}

func toListResponse(ids []id.RemittanceID) *ListResponse {
	resp := &ListResponse{IDs: make([]uint64, 0, len(ids))}
	for _, rid := range ids {
		resp.IDs = append(resp.IDs, uint64(rid))
	}
	return resp
}

// ConfigResponse is the HTTP response for GET /escrow/config.
type ConfigResponse struct {
	FeeCollector   string `json:"fee_collector"`
	FeeBasisPoints uint32 `json:"fee_basis_points"`
	AutoRelease    bool   `json:"auto_release"`
	NextID         uint64 `json:"next_id"`
}
