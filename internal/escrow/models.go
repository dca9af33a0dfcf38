package escrow

import (
	"time"

	id "remitpool/pkg/domain"
)

// MaxFeeBasisPoints caps the platform fee at 5%.
const MaxFeeBasisPoints = 500

// Remittance is the aggregate root of the escrow ledger. The id, creator,
// recipient, target amount, fee snapshot, creation time, and expiry never
// change after creation; terminal records are permanent and never deleted.
//
// Invariant: while Active, CurrentAmount equals the sum of Contributions.
// Contributor membership is permanent: an account stays in Contributors even
// after its balance is refunded to zero; the set means "ever contributed".
type Remittance struct {
	ID         id.RemittanceID
	Creator    id.AccountID
	Recipient  id.AccountID
	Annotation string

	TargetAmount  uint64
	CurrentAmount uint64

	// FeeBasisPoints is snapshotted from the platform fee at creation so a
	// later fee change never affects an existing remittance.
	FeeBasisPoints uint32

	CreatedAt time.Time
	// ExpiresAt zero means the remittance never expires.
	ExpiresAt time.Time

	Status      id.RemittanceStatus
	AutoRelease bool

	// Contributors preserves insertion order; Contributions maps each
	// contributor to its cumulative amount.
	Contributors  []id.AccountID
	Contributions map[id.AccountID]uint64
}

// clone deep-copies the record, used to restore state when an outward transfer
// fails mid-operation.
func (r *Remittance) clone() *Remittance {
	cp := *r
	cp.Contributors = append([]id.AccountID(nil), r.Contributors...)
	cp.Contributions = make(map[id.AccountID]uint64, len(r.Contributions))
	for k, v := range r.Contributions {
		cp.Contributions[k] = v
	}
	return &cp
}

// View is the read model handed out by queries. It carries copies, never
// handles into ledger-internal storage.
type View struct {
	ID             id.RemittanceID
	Creator        id.AccountID
	Recipient      id.AccountID
	Annotation     string
	TargetAmount   uint64
	CurrentAmount  uint64
	FeeBasisPoints uint32
	CreatedAt      time.Time
	ExpiresAt      time.Time
	Status         id.RemittanceStatus
	AutoRelease    bool
	Contributors   []id.AccountID
}

func (r *Remittance) view() View {
	return View{
		ID:             r.ID,
		Creator:        r.Creator,
		Recipient:      r.Recipient,
		Annotation:     r.Annotation,
		TargetAmount:   r.TargetAmount,
		CurrentAmount:  r.CurrentAmount,
		FeeBasisPoints: r.FeeBasisPoints,
		CreatedAt:      r.CreatedAt,
		ExpiresAt:      r.ExpiresAt,
		Status:         r.Status,
		AutoRelease:    r.AutoRelease,
		Contributors:   append([]id.AccountID(nil), r.Contributors...),
	}
}

// FeeConfig is the queryable fee configuration.
type FeeConfig struct {
	Collector   id.AccountID
	BasisPoints uint32
}

// ContributionResult reports the outcome of a contribution, including the
// release that may have fired on the same call.
type ContributionResult struct {
	NewTotal uint64
	Released bool
	Payout   uint64
	Fee      uint64
}

// ReleaseResult reports the payout split of a release.
type ReleaseResult struct {
	Payout uint64
	Fee    uint64
}

// splitFee computes fee = floor(amount × bps / 10000) without intermediate
// overflow; fee + payout always equals amount exactly.
func splitFee(amount uint64, bps uint32) (payout, fee uint64) {
	q, r := amount/10000, amount%10000
	fee = q*uint64(bps) + r*uint64(bps)/10000
	return amount - fee, fee
}
