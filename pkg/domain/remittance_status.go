package domain

import dErrors "remitpool/pkg/domain-errors"

// RemittanceStatus is the lifecycle state of a remittance record.
// Invariant: transitions are monotonic. Active is the only state that permits
// balance mutation; the three terminal states are permanent.
type RemittanceStatus string

const (
	StatusActive    RemittanceStatus = "active"
	StatusReleased  RemittanceStatus = "released"
	StatusCancelled RemittanceStatus = "cancelled"
	StatusExpired   RemittanceStatus = "expired"
)

// validStatuses is the single source of truth for valid statuses.
var validStatuses = map[RemittanceStatus]bool{
	StatusActive:    true,
	StatusReleased:  true,
	StatusCancelled: true,
	StatusExpired:   true,
}

// ParseRemittanceStatus constructs a RemittanceStatus from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseRemittanceStatus(s string) (RemittanceStatus, error) {
	st := RemittanceStatus(s)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid remittance status")
	}
	return st, nil
}

// IsValid checks if the status is one of the supported enum values.
func (s RemittanceStatus) IsValid() bool {
	return validStatuses[s]
}

// IsTerminal reports whether the status permits no further transition.
func (s RemittanceStatus) IsTerminal() bool {
	return s == StatusReleased || s == StatusCancelled || s == StatusExpired
}

func (s RemittanceStatus) String() string {
	return string(s)
}
