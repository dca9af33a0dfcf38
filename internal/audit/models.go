package audit

import (
	"time"

	id "remitpool/pkg/domain"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out. Events are observational
// only; nothing in this module consumes them.
type Event struct {
	Timestamp  time.Time
	Kind       EventKind
	Actor      id.AccountID
	Remittance id.RemittanceID

	// Amount carries the value relevant to the event kind: the contribution
	// amount, the release payout, the cancellation total refunded, or the
	// expiry refund.
	Amount uint64

	// Fee is populated on release events only.
	Fee uint64

	// Total is the remittance's running current amount after the event, where
	// that is meaningful (contributions).
	Total uint64

	// Detail carries the new value for configuration-changed events.
	Detail string

	// Correlation fields set by transport middleware when available.
	RequestID string
	ClientIP  string
	UserAgent string
}

// EventKind names a domain event.
type EventKind string

const (
	// Remittance lifecycle events.
	EventRemittanceCreated   EventKind = "remittance_created"
	EventContributionMade    EventKind = "contribution_made"
	EventRemittanceReleased  EventKind = "remittance_released"
	EventRemittanceCancelled EventKind = "remittance_cancelled"
	EventRemittanceExpired   EventKind = "remittance_expired"

	// Configuration events.
	EventComplianceModuleChanged EventKind = "compliance_module_changed"
	EventResolverChanged         EventKind = "identifier_resolver_changed"
	EventFeeCollectorChanged     EventKind = "fee_collector_changed"
	EventPlatformFeeChanged      EventKind = "platform_fee_changed"
	EventAutoReleaseToggled      EventKind = "auto_release_toggled"

	// Compliance admin events.
	EventAccountAllowlisted   EventKind = "account_allowlisted"
	EventAccountDelisted      EventKind = "account_delisted"
	EventAccountBlocklisted   EventKind = "account_blocklisted"
	EventAccountUnblocked     EventKind = "account_unblocked"
	EventDailyLimitChanged    EventKind = "daily_limit_changed"
	EventMinimumAmountChanged EventKind = "minimum_amount_changed"
)
