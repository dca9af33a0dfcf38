package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"remitpool/internal/audit"
	"remitpool/internal/compliance/metrics"
	id "remitpool/pkg/domain"
	dErrors "remitpool/pkg/domain-errors"
	"remitpool/pkg/requestcontext"
)

// Named failures.
var (
	// ErrNotAuthorized is returned when a caller other than the configured
	// usage recorder invokes RecordUsage, or a non-admin invokes an admin op.
	ErrNotAuthorized = dErrors.New(dErrors.CodeForbidden, "caller is not authorized")

	// ErrAccountRequired is returned for empty account inputs.
	ErrAccountRequired = dErrors.New(dErrors.CodeBadRequest, "account is required")

	// ErrAlreadyAllowlisted is returned when adding an account twice.
	ErrAlreadyAllowlisted = dErrors.New(dErrors.CodeConflict, "account is already allowlisted")

	// ErrNotAllowlisted is returned when removing or updating an account with
	// no allowlist entry.
	ErrNotAllowlisted = dErrors.New(dErrors.CodeNotFound, "account is not allowlisted")

	// ErrInvalidLimit is returned when the default daily limit would become zero.
	ErrInvalidLimit = dErrors.New(dErrors.CodeBadRequest, "default daily limit must be positive")
)

// EventPublisher emits audit events for admin operations.
type EventPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Config carries the initial policy values.
type Config struct {
	// DefaultDailyLimit caps per-account daily volume for accounts without a
	// custom limit. Must be positive.
	DefaultDailyLimit uint64

	// MinimumAmount rejects transfers below this value.
	MinimumAmount uint64

	// AuthorizedCaller is the single principal permitted to record usage
	// (the escrow ledger, or whatever gateway triggers contributions).
	AuthorizedCaller id.AccountID

	// Admin is the principal permitted to mutate policy.
	Admin id.AccountID
}

// Service answers "is this transfer permitted" and records usage after the
// fact. Checks are pure reads; recording is restricted to one authorized
// caller. Policy mutation is restricted to the configured admin.
type Service struct {
	mu    sync.RWMutex // guards the policy fields below
	lists ListStore
	usage UsageStore

	defaultDailyLimit uint64
	minimumAmount     uint64
	authorizedCaller  id.AccountID
	admin             id.AccountID

	logger  *slog.Logger
	events  EventPublisher
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithEventPublisher(publisher EventPublisher) Option {
	return func(s *Service) { s.events = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(lists ListStore, usage UsageStore, cfg Config, opts ...Option) (*Service, error) {
	if lists == nil {
		return nil, fmt.Errorf("list store is required")
	}
	if usage == nil {
		return nil, fmt.Errorf("usage store is required")
	}
	if cfg.DefaultDailyLimit == 0 {
		return nil, fmt.Errorf("default daily limit must be positive")
	}

	svc := &Service{
		lists:             lists,
		usage:             usage,
		defaultDailyLimit: cfg.DefaultDailyLimit,
		minimumAmount:     cfg.MinimumAmount,
		authorizedCaller:  cfg.AuthorizedCaller,
		admin:             cfg.Admin,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// IsCompliant reports whether a transfer of amount from sender to recipient is
// permitted right now. It never mutates state.
//
// The day bucket and "now" come from the request-scoped clock so every check
// within one operation observes the same instant.
func (s *Service) IsCompliant(ctx context.Context, sender, recipient id.AccountID, amount uint64) (bool, error) {
	if s.metrics != nil {
		s.metrics.IncrementChecks()
	}

	ok, err := s.isCompliant(ctx, sender, recipient, amount)
	if err != nil {
		return false, err
	}
	if !ok && s.metrics != nil {
		s.metrics.IncrementRejections()
	}
	return ok, nil
}

func (s *Service) isCompliant(ctx context.Context, sender, recipient id.AccountID, amount uint64) (bool, error) {
	senderRec, err := s.lists.Get(ctx, sender)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read sender record")
	}
	recipientRec, err := s.lists.Get(ctx, recipient)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read recipient record")
	}

	if senderRec != nil && senderRec.Blocklisted {
		return false, nil
	}
	if recipientRec != nil && recipientRec.Blocklisted {
		return false, nil
	}
	if senderRec == nil || !senderRec.Allowlisted {
		return false, nil
	}

	s.mu.RLock()
	limit := s.defaultDailyLimit
	minimum := s.minimumAmount
	s.mu.RUnlock()

	if amount < minimum {
		return false, nil
	}
	if senderRec.CustomDailyLimit > 0 {
		limit = senderRec.CustomDailyLimit
	}

	day := DayBucket(requestcontext.Now(ctx))
	used, err := s.usage.Used(ctx, sender, day)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read usage")
	}
	// Compared without addition so oversized amounts cannot wrap past the limit.
	return amount <= limit && used <= limit-amount, nil
}

// RecordUsage adds amount to the sender's current day bucket. Only the
// configured authorized caller may invoke it. It performs no compliance
// re-check; callers must have verified IsCompliant before acting.
func (s *Service) RecordUsage(ctx context.Context, caller, sender id.AccountID, amount uint64) error {
	s.mu.RLock()
	authorized := s.authorizedCaller
	s.mu.RUnlock()
	if caller != authorized {
		return ErrNotAuthorized
	}

	day := DayBucket(requestcontext.Now(ctx))
	if err := s.usage.Add(ctx, sender, day, amount); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record usage")
	}
	if s.metrics != nil {
		s.metrics.IncrementUsageRecorded()
	}
	return nil
}

// -----------------------------------------------------------------------------
// Queries
// -----------------------------------------------------------------------------

// RemainingDailyLimit returns how much the account may still send today;
// 0 if the limit is already exhausted or exceeded.
func (s *Service) RemainingDailyLimit(ctx context.Context, account id.AccountID) (uint64, error) {
	status, err := s.ComplianceStatus(ctx, account)
	if err != nil {
		return 0, err
	}
	if status.UsedToday >= status.EffectiveLimit {
		return 0, nil
	}
	return status.EffectiveLimit - status.UsedToday, nil
}

// ComplianceStatus returns the full status tuple for an account.
func (s *Service) ComplianceStatus(ctx context.Context, account id.AccountID) (Status, error) {
	rec, err := s.lists.Get(ctx, account)
	if err != nil {
		return Status{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read account record")
	}

	s.mu.RLock()
	limit := s.defaultDailyLimit
	s.mu.RUnlock()

	status := Status{Account: account, EffectiveLimit: limit}
	if rec != nil {
		status.Allowlisted = rec.Allowlisted
		status.Blocklisted = rec.Blocklisted
		if rec.CustomDailyLimit > 0 {
			status.EffectiveLimit = rec.CustomDailyLimit
		}
	}

	day := DayBucket(requestcontext.Now(ctx))
	used, err := s.usage.Used(ctx, account, day)
	if err != nil {
		return Status{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read usage")
	}
	status.UsedToday = used
	return status, nil
}

// IsBlocked reports whether an account is blocklisted.
func (s *Service) IsBlocked(ctx context.Context, account id.AccountID) (bool, error) {
	rec, err := s.lists.Get(ctx, account)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read account record")
	}
	return rec != nil && rec.Blocklisted, nil
}

// -----------------------------------------------------------------------------
// Admin operations
// -----------------------------------------------------------------------------

func (s *Service) requireAdmin(caller id.AccountID) error {
	s.mu.RLock()
	admin := s.admin
	s.mu.RUnlock()
	if caller != admin {
		return ErrNotAuthorized
	}
	return nil
}

// AddToAllowlist allowlists an account, optionally with a custom daily limit
// (0 inherits the default). Fails on empty accounts and duplicates.
func (s *Service) AddToAllowlist(ctx context.Context, caller, account id.AccountID, customLimit uint64) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if account.IsNil() {
		return ErrAccountRequired
	}

	rec, err := s.lists.Get(ctx, account)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read account record")
	}
	if rec != nil && rec.Allowlisted {
		return ErrAlreadyAllowlisted
	}
	if rec == nil {
		rec = &AccountRecord{Account: account}
	}
	rec.Allowlisted = true
	rec.CustomDailyLimit = customLimit
	if err := s.lists.Save(ctx, *rec); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save account record")
	}

	s.emit(ctx, audit.Event{
		Kind:   audit.EventAccountAllowlisted,
		Actor:  caller,
		Detail: account.String(),
	})
	return nil
}

// BatchAddToAllowlist allowlists several accounts in one call, silently
// skipping empty and already-present entries rather than failing the batch.
// Returns the number of entries actually added.
func (s *Service) BatchAddToAllowlist(ctx context.Context, caller id.AccountID, accounts []id.AccountID) (int, error) {
	if err := s.requireAdmin(caller); err != nil {
		return 0, err
	}

	added := 0
	for _, account := range accounts {
		if account.IsNil() {
			continue
		}
		rec, err := s.lists.Get(ctx, account)
		if err != nil {
			return added, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read account record")
		}
		if rec != nil && rec.Allowlisted {
			continue
		}
		if rec == nil {
			rec = &AccountRecord{Account: account}
		}
		rec.Allowlisted = true
		if err := s.lists.Save(ctx, *rec); err != nil {
			return added, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save account record")
		}
		added++

		s.emit(ctx, audit.Event{
			Kind:   audit.EventAccountAllowlisted,
			Actor:  caller,
			Detail: account.String(),
		})
	}
	return added, nil
}

// RemoveFromAllowlist clears the allow flag and the custom limit. Historical
// usage buckets are retained; they are harmless and simply unreachable through
// the default-limit check going forward.
func (s *Service) RemoveFromAllowlist(ctx context.Context, caller, account id.AccountID) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}

	rec, err := s.lists.Get(ctx, account)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read account record")
	}
	if rec == nil || !rec.Allowlisted {
		return ErrNotAllowlisted
	}
	rec.Allowlisted = false
	rec.CustomDailyLimit = 0
	if err := s.lists.Save(ctx, *rec); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save account record")
	}

	s.emit(ctx, audit.Event{
		Kind:   audit.EventAccountDelisted,
		Actor:  caller,
		Detail: account.String(),
	})
	return nil
}

// AddToBlocklist blocks an account from sending or receiving.
func (s *Service) AddToBlocklist(ctx context.Context, caller, account id.AccountID) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if account.IsNil() {
		return ErrAccountRequired
	}

	rec, err := s.lists.Get(ctx, account)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read account record")
	}
	if rec == nil {
		rec = &AccountRecord{Account: account}
	}
	rec.Blocklisted = true
	if err := s.lists.Save(ctx, *rec); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save account record")
	}

	s.emit(ctx, audit.Event{
		Kind:   audit.EventAccountBlocklisted,
		Actor:  caller,
		Detail: account.String(),
	})
	return nil
}

// RemoveFromBlocklist unblocks an account.
func (s *Service) RemoveFromBlocklist(ctx context.Context, caller, account id.AccountID) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}

	rec, err := s.lists.Get(ctx, account)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read account record")
	}
	if rec == nil || !rec.Blocklisted {
		return nil
	}
	rec.Blocklisted = false
	if err := s.lists.Save(ctx, *rec); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save account record")
	}

	s.emit(ctx, audit.Event{
		Kind:   audit.EventAccountUnblocked,
		Actor:  caller,
		Detail: account.String(),
	})
	return nil
}

// UpdateCustomLimit changes an allowlisted account's custom daily limit.
// 0 reverts the account to the default limit.
func (s *Service) UpdateCustomLimit(ctx context.Context, caller, account id.AccountID, limit uint64) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}

	rec, err := s.lists.Get(ctx, account)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read account record")
	}
	if rec == nil || !rec.Allowlisted {
		return ErrNotAllowlisted
	}
	rec.CustomDailyLimit = limit
	if err := s.lists.Save(ctx, *rec); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save account record")
	}
	return nil
}

// SetDefaultDailyLimit replaces the global default. Must stay positive.
func (s *Service) SetDefaultDailyLimit(ctx context.Context, caller id.AccountID, limit uint64) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if limit == 0 {
		return ErrInvalidLimit
	}

	s.mu.Lock()
	s.defaultDailyLimit = limit
	s.mu.Unlock()

	s.emit(ctx, audit.Event{
		Kind:   audit.EventDailyLimitChanged,
		Actor:  caller,
		Detail: strconv.FormatUint(limit, 10),
	})
	return nil
}

// SetMinimumAmount replaces the global minimum transfer amount.
func (s *Service) SetMinimumAmount(ctx context.Context, caller id.AccountID, minimum uint64) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}

	s.mu.Lock()
	s.minimumAmount = minimum
	s.mu.Unlock()

	s.emit(ctx, audit.Event{
		Kind:   audit.EventMinimumAmountChanged,
		Actor:  caller,
		Detail: strconv.FormatUint(minimum, 10),
	})
	return nil
}

// SetAuthorizedCaller replaces the principal permitted to record usage.
func (s *Service) SetAuthorizedCaller(ctx context.Context, caller, authorized id.AccountID) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if authorized.IsNil() {
		return ErrAccountRequired
	}

	s.mu.Lock()
	s.authorizedCaller = authorized
	s.mu.Unlock()
	return nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit compliance event",
			"kind", event.Kind,
			"error", err,
		)
	}
}
