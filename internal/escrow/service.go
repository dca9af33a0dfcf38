package escrow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"remitpool/internal/audit"
	"remitpool/internal/escrow/metrics"
	id "remitpool/pkg/domain"
	dErrors "remitpool/pkg/domain-errors"
	"remitpool/pkg/platform/sentinel"
	"remitpool/pkg/requestcontext"
)

// Named failures.
var (
	ErrRemittanceNotFound  = dErrors.New(dErrors.CodeNotFound, "remittance not found")
	ErrCreatorRequired     = dErrors.New(dErrors.CodeBadRequest, "creator is required")
	ErrRecipientRequired   = dErrors.New(dErrors.CodeBadRequest, "recipient is required")
	ErrContributorRequired = dErrors.New(dErrors.CodeBadRequest, "contributor is required")
	ErrSelfRemittance      = dErrors.New(dErrors.CodeBadRequest, "creator and recipient must differ")
	ErrInvalidTarget       = dErrors.New(dErrors.CodeBadRequest, "target amount must be positive")
	ErrInvalidExpiry       = dErrors.New(dErrors.CodeBadRequest, "expiry must be zero or in the future")
	ErrInvalidAmount       = dErrors.New(dErrors.CodeBadRequest, "amount must be positive")
	ErrSelfContribution    = dErrors.New(dErrors.CodeBadRequest, "recipient cannot fund its own remittance")
	ErrInsufficientFunds   = dErrors.New(dErrors.CodeBadRequest, "insufficient balance")
	ErrInvalidFee          = dErrors.New(dErrors.CodeBadRequest, "fee exceeds maximum basis points")

	ErrOnlyRecipient  = dErrors.New(dErrors.CodeForbidden, "only the recipient may release")
	ErrOnlyCreator    = dErrors.New(dErrors.CodeForbidden, "only the creator may cancel")
	ErrNotAuthorized  = dErrors.New(dErrors.CodeForbidden, "caller is not authorized")

	ErrNotActive      = dErrors.New(dErrors.CodeInvalidState, "remittance is not active")
	ErrExpired        = dErrors.New(dErrors.CodeInvalidState, "remittance has expired")
	ErrNotExpired     = dErrors.New(dErrors.CodeInvalidState, "remittance has not expired")
	ErrTargetNotMet   = dErrors.New(dErrors.CodeInvalidState, "target amount not met")
	ErrNoContribution = dErrors.New(dErrors.CodeInvalidState, "caller has no contribution to reclaim")

	// ErrComplianceFailed is the single opaque compliance rejection; callers
	// are not told which rule tripped.
	ErrComplianceFailed = dErrors.New(dErrors.CodeComplianceFailed, "compliance check failed")
)

// Config carries the ledger's initial configuration.
type Config struct {
	// FeeCollector receives the platform's cut on release.
	FeeCollector id.AccountID

	// FeeBasisPoints is the platform fee snapshotted onto each new
	// remittance. Must not exceed MaxFeeBasisPoints.
	FeeBasisPoints uint32

	// AutoRelease is the global switch; both it and a remittance's own flag
	// must be set for auto-release to fire.
	AutoRelease bool

	// Admin is the principal permitted to call the admin operations.
	Admin id.AccountID
}

// Service is the escrow ledger state machine. Every mutating operation runs to
// completion under one mutex before the next begins, reproducing a single
// sequential ledger; the mutex spans the gateway calls, so gateway
// implementations must never call back into the service.
//
// All internal failures restore the record from a pre-mutation snapshot and
// return custody, so no partial effect of an aborted operation is observable.
type Service struct {
	mu         sync.Mutex
	store      Store
	gateway    Gateway
	compliance ComplianceModule
	resolver   IdentifierResolver

	feeCollector   id.AccountID
	feeBasisPoints uint32
	autoRelease    bool
	admin          id.AccountID

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

func WithResolver(resolver IdentifierResolver) Option {
	return func(s *Service) { s.resolver = resolver }
}

func New(store Store, gateway Gateway, compliance ComplianceModule, cfg Config, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("escrow store is required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("value-transfer gateway is required")
	}
	if compliance == nil {
		return nil, fmt.Errorf("compliance module is required")
	}
	if cfg.FeeBasisPoints > MaxFeeBasisPoints {
		return nil, fmt.Errorf("fee %d exceeds maximum %d basis points", cfg.FeeBasisPoints, MaxFeeBasisPoints)
	}
	if cfg.FeeCollector.IsNil() {
		return nil, fmt.Errorf("fee collector is required")
	}

	svc := &Service{
		store:          store,
		gateway:        gateway,
		compliance:     compliance,
		feeCollector:   cfg.FeeCollector,
		feeBasisPoints: cfg.FeeBasisPoints,
		autoRelease:    cfg.AutoRelease,
		admin:          cfg.Admin,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// -----------------------------------------------------------------------------
// Creation
// -----------------------------------------------------------------------------

// Create opens a new remittance and returns its assigned id.
func (s *Service) Create(ctx context.Context, creator, recipient id.AccountID, target uint64, expiresAt time.Time, annotation string, autoRelease bool) (id.RemittanceID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create(ctx, creator, recipient, target, expiresAt, annotation, autoRelease)
}

// CreateByIdentifier resolves the recipient alias first, then creates the
// remittance against the resolved address.
func (s *Service) CreateByIdentifier(ctx context.Context, creator id.AccountID, hash id.IdentifierHash, target uint64, expiresAt time.Time, annotation string, autoRelease bool) (id.RemittanceID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resolver == nil {
		return 0, dErrors.New(dErrors.CodeInternal, "identifier resolver not configured")
	}
	recipient, err := s.resolver.Resolve(ctx, hash)
	if err != nil {
		return 0, err
	}
	return s.create(ctx, creator, recipient, target, expiresAt, annotation, autoRelease)
}

func (s *Service) create(ctx context.Context, creator, recipient id.AccountID, target uint64, expiresAt time.Time, annotation string, autoRelease bool) (id.RemittanceID, error) {
	if recipient.IsNil() {
		return 0, ErrRecipientRequired
	}
	if creator.IsNil() {
		return 0, ErrCreatorRequired
	}
	if creator == recipient {
		return 0, ErrSelfRemittance
	}
	if target == 0 {
		return 0, ErrInvalidTarget
	}
	now := requestcontext.Now(ctx)
	if !expiresAt.IsZero() && !expiresAt.After(now) {
		return 0, ErrInvalidExpiry
	}
	if err := s.checkCompliance(ctx, creator, recipient, target); err != nil {
		return 0, err
	}

	record := &Remittance{
		Creator:        creator,
		Recipient:      recipient,
		Annotation:     annotation,
		TargetAmount:   target,
		FeeBasisPoints: s.feeBasisPoints,
		CreatedAt:      now,
		ExpiresAt:      expiresAt,
		Status:         id.StatusActive,
		AutoRelease:    autoRelease,
		Contributions:  make(map[id.AccountID]uint64),
	}
	rid, err := s.store.Create(ctx, record)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store remittance")
	}

	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	s.emit(ctx, audit.Event{
		Kind:       audit.EventRemittanceCreated,
		Actor:      creator,
		Remittance: rid,
		Amount:     target,
	})
	return rid, nil
}

// -----------------------------------------------------------------------------
// Contribution
// -----------------------------------------------------------------------------

// Contribute moves amount into escrow custody and credits it toward the
// remittance. If the target is reached and both auto-release flags are set,
// the release happens on this same call.
//
// The gateway-facing entry point: the external value-transfer venue invokes
// this once it has verified the contributor's intent; custody movement happens
// here, inside the serialized critical section.
func (s *Service) Contribute(ctx context.Context, contributor id.AccountID, rid id.RemittanceID, amount uint64) (ContributionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.get(ctx, rid)
	if err != nil {
		return ContributionResult{}, err
	}
	if record.Status != id.StatusActive {
		return ContributionResult{}, ErrNotActive
	}
	now := requestcontext.Now(ctx)
	if !record.ExpiresAt.IsZero() && !now.Before(record.ExpiresAt) {
		return ContributionResult{}, ErrExpired
	}
	if amount == 0 {
		return ContributionResult{}, ErrInvalidAmount
	}
	if contributor.IsNil() {
		return ContributionResult{}, ErrContributorRequired
	}
	if contributor == record.Recipient {
		return ContributionResult{}, ErrSelfContribution
	}
	if err := s.checkCompliance(ctx, contributor, record.Recipient, amount); err != nil {
		return ContributionResult{}, err
	}

	if err := s.gateway.TransferIn(ctx, contributor, amount); err != nil {
		if errors.Is(err, sentinel.ErrInsufficientFunds) {
			return ContributionResult{}, ErrInsufficientFunds
		}
		return ContributionResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "custody transfer failed")
	}

	snapshot := record.clone()

	record.CurrentAmount += amount
	if _, seen := record.Contributions[contributor]; !seen {
		record.Contributors = append(record.Contributors, contributor)
	}
	record.Contributions[contributor] += amount

	if err := s.compliance.RecordUsage(ctx, contributor, amount); err != nil {
		s.rollback(ctx, snapshot, contributor, amount)
		return ContributionResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record usage")
	}

	result := ContributionResult{NewTotal: record.CurrentAmount}

	if record.CurrentAmount >= record.TargetAmount && s.autoRelease && record.AutoRelease && record.Status == id.StatusActive {
		payout, fee, err := s.doRelease(ctx, record)
		if err != nil {
			s.rollback(ctx, snapshot, contributor, amount)
			return ContributionResult{}, err
		}
		result.Released, result.Payout, result.Fee = true, payout, fee
	}

	if s.metrics != nil {
		s.metrics.IncrementContributions()
	}
	// The contribution goes on the trail before any release it triggered.
	s.emit(ctx, audit.Event{
		Kind:       audit.EventContributionMade,
		Actor:      contributor,
		Remittance: rid,
		Amount:     amount,
		Total:      result.NewTotal,
	})
	if result.Released {
		s.emitReleased(ctx, record, result.Payout, result.Fee)
	}
	return result, nil
}

// -----------------------------------------------------------------------------
// Release
// -----------------------------------------------------------------------------

// Release pays out a funded remittance. Only the recipient may call it.
func (s *Service) Release(ctx context.Context, caller id.AccountID, rid id.RemittanceID) (ReleaseResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.get(ctx, rid)
	if err != nil {
		return ReleaseResult{}, err
	}
	if caller != record.Recipient {
		return ReleaseResult{}, ErrOnlyRecipient
	}
	if record.Status != id.StatusActive {
		return ReleaseResult{}, ErrNotActive
	}
	if record.CurrentAmount < record.TargetAmount {
		return ReleaseResult{}, ErrTargetNotMet
	}

	payout, fee, err := s.doRelease(ctx, record)
	if err != nil {
		return ReleaseResult{}, err
	}
	s.emitReleased(ctx, record, payout, fee)
	return ReleaseResult{Payout: payout, Fee: fee}, nil
}

// doRelease runs the release algorithm on a record already validated by the
// caller. The fee is computed on the full current amount at release time, so
// an over-funded remittance pays fees on the surplus too.
func (s *Service) doRelease(ctx context.Context, record *Remittance) (payout, fee uint64, err error) {
	payout, fee = splitFee(record.CurrentAmount, record.FeeBasisPoints)

	snapshot := record.clone()
	record.Status = id.StatusReleased

	transfers := []Transfer{{To: record.Recipient, Amount: payout}}
	if fee > 0 {
		transfers = append(transfers, Transfer{To: s.feeCollector, Amount: fee})
	}
	if err := s.gateway.TransferOutBatch(ctx, transfers); err != nil {
		s.restore(ctx, snapshot)
		return 0, 0, dErrors.Wrap(err, dErrors.CodeInternal, "release transfer failed")
	}
	return payout, fee, nil
}

// emitReleased records a completed release in metrics and the audit trail.
// Split out of doRelease so an auto-releasing contribution can place its own
// event ahead of the release it caused.
func (s *Service) emitReleased(ctx context.Context, record *Remittance, payout, fee uint64) {
	if s.metrics != nil {
		s.metrics.IncrementReleased()
	}
	s.emit(ctx, audit.Event{
		Kind:       audit.EventRemittanceReleased,
		Actor:      record.Recipient,
		Remittance: record.ID,
		Amount:     payout,
		Fee:        fee,
	})
}

// -----------------------------------------------------------------------------
// Cancellation
// -----------------------------------------------------------------------------

// Cancel refunds every contributor in insertion order and closes the
// remittance. Only the creator may call it. The refund fan-out is
// all-or-nothing: the batch either completes for every contributor or the
// whole cancellation fails with no effect.
func (s *Service) Cancel(ctx context.Context, caller id.AccountID, rid id.RemittanceID) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.get(ctx, rid)
	if err != nil {
		return 0, err
	}
	if caller != record.Creator {
		return 0, ErrOnlyCreator
	}
	if record.Status != id.StatusActive {
		return 0, ErrNotActive
	}

	snapshot := record.clone()
	record.Status = id.StatusCancelled

	var transfers []Transfer
	var total uint64
	for _, contributor := range record.Contributors {
		amount := record.Contributions[contributor]
		if amount == 0 {
			continue
		}
		record.Contributions[contributor] = 0
		transfers = append(transfers, Transfer{To: contributor, Amount: amount})
		total += amount
	}
	// Zeroed for read consistency on the terminal record; the refunds drain
	// every ledger entry anyway.
	record.CurrentAmount = 0

	if len(transfers) > 0 {
		if err := s.gateway.TransferOutBatch(ctx, transfers); err != nil {
			s.restore(ctx, snapshot)
			return 0, dErrors.Wrap(err, dErrors.CodeInternal, "refund transfer failed")
		}
	}

	if s.metrics != nil {
		s.metrics.IncrementCancelled()
	}
	s.emit(ctx, audit.Event{
		Kind:       audit.EventRemittanceCancelled,
		Actor:      caller,
		Remittance: rid,
		Amount:     total,
	})
	return total, nil
}

// -----------------------------------------------------------------------------
// Expiry
// -----------------------------------------------------------------------------

// ClaimExpiredRefund returns the caller's own contribution from an expired
// remittance. The first claimant transitions the record to Expired; later
// claimants observe the transition already made. Each contributor reclaims
// individually; there is no batch refund.
func (s *Service) ClaimExpiredRefund(ctx context.Context, caller id.AccountID, rid id.RemittanceID) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.get(ctx, rid)
	if err != nil {
		return 0, err
	}
	// A remittance that released or was cancelled before expiry is not
	// claimable; Expired itself still is, for the remaining contributors.
	if record.Status == id.StatusReleased || record.Status == id.StatusCancelled {
		return 0, ErrNotActive
	}
	now := requestcontext.Now(ctx)
	if record.ExpiresAt.IsZero() || now.Before(record.ExpiresAt) {
		return 0, ErrNotExpired
	}
	amount := record.Contributions[caller]
	if amount == 0 {
		return 0, ErrNoContribution
	}

	snapshot := record.clone()
	firstClaim := record.Status == id.StatusActive
	if firstClaim {
		record.Status = id.StatusExpired
	}
	record.Contributions[caller] = 0
	record.CurrentAmount -= amount

	if err := s.gateway.TransferOut(ctx, caller, amount); err != nil {
		s.restore(ctx, snapshot)
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "refund transfer failed")
	}

	if firstClaim {
		if s.metrics != nil {
			s.metrics.IncrementExpired()
		}
		s.emit(ctx, audit.Event{
			Kind:       audit.EventRemittanceExpired,
			Actor:      caller,
			Remittance: rid,
		})
	}
	return amount, nil
}

// -----------------------------------------------------------------------------
// Queries
// -----------------------------------------------------------------------------

// Get returns a snapshot view of a remittance.
func (s *Service) Get(ctx context.Context, rid id.RemittanceID) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.get(ctx, rid)
	if err != nil {
		return View{}, err
	}
	return record.view(), nil
}

// ContributionOf returns one contributor's cumulative ledger entry.
func (s *Service) ContributionOf(ctx context.Context, rid id.RemittanceID, contributor id.AccountID) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.get(ctx, rid)
	if err != nil {
		return 0, err
	}
	return record.Contributions[contributor], nil
}

// ListByCreator lists remittance ids created by the account.
func (s *Service) ListByCreator(ctx context.Context, account id.AccountID) ([]id.RemittanceID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ByCreator(ctx, account)
}

// ListByRecipient lists remittance ids addressed to the account.
func (s *Service) ListByRecipient(ctx context.Context, account id.AccountID) ([]id.RemittanceID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ByRecipient(ctx, account)
}

// NextID returns the id the next creation will assign.
func (s *Service) NextID(ctx context.Context) (id.RemittanceID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.NextID(ctx)
}

// FeeConfiguration returns the current fee collector and platform fee.
func (s *Service) FeeConfiguration(_ context.Context) FeeConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FeeConfig{Collector: s.feeCollector, BasisPoints: s.feeBasisPoints}
}

// AutoReleaseEnabled returns the global auto-release switch.
func (s *Service) AutoReleaseEnabled(_ context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoRelease
}

// -----------------------------------------------------------------------------
// Admin operations
// -----------------------------------------------------------------------------

func (s *Service) requireAdmin(caller id.AccountID) error {
	if caller != s.admin {
		return ErrNotAuthorized
	}
	return nil
}

// SetComplianceModule replaces the compliance engine reference.
func (s *Service) SetComplianceModule(ctx context.Context, caller id.AccountID, module ComplianceModule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if module == nil {
		return dErrors.New(dErrors.CodeBadRequest, "compliance module is required")
	}
	s.compliance = module
	s.emit(ctx, audit.Event{Kind: audit.EventComplianceModuleChanged, Actor: caller})
	return nil
}

// SetResolver replaces the identifier resolver reference.
func (s *Service) SetResolver(ctx context.Context, caller id.AccountID, resolver IdentifierResolver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	s.resolver = resolver
	s.emit(ctx, audit.Event{Kind: audit.EventResolverChanged, Actor: caller})
	return nil
}

// SetFeeCollector replaces the fee collector address.
func (s *Service) SetFeeCollector(ctx context.Context, caller, collector id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if collector.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "fee collector is required")
	}
	s.feeCollector = collector
	s.emit(ctx, audit.Event{
		Kind:   audit.EventFeeCollectorChanged,
		Actor:  caller,
		Detail: collector.String(),
	})
	return nil
}

// SetPlatformFee changes the fee snapshotted onto future remittances.
// Existing records keep the fee they were created with.
func (s *Service) SetPlatformFee(ctx context.Context, caller id.AccountID, bps uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if bps > MaxFeeBasisPoints {
		return ErrInvalidFee
	}
	s.feeBasisPoints = bps
	s.emit(ctx, audit.Event{
		Kind:   audit.EventPlatformFeeChanged,
		Actor:  caller,
		Detail: strconv.FormatUint(uint64(bps), 10),
	})
	return nil
}

// SetAutoRelease toggles the global auto-release switch.
func (s *Service) SetAutoRelease(ctx context.Context, caller id.AccountID, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	s.autoRelease = enabled
	s.emit(ctx, audit.Event{
		Kind:   audit.EventAutoReleaseToggled,
		Actor:  caller,
		Detail: strconv.FormatBool(enabled),
	})
	return nil
}

// -----------------------------------------------------------------------------
// Internal helpers
// -----------------------------------------------------------------------------

func (s *Service) get(ctx context.Context, rid id.RemittanceID) (*Remittance, error) {
	record, err := s.store.Get(ctx, rid)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, ErrRemittanceNotFound
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load remittance")
	}
	return record, nil
}

// checkCompliance collapses any rejection into the single opaque compliance
// failure so policy details never leak to callers.
func (s *Service) checkCompliance(ctx context.Context, sender, recipient id.AccountID, amount uint64) error {
	ok, err := s.compliance.IsCompliant(ctx, sender, recipient, amount)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "compliance check unavailable")
	}
	if !ok {
		return ErrComplianceFailed
	}
	return nil
}

func (s *Service) restore(ctx context.Context, snapshot *Remittance) {
	if err := s.store.Restore(ctx, snapshot); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to restore remittance snapshot",
			"remittance_id", snapshot.ID,
			"error", err,
		)
	}
}

// rollback undoes an aborted contribution: the record is restored from its
// snapshot and the custody taken by TransferIn is returned.
func (s *Service) rollback(ctx context.Context, snapshot *Remittance, contributor id.AccountID, amount uint64) {
	s.restore(ctx, snapshot)
	if err := s.gateway.TransferOut(ctx, contributor, amount); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to return custody after aborted contribution",
			"remittance_id", snapshot.ID,
			"contributor", contributor,
			"amount", amount,
			"error", err,
		)
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit escrow event",
			"kind", event.Kind,
			"error", err,
		)
	}
}
