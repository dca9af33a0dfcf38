package escrow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"remitpool/internal/audit"
	"remitpool/internal/compliance"
	"remitpool/internal/resolver"
	id "remitpool/pkg/domain"
	"remitpool/pkg/requestcontext"
)

// =============================================================================
// Escrow Service Test Suite
// =============================================================================
// The suite wires a real compliance engine, resolver, and in-memory gateway
// rather than mocks so cross-module behavior (usage accounting, alias
// resolution, custody conservation) is exercised end to end.

const (
	alice     = id.AccountID("alice")
	bob       = id.AccountID("bob")
	carol     = id.AccountID("carol")
	rita      = id.AccountID("rita")
	collector = id.AccountID("fee-collector")
	admin     = id.AccountID("platform-admin")
	ledger    = id.AccountID("escrow-ledger")
)

type EscrowServiceSuite struct {
	suite.Suite
	store      *InMemoryStore
	gateway    *InMemoryGateway
	compliance *compliance.Service
	resolver   *resolver.Service
	audit      *audit.InMemoryStore
	service    *Service
	now        time.Time
}

func TestEscrowServiceSuite(t *testing.T) {
	suite.Run(t, new(EscrowServiceSuite))
}

func (s *EscrowServiceSuite) SetupTest() {
	s.now = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	s.store = NewInMemoryStore()
	s.gateway = NewInMemoryGateway()
	s.audit = audit.NewInMemoryStore()

	var err error
	s.compliance, err = compliance.New(
		compliance.NewInMemoryListStore(),
		compliance.NewInMemoryUsageStore(),
		compliance.Config{
			DefaultDailyLimit: 1_000_000,
			MinimumAmount:     1,
			AuthorizedCaller:  ledger,
			Admin:             admin,
		},
	)
	s.Require().NoError(err)

	s.resolver, err = resolver.New(resolver.NewInMemoryStore())
	s.Require().NoError(err)

	s.service, err = New(
		s.store,
		s.gateway,
		compliance.AsModule(s.compliance, ledger),
		Config{
			FeeCollector:   collector,
			FeeBasisPoints: 50,
			AutoRelease:    true,
			Admin:          admin,
		},
		WithResolver(s.resolver),
		WithEventPublisher(audit.NewPublisher(s.audit)),
	)
	s.Require().NoError(err)

	for _, account := range []id.AccountID{alice, bob, carol, rita} {
		s.Require().NoError(s.compliance.AddToAllowlist(s.ctx(), admin, account, 0))
	}
	s.gateway.Credit(alice, 1_000_000)
	s.gateway.Credit(bob, 1_000_000)
	s.gateway.Credit(carol, 1_000_000)
}

// ctx returns a context pinned to the suite's clock.
func (s *EscrowServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

// ctxAt returns a context pinned to an offset from the suite's clock.
func (s *EscrowServiceSuite) ctxAt(offset time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.now.Add(offset))
}

// create opens a plain remittance from alice to rita.
func (s *EscrowServiceSuite) create(target uint64, expiresAt time.Time, autoRelease bool) id.RemittanceID {
	rid, err := s.service.Create(s.ctx(), alice, rita, target, expiresAt, "rent pool", autoRelease)
	s.Require().NoError(err)
	return rid
}

// totalValue sums every external balance plus escrow custody.
func (s *EscrowServiceSuite) totalValue() uint64 {
	return s.gateway.Balance(alice) + s.gateway.Balance(bob) + s.gateway.Balance(carol) +
		s.gateway.Balance(rita) + s.gateway.Balance(collector) + s.gateway.Custody()
}

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *EscrowServiceSuite) TestNew() {
	module := compliance.AsModule(s.compliance, ledger)
	cfg := Config{FeeCollector: collector, FeeBasisPoints: 50, Admin: admin}

	s.Run("nil store returns error", func() {
		_, err := New(nil, s.gateway, module, cfg)
		s.Error(err)
		s.Contains(err.Error(), "escrow store is required")
	})

	s.Run("nil gateway returns error", func() {
		_, err := New(s.store, nil, module, cfg)
		s.Error(err)
		s.Contains(err.Error(), "gateway is required")
	})

	s.Run("nil compliance module returns error", func() {
		_, err := New(s.store, s.gateway, nil, cfg)
		s.Error(err)
		s.Contains(err.Error(), "compliance module is required")
	})

	s.Run("fee above cap returns error", func() {
		bad := cfg
		bad.FeeBasisPoints = MaxFeeBasisPoints + 1
		_, err := New(s.store, s.gateway, module, bad)
		s.Error(err)
	})

	s.Run("missing fee collector returns error", func() {
		bad := cfg
		bad.FeeCollector = ""
		_, err := New(s.store, s.gateway, module, bad)
		s.Error(err)
	})
}

// =============================================================================
// Creation Tests
// =============================================================================

func (s *EscrowServiceSuite) TestCreate() {
	s.Run("assigns sequential ids starting at one", func() {
		first := s.create(10_000, time.Time{}, false)
		second := s.create(20_000, time.Time{}, false)
		s.Equal(id.RemittanceID(1), first)
		s.Equal(id.RemittanceID(2), second)

		next, err := s.service.NextID(s.ctx())
		s.NoError(err)
		s.Equal(id.RemittanceID(3), next)
	})

	s.Run("records creation fields", func() {
		expiry := s.now.Add(72 * time.Hour)
		rid, err := s.service.Create(s.ctx(), alice, rita, 50_000, expiry, "tuition", true)
		s.Require().NoError(err)

		view, err := s.service.Get(s.ctx(), rid)
		s.NoError(err)
		s.Equal(alice, view.Creator)
		s.Equal(rita, view.Recipient)
		s.Equal("tuition", view.Annotation)
		s.Equal(uint64(50_000), view.TargetAmount)
		s.Equal(uint64(0), view.CurrentAmount)
		s.Equal(uint32(50), view.FeeBasisPoints)
		s.Equal(s.now, view.CreatedAt)
		s.Equal(expiry, view.ExpiresAt)
		s.Equal(id.StatusActive, view.Status)
		s.True(view.AutoRelease)
		s.Empty(view.Contributors)
	})

	s.Run("rejects creator equal to recipient", func() {
		_, err := s.service.Create(s.ctx(), alice, alice, 10_000, time.Time{}, "", false)
		s.ErrorIs(err, ErrSelfRemittance)
	})

	s.Run("rejects empty recipient", func() {
		_, err := s.service.Create(s.ctx(), alice, "", 10_000, time.Time{}, "", false)
		s.ErrorIs(err, ErrRecipientRequired)
	})

	s.Run("rejects zero target", func() {
		_, err := s.service.Create(s.ctx(), alice, rita, 0, time.Time{}, "", false)
		s.ErrorIs(err, ErrInvalidTarget)
	})

	s.Run("rejects expiry at or before now", func() {
		_, err := s.service.Create(s.ctx(), alice, rita, 10_000, s.now, "", false)
		s.ErrorIs(err, ErrInvalidExpiry)

		_, err = s.service.Create(s.ctx(), alice, rita, 10_000, s.now.Add(-time.Hour), "", false)
		s.ErrorIs(err, ErrInvalidExpiry)
	})

	s.Run("rejects non-allowlisted creator opaquely", func() {
		_, err := s.service.Create(s.ctx(), id.AccountID("stranger"), rita, 10_000, time.Time{}, "", false)
		s.ErrorIs(err, ErrComplianceFailed)
	})

	s.Run("rejects blocklisted recipient opaquely", func() {
		s.Require().NoError(s.compliance.AddToBlocklist(s.ctx(), admin, rita))
		_, err := s.service.Create(s.ctx(), alice, rita, 10_000, time.Time{}, "", false)
		s.ErrorIs(err, ErrComplianceFailed)
		s.Require().NoError(s.compliance.RemoveFromBlocklist(s.ctx(), admin, rita))
	})

	s.Run("emits created event", func() {
		rid := s.create(10_000, time.Time{}, false)
		events, err := s.audit.ListByRemittance(s.ctx(), rid)
		s.NoError(err)
		s.Require().Len(events, 1)
		s.Equal(audit.EventRemittanceCreated, events[0].Kind)
		s.Equal(alice, events[0].Actor)
		s.Equal(uint64(10_000), events[0].Amount)
	})
}

func (s *EscrowServiceSuite) TestCreateByIdentifier() {
	hash := resolver.ComputeHash("rita@example.com")

	s.Run("unregistered hash fails", func() {
		_, err := s.service.CreateByIdentifier(s.ctx(), alice, hash, 10_000, time.Time{}, "", false)
		s.ErrorIs(err, resolver.ErrNotRegistered)
	})

	s.Run("resolves alias to recipient", func() {
		s.Require().NoError(s.resolver.Register(s.ctx(), hash, rita))

		rid, err := s.service.CreateByIdentifier(s.ctx(), alice, hash, 10_000, time.Time{}, "", false)
		s.NoError(err)

		view, err := s.service.Get(s.ctx(), rid)
		s.NoError(err)
		s.Equal(rita, view.Recipient)
	})

	s.Run("resolved recipient still validated", func() {
		aliasSelf := resolver.ComputeHash("alice@example.com")
		s.Require().NoError(s.resolver.Register(s.ctx(), aliasSelf, alice))

		_, err := s.service.CreateByIdentifier(s.ctx(), alice, aliasSelf, 10_000, time.Time{}, "", false)
		s.ErrorIs(err, ErrSelfRemittance)
	})
}

// =============================================================================
// Contribution Tests
// =============================================================================

func (s *EscrowServiceSuite) TestContribute() {
	s.Run("moves value into custody and credits the ledger entry", func() {
		rid := s.create(100_000, time.Time{}, false)

		result, err := s.service.Contribute(s.ctx(), bob, rid, 30_000)
		s.Require().NoError(err)
		s.Equal(uint64(30_000), result.NewTotal)
		s.False(result.Released)

		s.Equal(uint64(970_000), s.gateway.Balance(bob))
		s.Equal(uint64(30_000), s.gateway.Custody())

		entry, err := s.service.ContributionOf(s.ctx(), rid, bob)
		s.NoError(err)
		s.Equal(uint64(30_000), entry)
	})

	s.Run("accumulates repeat contributions without duplicating membership", func() {
		rid := s.create(100_000, time.Time{}, false)

		_, err := s.service.Contribute(s.ctx(), bob, rid, 10_000)
		s.Require().NoError(err)
		_, err = s.service.Contribute(s.ctx(), carol, rid, 5_000)
		s.Require().NoError(err)
		_, err = s.service.Contribute(s.ctx(), bob, rid, 7_000)
		s.Require().NoError(err)

		view, err := s.service.Get(s.ctx(), rid)
		s.NoError(err)
		s.Equal([]id.AccountID{bob, carol}, view.Contributors)
		s.Equal(uint64(22_000), view.CurrentAmount)

		entry, err := s.service.ContributionOf(s.ctx(), rid, bob)
		s.NoError(err)
		s.Equal(uint64(17_000), entry)
	})

	s.Run("records daily usage", func() {
		erin := id.AccountID("erin")
		s.Require().NoError(s.compliance.AddToAllowlist(s.ctx(), admin, erin, 0))
		s.gateway.Credit(erin, 100_000)
		rid := s.create(100_000, time.Time{}, false)

		_, err := s.service.Contribute(s.ctx(), erin, rid, 40_000)
		s.Require().NoError(err)

		status, err := s.compliance.ComplianceStatus(s.ctx(), erin)
		s.NoError(err)
		s.Equal(uint64(40_000), status.UsedToday)
	})

	s.Run("unknown remittance fails", func() {
		_, err := s.service.Contribute(s.ctx(), bob, id.RemittanceID(999), 1_000)
		s.ErrorIs(err, ErrRemittanceNotFound)
	})

	s.Run("zero amount fails", func() {
		rid := s.create(100_000, time.Time{}, false)
		_, err := s.service.Contribute(s.ctx(), bob, rid, 0)
		s.ErrorIs(err, ErrInvalidAmount)
	})

	s.Run("empty contributor fails", func() {
		rid := s.create(100_000, time.Time{}, false)
		_, err := s.service.Contribute(s.ctx(), id.AccountID(""), rid, 1_000)
		s.ErrorIs(err, ErrContributorRequired)
	})

	s.Run("recipient cannot fund its own remittance", func() {
		rid := s.create(100_000, time.Time{}, false)
		_, err := s.service.Contribute(s.ctx(), rita, rid, 1_000)
		s.ErrorIs(err, ErrSelfContribution)
	})

	s.Run("creator may contribute", func() {
		rid := s.create(100_000, time.Time{}, false)
		_, err := s.service.Contribute(s.ctx(), alice, rid, 1_000)
		s.NoError(err)
	})

	s.Run("expired remittance rejects contributions", func() {
		rid := s.create(100_000, s.now.Add(24*time.Hour), false)
		_, err := s.service.Contribute(s.ctxAt(24*time.Hour), bob, rid, 1_000)
		s.ErrorIs(err, ErrExpired)
	})

	s.Run("daily limit rejection is opaque", func() {
		frank := id.AccountID("frank")
		s.Require().NoError(s.compliance.AddToAllowlist(s.ctx(), admin, frank, 5_000))
		s.gateway.Credit(frank, 100_000)
		rid := s.create(100_000, time.Time{}, false)

		_, err := s.service.Contribute(s.ctx(), frank, rid, 6_000)
		s.ErrorIs(err, ErrComplianceFailed)

		// Nothing moved, nothing recorded.
		s.Equal(uint64(100_000), s.gateway.Balance(frank))
		status, err := s.compliance.ComplianceStatus(s.ctx(), frank)
		s.NoError(err)
		s.Equal(uint64(0), status.UsedToday)
	})

	s.Run("limit resets at the next day bucket", func() {
		gina := id.AccountID("gina")
		s.Require().NoError(s.compliance.AddToAllowlist(s.ctx(), admin, gina, 10_000))
		s.gateway.Credit(gina, 100_000)
		rid := s.create(100_000, time.Time{}, false)

		_, err := s.service.Contribute(s.ctx(), gina, rid, 10_000)
		s.Require().NoError(err)
		_, err = s.service.Contribute(s.ctx(), gina, rid, 1)
		s.ErrorIs(err, ErrComplianceFailed)

		_, err = s.service.Contribute(s.ctxAt(24*time.Hour), gina, rid, 10_000)
		s.NoError(err)
	})

	s.Run("insufficient balance fails cleanly", func() {
		broke := id.AccountID("dora")
		s.Require().NoError(s.compliance.AddToAllowlist(s.ctx(), admin, broke, 0))
		rid := s.create(100_000, time.Time{}, false)

		_, err := s.service.Contribute(s.ctx(), broke, rid, 1_000)
		s.ErrorIs(err, ErrInsufficientFunds)

		entry, err := s.service.ContributionOf(s.ctx(), rid, broke)
		s.NoError(err)
		s.Equal(uint64(0), entry)
	})

	s.Run("emits contribution event", func() {
		rid := s.create(100_000, time.Time{}, false)
		_, err := s.service.Contribute(s.ctx(), bob, rid, 2_500)
		s.Require().NoError(err)

		events, err := s.audit.ListByRemittance(s.ctx(), rid)
		s.NoError(err)
		s.Require().Len(events, 2)
		s.Equal(audit.EventContributionMade, events[1].Kind)
		s.Equal(bob, events[1].Actor)
		s.Equal(uint64(2_500), events[1].Amount)
		s.Equal(uint64(2_500), events[1].Total)
	})
}

func (s *EscrowServiceSuite) TestContributeRollback() {
	// A service bound to the wrong ledger principal fails usage recording
	// after custody has moved; the whole contribution must unwind.
	svc, err := New(
		s.store,
		s.gateway,
		compliance.AsModule(s.compliance, id.AccountID("imposter")),
		Config{FeeCollector: collector, FeeBasisPoints: 50, Admin: admin},
	)
	s.Require().NoError(err)

	rid := s.create(100_000, time.Time{}, false)

	_, err = svc.Contribute(s.ctx(), bob, rid, 10_000)
	s.Error(err)

	s.Equal(uint64(1_000_000), s.gateway.Balance(bob))
	s.Equal(uint64(0), s.gateway.Custody())

	view, err := s.service.Get(s.ctx(), rid)
	s.NoError(err)
	s.Equal(uint64(0), view.CurrentAmount)
	s.Empty(view.Contributors)
}

// =============================================================================
// Auto-Release Tests
// =============================================================================

func (s *EscrowServiceSuite) TestAutoRelease() {
	s.Run("fires when the target is reached", func() {
		rid := s.create(100_000, time.Time{}, true)

		_, err := s.service.Contribute(s.ctx(), bob, rid, 60_000)
		s.Require().NoError(err)

		result, err := s.service.Contribute(s.ctx(), carol, rid, 40_000)
		s.Require().NoError(err)
		s.True(result.Released)
		// 50 bps of 100_000.
		s.Equal(uint64(500), result.Fee)
		s.Equal(uint64(99_500), result.Payout)

		view, err := s.service.Get(s.ctx(), rid)
		s.NoError(err)
		s.Equal(id.StatusReleased, view.Status)
		s.Equal(uint64(99_500), s.gateway.Balance(rita))
		s.Equal(uint64(500), s.gateway.Balance(collector))
		s.Equal(uint64(0), s.gateway.Custody())
	})

	s.Run("trail keeps the triggering contribution ahead of the release", func() {
		rid := s.create(100_000, time.Time{}, true)

		result, err := s.service.Contribute(s.ctx(), bob, rid, 100_000)
		s.Require().NoError(err)
		s.Require().True(result.Released)

		events, err := s.audit.ListByRemittance(s.ctx(), rid)
		s.NoError(err)
		s.Require().Len(events, 3)
		s.Equal(audit.EventRemittanceCreated, events[0].Kind)
		s.Equal(audit.EventContributionMade, events[1].Kind)
		s.Equal(bob, events[1].Actor)
		s.Equal(audit.EventRemittanceReleased, events[2].Kind)
		s.Equal(uint64(99_500), events[2].Amount)
	})

	s.Run("overshoot pays fee on the full amount", func() {
		rid := s.create(100_000, time.Time{}, true)

		result, err := s.service.Contribute(s.ctx(), bob, rid, 120_000)
		s.Require().NoError(err)
		s.True(result.Released)
		s.Equal(uint64(600), result.Fee)
		s.Equal(uint64(119_400), result.Payout)
	})

	s.Run("requires the record flag", func() {
		rid := s.create(100_000, time.Time{}, false)

		result, err := s.service.Contribute(s.ctx(), bob, rid, 100_000)
		s.Require().NoError(err)
		s.False(result.Released)

		view, err := s.service.Get(s.ctx(), rid)
		s.NoError(err)
		s.Equal(id.StatusActive, view.Status)
	})

	s.Run("requires the global switch", func() {
		s.Require().NoError(s.service.SetAutoRelease(s.ctx(), admin, false))
		rid := s.create(100_000, time.Time{}, true)

		result, err := s.service.Contribute(s.ctx(), bob, rid, 100_000)
		s.Require().NoError(err)
		s.False(result.Released)

		s.Require().NoError(s.service.SetAutoRelease(s.ctx(), admin, true))
	})
}

// =============================================================================
// Release Tests
// =============================================================================

func (s *EscrowServiceSuite) TestRelease() {
	s.Run("pays out the recipient with the fee split", func() {
		rid := s.create(100_000, time.Time{}, false)
		_, err := s.service.Contribute(s.ctx(), bob, rid, 100_000)
		s.Require().NoError(err)

		result, err := s.service.Release(s.ctx(), rita, rid)
		s.Require().NoError(err)
		s.Equal(uint64(99_500), result.Payout)
		s.Equal(uint64(500), result.Fee)

		view, err := s.service.Get(s.ctx(), rid)
		s.NoError(err)
		s.Equal(id.StatusReleased, view.Status)
		s.Equal(uint64(99_500), s.gateway.Balance(rita))
		s.Equal(uint64(500), s.gateway.Balance(collector))
	})

	s.Run("only the recipient may release", func() {
		rid := s.create(100_000, time.Time{}, false)
		_, err := s.service.Contribute(s.ctx(), bob, rid, 100_000)
		s.Require().NoError(err)

		_, err = s.service.Release(s.ctx(), alice, rid)
		s.ErrorIs(err, ErrOnlyRecipient)
		_, err = s.service.Release(s.ctx(), bob, rid)
		s.ErrorIs(err, ErrOnlyRecipient)
	})

	s.Run("below target fails", func() {
		rid := s.create(100_000, time.Time{}, false)
		_, err := s.service.Contribute(s.ctx(), bob, rid, 99_999)
		s.Require().NoError(err)

		_, err = s.service.Release(s.ctx(), rita, rid)
		s.ErrorIs(err, ErrTargetNotMet)
	})

	s.Run("terminal remittance fails", func() {
		rid := s.create(10_000, time.Time{}, false)
		_, err := s.service.Contribute(s.ctx(), bob, rid, 10_000)
		s.Require().NoError(err)
		_, err = s.service.Release(s.ctx(), rita, rid)
		s.Require().NoError(err)

		_, err = s.service.Release(s.ctx(), rita, rid)
		s.ErrorIs(err, ErrNotActive)
	})

	s.Run("zero fee pays the full amount", func() {
		s.Require().NoError(s.service.SetPlatformFee(s.ctx(), admin, 0))
		rid := s.create(10_000, time.Time{}, false)
		_, err := s.service.Contribute(s.ctx(), bob, rid, 10_000)
		s.Require().NoError(err)

		before := s.gateway.Balance(collector)
		result, err := s.service.Release(s.ctx(), rita, rid)
		s.Require().NoError(err)
		s.Equal(uint64(10_000), result.Payout)
		s.Equal(uint64(0), result.Fee)
		s.Equal(before, s.gateway.Balance(collector))

		s.Require().NoError(s.service.SetPlatformFee(s.ctx(), admin, 50))
	})
}

// =============================================================================
// Cancellation Tests
// =============================================================================

func (s *EscrowServiceSuite) TestCancel() {
	s.Run("refunds every contributor in full", func() {
		rid := s.create(100_000, time.Time{}, false)
		_, err := s.service.Contribute(s.ctx(), bob, rid, 30_000)
		s.Require().NoError(err)
		_, err = s.service.Contribute(s.ctx(), carol, rid, 20_000)
		s.Require().NoError(err)
		_, err = s.service.Contribute(s.ctx(), bob, rid, 5_000)
		s.Require().NoError(err)

		refunded, err := s.service.Cancel(s.ctx(), alice, rid)
		s.Require().NoError(err)
		s.Equal(uint64(55_000), refunded)

		s.Equal(uint64(1_000_000), s.gateway.Balance(bob))
		s.Equal(uint64(1_000_000), s.gateway.Balance(carol))
		s.Equal(uint64(0), s.gateway.Custody())

		view, err := s.service.Get(s.ctx(), rid)
		s.NoError(err)
		s.Equal(id.StatusCancelled, view.Status)
		s.Equal(uint64(0), view.CurrentAmount)
	})

	s.Run("unfunded remittance cancels with zero refund", func() {
		rid := s.create(100_000, time.Time{}, false)

		refunded, err := s.service.Cancel(s.ctx(), alice, rid)
		s.NoError(err)
		s.Equal(uint64(0), refunded)
	})

	s.Run("only the creator may cancel", func() {
		rid := s.create(100_000, time.Time{}, false)

		_, err := s.service.Cancel(s.ctx(), rita, rid)
		s.ErrorIs(err, ErrOnlyCreator)
		_, err = s.service.Cancel(s.ctx(), bob, rid)
		s.ErrorIs(err, ErrOnlyCreator)
	})

	s.Run("terminal remittance fails", func() {
		rid := s.create(100_000, time.Time{}, false)
		_, err := s.service.Cancel(s.ctx(), alice, rid)
		s.Require().NoError(err)

		_, err = s.service.Cancel(s.ctx(), alice, rid)
		s.ErrorIs(err, ErrNotActive)
	})

	s.Run("cancelled remittance rejects contributions", func() {
		rid := s.create(100_000, time.Time{}, false)
		_, err := s.service.Cancel(s.ctx(), alice, rid)
		s.Require().NoError(err)

		_, err = s.service.Contribute(s.ctx(), bob, rid, 1_000)
		s.ErrorIs(err, ErrNotActive)
	})
}

// =============================================================================
// Expiry Tests
// =============================================================================

func (s *EscrowServiceSuite) TestClaimExpiredRefund() {
	expiry := s.now.Add(24 * time.Hour)

	s.Run("first claim flips the record and refunds the caller", func() {
		rid := s.create(100_000, expiry, false)
		_, err := s.service.Contribute(s.ctx(), bob, rid, 30_000)
		s.Require().NoError(err)
		_, err = s.service.Contribute(s.ctx(), carol, rid, 20_000)
		s.Require().NoError(err)

		refunded, err := s.service.ClaimExpiredRefund(s.ctxAt(24*time.Hour), bob, rid)
		s.Require().NoError(err)
		s.Equal(uint64(30_000), refunded)

		view, err := s.service.Get(s.ctx(), rid)
		s.NoError(err)
		s.Equal(id.StatusExpired, view.Status)
		s.Equal(uint64(20_000), view.CurrentAmount)
		s.Equal(uint64(1_000_000), s.gateway.Balance(bob))

		// Second contributor claims from the already-expired record.
		refunded, err = s.service.ClaimExpiredRefund(s.ctxAt(25*time.Hour), carol, rid)
		s.Require().NoError(err)
		s.Equal(uint64(20_000), refunded)

		view, err = s.service.Get(s.ctx(), rid)
		s.NoError(err)
		s.Equal(uint64(0), view.CurrentAmount)
	})

	s.Run("before expiry fails", func() {
		rid := s.create(100_000, expiry, false)
		_, err := s.service.Contribute(s.ctx(), bob, rid, 1_000)
		s.Require().NoError(err)

		_, err = s.service.ClaimExpiredRefund(s.ctxAt(23*time.Hour), bob, rid)
		s.ErrorIs(err, ErrNotExpired)
	})

	s.Run("remittance without expiry never expires", func() {
		rid := s.create(100_000, time.Time{}, false)
		_, err := s.service.Contribute(s.ctx(), bob, rid, 1_000)
		s.Require().NoError(err)

		_, err = s.service.ClaimExpiredRefund(s.ctxAt(10_000*time.Hour), bob, rid)
		s.ErrorIs(err, ErrNotExpired)
	})

	s.Run("non-contributor has nothing to claim", func() {
		rid := s.create(100_000, expiry, false)
		_, err := s.service.Contribute(s.ctx(), bob, rid, 1_000)
		s.Require().NoError(err)

		_, err = s.service.ClaimExpiredRefund(s.ctxAt(24*time.Hour), carol, rid)
		s.ErrorIs(err, ErrNoContribution)
	})

	s.Run("double claim fails", func() {
		rid := s.create(100_000, expiry, false)
		_, err := s.service.Contribute(s.ctx(), bob, rid, 1_000)
		s.Require().NoError(err)

		_, err = s.service.ClaimExpiredRefund(s.ctxAt(24*time.Hour), bob, rid)
		s.Require().NoError(err)
		_, err = s.service.ClaimExpiredRefund(s.ctxAt(24*time.Hour), bob, rid)
		s.ErrorIs(err, ErrNoContribution)
	})

	s.Run("released remittance is not claimable", func() {
		rid := s.create(10_000, expiry, false)
		_, err := s.service.Contribute(s.ctx(), bob, rid, 10_000)
		s.Require().NoError(err)
		_, err = s.service.Release(s.ctx(), rita, rid)
		s.Require().NoError(err)

		_, err = s.service.ClaimExpiredRefund(s.ctxAt(24*time.Hour), bob, rid)
		s.ErrorIs(err, ErrNotActive)
	})

	s.Run("emits expiry event exactly once", func() {
		rid := s.create(100_000, expiry, false)
		_, err := s.service.Contribute(s.ctx(), bob, rid, 2_000)
		s.Require().NoError(err)
		_, err = s.service.Contribute(s.ctx(), carol, rid, 3_000)
		s.Require().NoError(err)

		_, err = s.service.ClaimExpiredRefund(s.ctxAt(24*time.Hour), bob, rid)
		s.Require().NoError(err)
		_, err = s.service.ClaimExpiredRefund(s.ctxAt(24*time.Hour), carol, rid)
		s.Require().NoError(err)

		events, err := s.audit.ListByRemittance(s.ctx(), rid)
		s.NoError(err)
		expired := 0
		for _, e := range events {
			if e.Kind == audit.EventRemittanceExpired {
				expired++
			}
		}
		s.Equal(1, expired)
	})
}

// =============================================================================
// Query Tests
// =============================================================================

func (s *EscrowServiceSuite) TestQueries() {
	s.Run("lists by creator and recipient", func() {
		first := s.create(10_000, time.Time{}, false)
		second := s.create(20_000, time.Time{}, false)

		created, err := s.service.ListByCreator(s.ctx(), alice)
		s.NoError(err)
		s.Equal([]id.RemittanceID{first, second}, created)

		received, err := s.service.ListByRecipient(s.ctx(), rita)
		s.NoError(err)
		s.Equal([]id.RemittanceID{first, second}, received)

		none, err := s.service.ListByCreator(s.ctx(), bob)
		s.NoError(err)
		s.Empty(none)
	})

	s.Run("get unknown remittance fails", func() {
		_, err := s.service.Get(s.ctx(), id.RemittanceID(404))
		s.ErrorIs(err, ErrRemittanceNotFound)
	})

	s.Run("view is a detached snapshot", func() {
		rid := s.create(10_000, time.Time{}, false)
		_, err := s.service.Contribute(s.ctx(), bob, rid, 1_000)
		s.Require().NoError(err)

		view, err := s.service.Get(s.ctx(), rid)
		s.Require().NoError(err)
		view.Contributors[0] = "tampered"

		fresh, err := s.service.Get(s.ctx(), rid)
		s.NoError(err)
		s.Equal([]id.AccountID{bob}, fresh.Contributors)
	})

	s.Run("fee configuration reflects admin changes", func() {
		cfg := s.service.FeeConfiguration(s.ctx())
		s.Equal(collector, cfg.Collector)
		s.Equal(uint32(50), cfg.BasisPoints)
		s.True(s.service.AutoReleaseEnabled(s.ctx()))
	})
}

// =============================================================================
// Admin Tests
// =============================================================================

func (s *EscrowServiceSuite) TestAdmin() {
	s.Run("non-admin callers are rejected", func() {
		s.ErrorIs(s.service.SetPlatformFee(s.ctx(), alice, 10), ErrNotAuthorized)
		s.ErrorIs(s.service.SetFeeCollector(s.ctx(), alice, bob), ErrNotAuthorized)
		s.ErrorIs(s.service.SetAutoRelease(s.ctx(), alice, false), ErrNotAuthorized)
		s.ErrorIs(s.service.SetResolver(s.ctx(), alice, s.resolver), ErrNotAuthorized)
		s.ErrorIs(s.service.SetComplianceModule(s.ctx(), alice, compliance.AsModule(s.compliance, ledger)), ErrNotAuthorized)
	})

	s.Run("fee above cap is rejected", func() {
		err := s.service.SetPlatformFee(s.ctx(), admin, MaxFeeBasisPoints+1)
		s.ErrorIs(err, ErrInvalidFee)
	})

	s.Run("fee change applies to new remittances only", func() {
		before := s.create(10_000, time.Time{}, false)

		s.Require().NoError(s.service.SetPlatformFee(s.ctx(), admin, 200))
		after := s.create(10_000, time.Time{}, false)

		beforeView, err := s.service.Get(s.ctx(), before)
		s.NoError(err)
		afterView, err := s.service.Get(s.ctx(), after)
		s.NoError(err)
		s.Equal(uint32(50), beforeView.FeeBasisPoints)
		s.Equal(uint32(200), afterView.FeeBasisPoints)

		s.Require().NoError(s.service.SetPlatformFee(s.ctx(), admin, 50))
	})

	s.Run("fee collector change redirects future releases", func() {
		vault := id.AccountID("treasury")
		s.Require().NoError(s.service.SetFeeCollector(s.ctx(), admin, vault))

		rid := s.create(10_000, time.Time{}, false)
		_, err := s.service.Contribute(s.ctx(), bob, rid, 10_000)
		s.Require().NoError(err)
		_, err = s.service.Release(s.ctx(), rita, rid)
		s.Require().NoError(err)

		s.Equal(uint64(50), s.gateway.Balance(vault))

		s.Require().NoError(s.service.SetFeeCollector(s.ctx(), admin, collector))
	})

	s.Run("nil compliance module is rejected", func() {
		err := s.service.SetComplianceModule(s.ctx(), admin, nil)
		s.Error(err)
	})
}

// =============================================================================
// Conservation Property
// =============================================================================

func (s *EscrowServiceSuite) TestValueConservation() {
	initial := s.totalValue()

	funded := s.create(50_000, time.Time{}, true)
	cancelled := s.create(80_000, time.Time{}, false)
	expiring := s.create(90_000, s.now.Add(24*time.Hour), false)

	_, err := s.service.Contribute(s.ctx(), bob, funded, 50_000)
	s.Require().NoError(err)
	_, err = s.service.Contribute(s.ctx(), carol, cancelled, 10_000)
	s.Require().NoError(err)
	_, err = s.service.Contribute(s.ctx(), bob, expiring, 20_000)
	s.Require().NoError(err)

	_, err = s.service.Cancel(s.ctx(), alice, cancelled)
	s.Require().NoError(err)
	_, err = s.service.ClaimExpiredRefund(s.ctxAt(24*time.Hour), bob, expiring)
	s.Require().NoError(err)

	s.Equal(initial, s.totalValue())
	s.Equal(uint64(0), s.gateway.Custody())
}

func (s *EscrowServiceSuite) TestSplitFee() {
	cases := []struct {
		amount uint64
		bps    uint32
		fee    uint64
	}{
		{10_000, 50, 50},
		{10_000, 0, 0},
		{1, 500, 0},
		{199, 500, 9},
		{100_000, 500, 5_000},
		{^uint64(0), 500, ^uint64(0) / 10_000 * 500 + (^uint64(0)%10_000)*500/10_000},
	}
	for _, tc := range cases {
		payout, fee := splitFee(tc.amount, tc.bps)
		s.Equal(tc.fee, fee, "fee for %d at %d bps", tc.amount, tc.bps)
		s.Equal(tc.amount, payout+fee, "conservation for %d", tc.amount)
	}
}
