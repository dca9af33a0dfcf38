package escrow

import (
	"context"
	"sync"

	id "remitpool/pkg/domain"
	"remitpool/pkg/platform/sentinel"
)

// InMemoryGateway is a ledger-backed value-transfer venue for tests and
// single-process deployments. It tracks external account balances and the
// escrow custody pool.
type InMemoryGateway struct {
	mu       sync.Mutex
	balances map[id.AccountID]uint64
	custody  uint64
}

func NewInMemoryGateway() *InMemoryGateway {
	return &InMemoryGateway{balances: make(map[id.AccountID]uint64)}
}

// Credit funds an external account. Test and bootstrap helper.
func (g *InMemoryGateway) Credit(account id.AccountID, amount uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.balances[account] += amount
}

// Balance returns an account's external balance.
func (g *InMemoryGateway) Balance(account id.AccountID) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.balances[account]
}

// Custody returns the value currently held in escrow.
func (g *InMemoryGateway) Custody() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.custody
}

func (g *InMemoryGateway) TransferIn(_ context.Context, from id.AccountID, amount uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.balances[from] < amount {
		return sentinel.ErrInsufficientFunds
	}
	g.balances[from] -= amount
	g.custody += amount
	return nil
}

func (g *InMemoryGateway) TransferOut(_ context.Context, to id.AccountID, amount uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.custody < amount {
		return sentinel.ErrInsufficientFunds
	}
	g.custody -= amount
	g.balances[to] += amount
	return nil
}

func (g *InMemoryGateway) TransferOutBatch(_ context.Context, transfers []Transfer) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var total uint64
	for _, t := range transfers {
		total += t.Amount
	}
	// Checked up front so the batch is all-or-nothing.
	if g.custody < total {
		return sentinel.ErrInsufficientFunds
	}
	for _, t := range transfers {
		g.custody -= t.Amount
		g.balances[t.To] += t.Amount
	}
	return nil
}
