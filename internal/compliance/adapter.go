package compliance

import (
	"context"

	id "remitpool/pkg/domain"
)

// Module adapts Service to the two-method port the escrow ledger consumes,
// binding the ledger's principal as the authorized usage recorder so the
// ledger never has to carry its own identity around.
type Module struct {
	svc    *Service
	caller id.AccountID
}

// AsModule binds the given principal to the service.
func AsModule(svc *Service, caller id.AccountID) *Module {
	return &Module{svc: svc, caller: caller}
}

func (m *Module) IsCompliant(ctx context.Context, sender, recipient id.AccountID, amount uint64) (bool, error) {
	return m.svc.IsCompliant(ctx, sender, recipient, amount)
}

func (m *Module) RecordUsage(ctx context.Context, sender id.AccountID, amount uint64) error {
	return m.svc.RecordUsage(ctx, m.caller, sender, amount)
}
