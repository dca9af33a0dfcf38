package audit

import (
	"context"
	"errors"

	id "remitpool/pkg/domain"
	"remitpool/pkg/requestcontext"
)

// Store persists events. Implementations must be append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByRemittance(ctx context.Context, remittance id.RemittanceID) ([]Event, error)
}

// Publisher captures structured domain events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit stamps the event with request-scoped metadata and appends it.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	return p.store.Append(ctx, stamp(ctx, event))
}

// List returns events recorded against a remittance, oldest first.
func (p *Publisher) List(ctx context.Context, remittance id.RemittanceID) ([]Event, error) {
	return p.store.ListByRemittance(ctx, remittance)
}

// ErrInboxFull is returned when an async emit would block. Callers treat
// emission failures as log-and-continue, so a burst sheds events instead of
// stalling ledger operations.
var ErrInboxFull = errors.New("audit inbox full")

// AsyncPublisher hands events to the worker's inbox without blocking the
// caller. Pair it with a Worker draining the same channel.
type AsyncPublisher struct {
	inbox chan<- Event
}

func NewAsyncPublisher(inbox chan<- Event) *AsyncPublisher {
	return &AsyncPublisher{inbox: inbox}
}

// Emit stamps the event and enqueues it, dropping with ErrInboxFull when the
// worker has fallen behind.
func (p *AsyncPublisher) Emit(ctx context.Context, event Event) error {
	select {
	case p.inbox <- stamp(ctx, event):
		return nil
	default:
		return ErrInboxFull
	}
}

// stamp fills request-scoped metadata the emitter did not set.
func stamp(ctx context.Context, event Event) Event {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.UserAgent == "" {
		event.UserAgent = requestcontext.UserAgent(ctx)
	}
	return event
}
