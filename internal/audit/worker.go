package audit

import "context"

// Worker consumes events from a channel and persists them, keeping event
// emission off the ledger's critical path. The inbox is a buffered channel
// owned by the caller; a full inbox drops the event rather than blocking a
// mutating ledger operation.
type Worker struct {
	store Store
	inbox <-chan Event
}

func NewWorker(store Store, inbox <-chan Event) *Worker {
	return &Worker{store: store, inbox: inbox}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				return err
			}
		}
	}
}
