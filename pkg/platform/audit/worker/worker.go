package worker

import (
	"context"
	"log/slog"

	audit "libris/pkg/platform/audit"
)

// Worker consumes audit events from a channel and persists them. Append
// failures are logged and skipped: audit delivery must never become a
// correctness dependency of the operations that emitted the events.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "failed to append audit event",
					"error", err,
					"action", string(event.Action),
				)
			}
		}
	}
}
