package worker

import (
	"context"
	"log/slog"

	audit "organchain/pkg/platform/audit"
)

// Worker consumes audit events from a channel and persists them. Run returns
// once the inbox is closed and drained.
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

// Run appends every received event. Append failures are logged and do not
// stop the worker; an audit sink outage must not block donor actions.
func (w *Worker) Run(ctx context.Context) {
	for event := range w.inbox {
		if err := w.store.Append(ctx, event); err != nil {
			w.logger.WarnContext(ctx, "audit append failed",
				"action", event.Action,
				"identity", event.Identity.Short(),
				"error", err,
			)
		}
	}
}
