package audit

import (
	"context"
	"log/slog"
)

// Sink receives events after they have been persisted. Sinks must tolerate
// at-least-once delivery.
type Sink interface {
	Handle(ctx context.Context, event Event) error
}

// Worker fans persisted events out to sinks. It keeps background processing
// testable without wiring queue implementations into services.
type Worker struct {
	inbox  <-chan Event
	sinks  []Sink
	logger *slog.Logger
}

func NewWorker(inbox <-chan Event, logger *slog.Logger, sinks ...Sink) *Worker {
	return &Worker{inbox: inbox, sinks: sinks, logger: logger}
}

// Run consumes events until the context is cancelled. Sink failures are
// logged and skipped; the event log remains the source of truth.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			for _, sink := range w.sinks {
				if err := sink.Handle(ctx, event); err != nil {
					w.logger.ErrorContext(ctx, "audit sink failed",
						"action", event.Action,
						"event_id", event.ID,
						"error", err,
					)
				}
			}
		}
	}
}
