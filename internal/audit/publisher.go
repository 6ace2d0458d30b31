package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "pledger/pkg/domain"
)

// Store persists events append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByActor(ctx context.Context, actor id.Identity) ([]Event, error)
}

// Publisher captures structured action events. Emission is best-effort from
// the caller's perspective: ledger mutations never roll back because an
// event sink is down.
type Publisher struct {
	store Store
	inbox chan Event
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{
		store: store,
		inbox: make(chan Event, 256),
	}
}

// Emit stamps and persists an event, then hands it to the worker inbox for
// sink fan-out. A full inbox drops the fan-out, not the persisted record.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	select {
	case p.inbox <- event:
	default:
	}
	return nil
}

// Inbox exposes the fan-out channel for the worker.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}

// List returns the events emitted by an actor, oldest first.
func (p *Publisher) List(ctx context.Context, actor id.Identity) ([]Event, error) {
	return p.store.ListByActor(ctx, actor)
}
