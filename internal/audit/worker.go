package audit

import (
	"context"
	"time"
)

// Worker consumes audit events from a channel and persists them. It keeps
// background processing off the request path.
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

// ChannelPublisher bridges Emit calls onto a worker inbox. Events are dropped
// when the inbox is full rather than blocking a registry mutation.
type ChannelPublisher struct {
	inbox chan<- Event
}

func NewChannelPublisher(inbox chan<- Event) *ChannelPublisher {
	return &ChannelPublisher{inbox: inbox}
}

// Emit stamps the event and hands it to the worker. The timestamp is set
// here, before the enqueue attempt, so delivered and dropped events carry the
// same emission time semantics.
func (p *ChannelPublisher) Emit(_ context.Context, base Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
	select {
	case p.inbox <- base:
	default:
	}
	return nil
}
