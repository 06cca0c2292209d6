// Package event carries in-process domain events from the transactional
// status updater to asynchronous listeners. Publishing happens strictly
// after the database commit; listeners run on the bus goroutine so a slow
// SSE socket never back-pressures a commit.
package event

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hszk-dev/clipforge/internal/domain/model"
)

// VideoStatusChanged is emitted once per committed status transition.
type VideoStatusChanged struct {
	VideoID  int64
	PublicID string
	Owner    string
	Status   model.Status
	Message  string
}

// Handler consumes a status-change event.
type Handler func(ctx context.Context, ev VideoStatusChanged)

const defaultBufferSize = 256

// Bus is a single-consumer dispatch loop over a buffered channel.
type Bus struct {
	ch chan VideoStatusChanged

	mu       sync.RWMutex
	handlers []Handler
}

// NewBus creates a bus with the default buffer.
func NewBus() *Bus {
	return &Bus{ch: make(chan VideoStatusChanged, defaultBufferSize)}
}

// Subscribe registers a handler. Must be called before Run.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish enqueues an event for dispatch. Call only after the transaction
// that produced the event has committed. A full buffer drops the event with
// a log line rather than blocking the caller.
func (b *Bus) Publish(ev VideoStatusChanged) {
	select {
	case b.ch <- ev:
	default:
		slog.Error("event bus full, dropping event",
			slog.String("public_id", ev.PublicID),
			slog.String("status", ev.Status.String()),
		)
	}
}

// Run dispatches events to all handlers until ctx is cancelled.
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-b.ch:
			b.mu.RLock()
			handlers := b.handlers
			b.mu.RUnlock()

			for _, h := range handlers {
				h(ctx, ev)
			}
		}
	}
}
