// Package sse implements the per-user Server-Sent-Events fan-out. The hub
// is the only in-memory mutable singleton in the service: a concurrent map
// of username to copy-on-write emitter lists, so iteration stays safe while
// concurrent evictions replace the slices.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hszk-dev/clipforge/internal/infrastructure/metrics"
)

// Reason records why an emitter left the registry.
type Reason string

const (
	ReasonCompleted Reason = "completed"
	ReasonTimedOut  Reason = "timed-out"
	ReasonErrored   Reason = "errored"
)

// Event is one SSE frame. A nil Name means a comment (keep-alive) frame.
type Event struct {
	Name string
	Data []byte
}

// Frame renders the wire format of the event.
func (e Event) Frame() []byte {
	if e.Name == "" {
		return fmt.Appendf(nil, ": %s\n\n", e.Data)
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", e.Name, e.Data)
}

// emitterBuffer bounds how many undelivered frames a client may lag behind
// before it is considered broken and evicted.
const emitterBuffer = 16

// Emitter is a live subscriber handle. The HTTP handler drains Events and
// writes frames to the response; the hub owns closing the channel.
type Emitter struct {
	username string
	events   chan Event
	timeout  time.Duration

	mu     sync.Mutex
	closed bool
}

// Events returns the frame channel. It is closed when the emitter is
// removed from the registry for any reason.
func (e *Emitter) Events() <-chan Event {
	return e.events
}

// Timeout returns the soft lifetime of the emitter.
func (e *Emitter) Timeout() time.Duration {
	return e.timeout
}

// send attempts a non-blocking delivery. ok is false when the buffer is
// full (stalled client); sends to an already-closed emitter are no-ops.
func (e *Emitter) send(ev Event) (ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return true
	}
	select {
	case e.events <- ev:
		return true
	default:
		return false
	}
}

func (e *Emitter) close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.events)
	}
}

// Config holds hub tuning.
type Config struct {
	// EmitterTimeout is the soft lifetime of a single emitter.
	EmitterTimeout time.Duration
	// HeartbeatInterval is the keep-alive broadcast period.
	HeartbeatInterval time.Duration
}

// Hub is the per-user emitter registry.
type Hub struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.RWMutex
	emitters map[string][]*Emitter
}

// NewHub creates an empty hub.
func NewHub(cfg Config, logger *slog.Logger) *Hub {
	return &Hub{
		cfg:      cfg,
		logger:   logger,
		emitters: make(map[string][]*Emitter),
	}
}

// Subscribe registers a new emitter for the user.
func (h *Hub) Subscribe(username string) *Emitter {
	em := &Emitter{
		username: username,
		events:   make(chan Event, emitterBuffer),
		timeout:  h.cfg.EmitterTimeout,
	}

	h.mu.Lock()
	current := h.emitters[username]
	next := make([]*Emitter, len(current), len(current)+1)
	copy(next, current)
	h.emitters[username] = append(next, em)
	h.mu.Unlock()

	metrics.SSEActiveEmitters.Inc()
	h.logger.Info("sse emitter registered", slog.String("username", username))
	return em
}

// Remove takes the emitter out of the registry and closes it. Safe to call
// more than once; only the first call for a given handle has effect.
func (h *Hub) Remove(em *Emitter, reason Reason) {
	h.mu.Lock()
	current := h.emitters[em.username]
	removed := false
	next := make([]*Emitter, 0, len(current))
	for _, e := range current {
		if e == em {
			removed = true
			continue
		}
		next = append(next, e)
	}
	if len(next) == 0 {
		delete(h.emitters, em.username)
	} else {
		h.emitters[em.username] = next
	}
	h.mu.Unlock()

	if removed {
		em.close()
		metrics.SSEActiveEmitters.Dec()
		h.logger.Info("sse emitter removed",
			slog.String("username", em.username),
			slog.String("reason", string(reason)),
		)
	}
}

// SendToUser delivers a named JSON event to every live emitter of the user.
// An emitter that cannot accept the frame (client too far behind) is evicted
// and the send continues with the rest. No emitters is a silent no-op.
func (h *Hub) SendToUser(username, eventName string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("sse payload marshal failed",
			slog.String("username", username),
			slog.String("event", eventName),
			slog.String("error", err.Error()),
		)
		return
	}

	for _, em := range h.snapshot(username) {
		h.deliver(em, Event{Name: eventName, Data: data})
	}
	metrics.SSEEventsSentTotal.WithLabelValues(eventName).Inc()
}

// Heartbeat broadcasts a keep-alive comment to every live emitter.
// Tolerates an empty registry.
func (h *Hub) Heartbeat() {
	ev := Event{Data: []byte("keep-alive")}
	for _, em := range h.snapshotAll() {
		h.deliver(em, ev)
	}
	metrics.SSEEventsSentTotal.WithLabelValues(metrics.SSEEventHeartbeat).Inc()
}

// Run drives the heartbeat until ctx is cancelled, then shuts the hub down.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.Shutdown()
			return
		case <-ticker.C:
			h.Heartbeat()
		}
	}
}

// Shutdown completes every emitter and clears the registry.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	all := h.emitters
	h.emitters = make(map[string][]*Emitter)
	h.mu.Unlock()

	for _, ems := range all {
		for _, em := range ems {
			em.close()
			metrics.SSEActiveEmitters.Dec()
		}
	}
}

// EmitterCount returns the number of live emitters for the user.
func (h *Hub) EmitterCount(username string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.emitters[username])
}

func (h *Hub) deliver(em *Emitter, ev Event) {
	if !em.send(ev) {
		// Broken or stalled client: evict and move on.
		h.Remove(em, ReasonErrored)
	}
}

func (h *Hub) snapshot(username string) []*Emitter {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.emitters[username]
}

func (h *Hub) snapshotAll() []*Emitter {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var all []*Emitter
	for _, ems := range h.emitters {
		all = append(all, ems...)
	}
	return all
}
