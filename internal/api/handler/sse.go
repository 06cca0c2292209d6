package handler

import (
	"net/http"
	"time"

	"github.com/hszk-dev/clipforge/internal/api/middleware"
	"github.com/hszk-dev/clipforge/internal/sse"
)

// SSEHandler streams per-user status events over Server-Sent Events.
type SSEHandler struct {
	hub *sse.Hub
}

// NewSSEHandler creates a new SSEHandler.
func NewSSEHandler(hub *sse.Hub) *SSEHandler {
	return &SSEHandler{hub: hub}
}

// Subscribe handles GET /api/sse/subscribe. The connection stays open
// until the client disconnects, a write fails, or the emitter lifetime runs
// out; the client is expected to reconnect after a timeout.
func (h *SSEHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		Error(w, r, http.StatusInternalServerError, "Streaming is not supported.")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	em := h.hub.Subscribe(middleware.GetPrincipal(r.Context()))

	lifetime := time.NewTimer(em.Timeout())
	defer lifetime.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.hub.Remove(em, sse.ReasonCompleted)
			return

		case <-lifetime.C:
			h.hub.Remove(em, sse.ReasonTimedOut)
			return

		case ev, open := <-em.Events():
			if !open {
				// Removed elsewhere (eviction or shutdown).
				return
			}
			if _, err := w.Write(ev.Frame()); err != nil {
				h.hub.Remove(em, sse.ReasonErrored)
				return
			}
			flusher.Flush()
		}
	}
}
