package handler

import (
	"net/http"
	"time"
)

var startedAt = time.Now()

type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// Health answers liveness probes. Dependency readiness is deliberately not
// checked here; the process answering is the signal.
func Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: time.Since(startedAt).Round(time.Second).String(),
	})
}
