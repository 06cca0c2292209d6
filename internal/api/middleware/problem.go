package middleware

import (
	"encoding/json"
	"net/http"
	"time"
)

// writeProblem answers with an RFC 7807 problem body. Kept local to the
// middleware package to avoid an import cycle with the handler package,
// which carries the full-featured variant.
func writeProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":      "about:blank",
		"title":     http.StatusText(status),
		"status":    status,
		"detail":    detail,
		"instance":  r.URL.Path,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
