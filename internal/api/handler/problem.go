package handler

import (
	"encoding/json"
	"net/http"
	"time"
)

// Problem is an RFC 7807 error body.
type Problem struct {
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Status    int               `json:"status"`
	Detail    string            `json:"detail,omitempty"`
	Instance  string            `json:"instance"`
	Timestamp string            `json:"timestamp"`
	Errors    map[string]string `json:"errors,omitempty"`
}

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
		}
	}
}

// Error writes an RFC 7807 problem response.
func Error(w http.ResponseWriter, r *http.Request, status int, detail string) {
	ErrorWithFields(w, r, status, detail, nil)
}

// ErrorWithFields writes a problem response carrying per-field validation
// messages.
func ErrorWithFields(w http.ResponseWriter, r *http.Request, status int, detail string, fields map[string]string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Type:      "about:blank",
		Title:     http.StatusText(status),
		Status:    status,
		Detail:    detail,
		Instance:  r.URL.Path,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Errors:    fields,
	})
}
