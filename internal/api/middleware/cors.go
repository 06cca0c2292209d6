package middleware

import (
	"net/http"
	"strings"
)

// CORS answers preflight requests and sets the response headers for the
// configured origins. An empty allowlist disables cross-origin access.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	allowAll := false
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				_, ok := allowed[origin]
				if ok || allowAll {
					h := w.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Set("Access-Control-Allow-Credentials", "true")
					h.Set("Access-Control-Expose-Headers", "Authorization, X-Request-Id")
					h.Add("Vary", "Origin")

					if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
						h.Set("Access-Control-Allow-Methods", strings.Join([]string{
							http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
						}, ", "))
						h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
						h.Set("Access-Control-Max-Age", "300")
						w.WriteHeader(http.StatusNoContent)
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
