package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Recoverer turns a handler panic into a logged 500 problem response, so a
// single bad request cannot take the process down.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						slog.String("request_id", GetRequestID(r.Context())),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.Any("panic", rec),
						slog.String("stack", string(debug.Stack())),
					)

					// Headers may already be out if the handler panicked
					// mid-stream; WriteHeader then logs a superfluous call
					// and the client sees a truncated body, which is the
					// best that can be done.
					writeProblem(w, r, http.StatusInternalServerError, "An unexpected error occurred.")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
