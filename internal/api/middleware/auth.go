package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hszk-dev/clipforge/internal/auth"
)

// Authenticator verifies a bearer token bound to the fingerprint cookie.
// *auth.TokenManager satisfies it.
type Authenticator interface {
	VerifyWithFingerprint(tokenString, cookieValue string) (*auth.Claims, error)
}

// Auth rejects requests without a valid fingerprinted bearer token and puts
// the authenticated username into the request context.
func Auth(verifier Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w, r, "Missing bearer token.")
				return
			}

			cookie, err := r.Cookie(auth.FingerprintCookieName)
			if err != nil {
				unauthorized(w, r, "Missing fingerprint cookie.")
				return
			}

			claims, err := verifier.VerifyWithFingerprint(token, cookie.Value)
			if err != nil {
				unauthorized(w, r, "Invalid or expired token.")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), claims.Subject)))
		})
	}
}

// WithPrincipal returns a context carrying the authenticated username.
func WithPrincipal(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, principalKey, username)
}

// GetPrincipal returns the authenticated username, or "" outside an
// authenticated request.
func GetPrincipal(ctx context.Context) string {
	if username, ok := ctx.Value(principalKey).(string); ok {
		return username
	}
	return ""
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return header[len(prefix):]
}

func unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="clipforge"`)
	writeProblem(w, r, http.StatusUnauthorized, detail)
}
