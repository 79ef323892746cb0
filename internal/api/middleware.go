package api

import (
	"context"
	"crypto/subtle"
	"net/http"

	"audix/internal/constants"
	"audix/internal/session"
)

type contextKey string

const flatIDKey contextKey = "flatID"

// RequireSession gates /api/live, /api/report, and both WebSocket upgrades:
// a valid session cookie is required, and the resolved flat_id is attached
// to the request context. /app is not behind it; StaticHandler.App checks
// the session itself and redirects instead of returning 401.
func RequireSession(sessions *session.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			flatID, err := sessions.Resolve(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, constants.ErrCodeUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), flatIDKey, flatID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FlatIDFromContext returns the session-bound flat_id attached by
// RequireSession.
func FlatIDFromContext(r *http.Request) string {
	if v := r.Context().Value(flatIDKey); v != nil {
		if flatID, ok := v.(string); ok {
			return flatID
		}
	}
	return ""
}

// RequireLiveToken gates /api/internal/live-snapshot: a shared secret in the
// X-Audix-Live-Token header, constant-time compared.
func RequireLiveToken(token string) func(http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get("X-Audix-Live-Token"))
			if len(got) != len(expected) || subtle.ConstantTimeCompare(got, expected) != 1 {
				writeError(w, http.StatusUnauthorized, constants.ErrCodeUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
