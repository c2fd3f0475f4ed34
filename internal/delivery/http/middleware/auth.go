package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"invitegate/internal/delivery/http/helpers"
	"invitegate/internal/domain"
)

type contextKey string

const (
	userIDKey    contextKey = "userID"
	sessionIDKey contextKey = "sessionID"
)

// SetIdentity returns a context carrying the authenticated user and session IDs.
func SetIdentity(ctx context.Context, userID, sessionID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// UserIDFromContext returns the authenticated user ID from the context, if present.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

// SessionIDFromContext returns the session ID from the context, if present.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok
}

// SessionVerifier validates a bearer token against live sessions.
type SessionVerifier interface {
	VerifyToken(ctx context.Context, token string) (sessionID, userID string, err error)
}

// RequireAuth returns a wrapper that validates the Bearer token and sets the
// user and session IDs in the request context. If the token is missing,
// invalid, or its session has been signed out, it responds with 401 and does
// not call next.
func RequireAuth(verifier SessionVerifier, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "missing authorization header")
				return
			}
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) {
				helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "invalid authorization format")
				return
			}
			token := strings.TrimSpace(auth[len(prefix):])
			if token == "" {
				helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "missing token")
				return
			}
			sessionID, userID, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				if err != domain.ErrSessionNotFound {
					logger.DebugContext(r.Context(), "token rejected", "err", err)
				}
				helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "invalid or expired token")
				return
			}
			r = r.WithContext(SetIdentity(r.Context(), userID, sessionID))
			next(w, r)
		}
	}
}
