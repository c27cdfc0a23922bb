// Package middleware provides HTTP middleware for session handling.
package middleware

import (
	"net/http"

	"github.com/platinummonkey/authgate/pkg/contextkeys"
	"github.com/platinummonkey/authgate/pkg/httputil"
	"github.com/platinummonkey/authgate/pkg/observability"
	"github.com/platinummonkey/authgate/pkg/session"
)

// SessionMiddleware resolves the session cookie on every request and
// stashes the token and user id in the request context. Requests
// without a resolvable session pass through unauthenticated; store
// failures are logged and treated the same way, so a Redis outage
// degrades to "logged out" rather than a hard error on public routes.
type SessionMiddleware struct {
	sessions   *session.Manager
	cookieName string
	logger     *observability.Logger
}

// NewSessionMiddleware creates the session-resolving middleware
func NewSessionMiddleware(sessions *session.Manager, cookieName string, logger *observability.Logger) *SessionMiddleware {
	return &SessionMiddleware{
		sessions:   sessions,
		cookieName: cookieName,
		logger:     logger,
	}
}

// Resolve is the pass-through middleware for all routes
func (m *SessionMiddleware) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := httputil.SessionCookie(r, m.cookieName)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := contextkeys.WithSessionToken(r.Context(), token)

		userID, ok, err := m.sessions.Resolve(ctx, token)
		if err != nil {
			m.logger.WithField("request_id", observability.GetRequestID(ctx)).WithError(err).Error("session lookup failed")
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		if ok {
			ctx = contextkeys.WithUserID(ctx, userID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSession guards routes that need an authenticated caller
func RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := contextkeys.UserID(r.Context()); !ok {
			httputil.WriteUnauthorized(w, "not logged in")
			return
		}
		next(w, r)
	}
}
