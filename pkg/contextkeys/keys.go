// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//
//	import "github.com/platinummonkey/authgate/pkg/contextkeys"
//	ctx = contextkeys.WithSessionToken(ctx, token)
//	token, ok := contextkeys.SessionToken(ctx)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// SessionTokenKey contains the resolved session token string
	// Set by: middleware.SessionMiddleware (pkg/middleware/session.go)
	// Required by: Protected API endpoints, logout
	// Type: string
	SessionTokenKey Key = "session_token"

	// UserIDKey contains the authenticated user's numeric id
	// Set by: middleware.SessionMiddleware after session resolution
	// Used by: Protected endpoints, TOTP flows, password reset
	// Type: int64
	UserIDKey Key = "user_id"
)

// WithSessionToken adds the session token to the context
func WithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, SessionTokenKey, token)
}

// SessionToken retrieves the session token from the context
func SessionToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(SessionTokenKey).(string)
	return token, ok && token != ""
}

// WithUserID adds the authenticated user id to the context
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// UserID retrieves the authenticated user id from the context
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(UserIDKey).(int64)
	return id, ok && id != 0
}
