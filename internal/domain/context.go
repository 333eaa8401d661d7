package domain

import "context"

// contextKey is a type for context keys to avoid collisions
type contextKey string

const sessionContextKey contextKey = "shopify_session"

// WithSession stores the caller's session in the context
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFromContext returns the session stored by WithSession, or nil
func SessionFromContext(ctx context.Context) *Session {
	session, _ := ctx.Value(sessionContextKey).(*Session)
	return session
}
