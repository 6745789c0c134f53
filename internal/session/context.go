package session

import "context"

type contextKey string

const (
	clientContextKey  contextKey = "hoitoportaali_client"
	sessionContextKey contextKey = "hoitoportaali_session"
)

func WithContext(ctx context.Context, clientID string, s *Session) context.Context {
	ctx = context.WithValue(ctx, clientContextKey, clientID)
	return context.WithValue(ctx, sessionContextKey, s)
}

// FromContext returns the restored session, or nil when the client is
// logged out.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionContextKey).(*Session)
	return s
}

func ClientFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(clientContextKey).(string)
	return id, ok && id != ""
}
