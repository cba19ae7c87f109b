package internal

import (
	"context"
	"time"
)

type ctxKey string

const (
	ContextUserKey   ctxKey = "userName"
	ContextClientKey ctxKey = "clientID"
)

func UserFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if user, ok := ctx.Value(ContextUserKey).(string); ok {
		return user
	}
	return ""
}

func ContextWithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, ContextUserKey, user)
}

// ClientIDFromContext returns the tenant scope of the request, or zero when
// the request is unscoped.
func ClientIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if clientID, ok := ctx.Value(ContextClientKey).(int64); ok {
		return clientID
	}
	return 0
}

func ContextWithClientID(ctx context.Context, clientID int64) context.Context {
	return context.WithValue(ctx, ContextClientKey, clientID)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
