package logger

import (
	"context"
	"log/slog"
)

// loggerKey is unexported so only this package can place loggers in a
// context.
type loggerKey struct{}

// With derives a context whose logger carries the extra fields. Subsequent
// From calls on that context (and its children) see them.
func With(ctx context.Context, fields ...any) context.Context {
	return context.WithValue(ctx, loggerKey{}, From(ctx).With(fields...))
}

// From returns the context's logger, falling back to the process default.
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return LoggerWrapper()
}
