package logger

import (
	"context"
	"log/slog"
)

// contextKey is an unexported type so key collisions with other
// packages' context values are impossible.
type contextKey struct{}

var loggerKey = contextKey{}

// WithLogger returns a new context carrying the given logger. Handlers
// attach request-scoped loggers (trace IDs and the like) so downstream
// code logs with the same correlation attributes.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from the context, falling back to
// slog.Default when none was attached.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// FromContextOrDefault retrieves the logger from the context, falling
// back to the provided default. Components with their own component
// logger use this so untagged contexts still log with component
// attributes.
func FromContextOrDefault(ctx context.Context, def *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	if def != nil {
		return def
	}
	return slog.Default()
}
