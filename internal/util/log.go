package util

import (
	"context"
	"log/slog"
)

type contextKey string

const loggerKey contextKey = "logger"

// FromContext returns the logger carried by ctx, or the package-level
// Logger if ctx carries none.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return Logger
}

// WithLogger attaches logger to ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// WithField attaches key/value to ctx's logger, so every subsequent
// FromContext(ctx) call carries it (used by the driver to scope a run's
// logs to the current schema and message type without threading a logger
// through every function signature).
func WithField(ctx context.Context, key string, value interface{}) context.Context {
	logger := FromContext(ctx).With(key, value)
	return WithLogger(ctx, logger)
}
