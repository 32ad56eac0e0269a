package http

import (
	"context"
	"log/slog"

	"github.com/sevenpast/campcore/internal/logging"
)

type contextKey string

const actorIDContextKey contextKey = "actor_id"

// ContextWithActorID returns a derived context carrying the acting staff identifier.
func ContextWithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorIDContextKey, actorID)
}

// ActorIDFromContext extracts the acting staff identifier if one was supplied.
func ActorIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(actorIDContextKey).(string)
	return id, ok && id != ""
}

// ContextWithLogger attaches a request scoped logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext returns the request scoped logger, or nil.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
