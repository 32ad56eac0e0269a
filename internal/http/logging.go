package http

import (
	"context"
	"log/slog"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// handlerLogger scopes the request logger, or fallback outside a request, to a
// handler operation. The acting staff member is attached when ActorFromHeader
// recorded one so every mutation log line names who made it.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := LoggerFromContext(ctx)
	if logger == nil {
		logger = defaultLogger(fallback)
	}

	pairs := make([]any, 0, 6+len(attrs))
	pairs = append(pairs, "handler", handlerName)
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if actorID, ok := ActorIDFromContext(ctx); ok {
		pairs = append(pairs, "actor_id", actorID)
	}
	return logger.With(append(pairs, attrs...)...)
}
