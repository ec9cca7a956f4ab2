package http

import (
	"context"
	"log/slog"

	"github.com/example/salon-booking/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// handlerLogger prefers the request logger installed by RequestLogger, which
// already carries request_id, and adds the signed-in user when known.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = defaultLogger(fallback)
		if id := RequestIDFromContext(ctx); id != "" {
			logger = logger.With("request_id", id)
		}
	}

	pairs := []any{"handler", handlerName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if principal, ok := PrincipalFromContext(ctx); ok {
		pairs = append(pairs, "user_id", principal.UserID)
	}
	pairs = append(pairs, attrs...)
	return logging.WithTrace(ctx, logger.With(pairs...))
}
