package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/salon-booking/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// serviceLogger prefers the request-scoped logger and tags it with the
// service, operation and active trace.
func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = defaultLogger(base)
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	pairs = append(pairs, attrs...)
	return logging.WithTrace(ctx, logger.With(pairs...))
}

// bookingAttrs lists the fields worth correlating on for a booking. The
// customer email and message are left out.
func bookingAttrs(b Booking) []any {
	attrs := []any{
		"booking_id", b.ID,
		"channel", b.Channel,
		"payment_status", b.PaymentStatus,
	}
	if b.PaymentIntentID != "" {
		attrs = append(attrs, "payment_intent_id", b.PaymentIntentID)
	}
	return attrs
}

// ErrorKind maps errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, ErrSessionRevoked):
		return "session_revoked"
	}
	if kind := KindOf(err); kind != "" {
		return string(kind)
	}
	return "unexpected"
}
