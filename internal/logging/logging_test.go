package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo, "salon-booking", "1.2.3")

	logger.Debug("hidden")
	assert.Zero(t, buf.Len())

	logger.Info("booking created", "booking_id", "bk-1")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "salon-booking", entry["service_name"])
	assert.Equal(t, "1.2.3", entry["service_version"])
	assert.Equal(t, "bk-1", entry["booking_id"])
}

func TestContextRoundTrip(t *testing.T) {
	logger := New(nil, slog.LevelInfo, "", "")
	ctx := ContextWithLogger(context.Background(), logger)

	assert.Same(t, logger, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))
	assert.Equal(t, context.Background(), ContextWithLogger(context.Background(), nil))
}

func TestWithTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo, "", "")

	assert.Same(t, logger, WithTrace(context.Background(), logger))

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	WithTrace(ctx, logger).Info("webhook received")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
}
