package obs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

func TestInitTracer_DisabledWithoutEndpoint(t *testing.T) {
	t.Parallel()

	shutdown, err := InitTracer(context.Background(), TracerConfig{ServiceName: "salon"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestServiceAttributes_Defaults(t *testing.T) {
	t.Parallel()

	attrs := serviceAttributes(TracerConfig{ServiceName: "salon"})
	require.Len(t, attrs, 3)
	assert.Equal(t, semconv.ServiceNameKey, attrs[0].Key)
	assert.Equal(t, "salon", attrs[0].Value.AsString())
	assert.Equal(t, "dev", attrs[1].Value.AsString())
	assert.Equal(t, "dev", attrs[2].Value.AsString())
}
