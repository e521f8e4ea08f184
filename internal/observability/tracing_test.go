package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInitTracingWithoutEndpointIsNoop(t *testing.T) {
	tp, err := InitTracing(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, tp.Tracer())
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestStartAndEndSpan(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test", attribute.String("k", "v"))
	require.NotNil(t, ctx)
	EndSpan(span, errors.New("boom"))

	_, span = StartSpan(context.Background(), "ok")
	EndSpan(span, nil)
}

func TestDefaultTracingConfig(t *testing.T) {
	cfg := DefaultTracingConfig()
	assert.Equal(t, "vhdl-make", cfg.ServiceName)
	assert.Empty(t, cfg.OTLPEndpoint)
	assert.Equal(t, 1.0, cfg.SampleRate)
}
