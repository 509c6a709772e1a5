package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp, err := NewTracerProvider(TracingConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, tp)

	ctx, span := tp.StartSpan(context.Background(), SpanWorkflowRun,
		attribute.String(AttrTaskID, "task_123"))
	assert.NotNil(t, ctx)
	require.NotNil(t, span)
	span.End()

	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestNewTracerProvider_UnsupportedExporter(t *testing.T) {
	_, err := NewTracerProvider(TracingConfig{
		Enabled:  true,
		Exporter: "statsd",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported exporter")
}

func TestNewTracerProvider_Zipkin(t *testing.T) {
	// The zipkin exporter is lazy; creation must succeed without a
	// collector listening.
	tp, err := NewTracerProvider(TracingConfig{
		Enabled:        true,
		Exporter:       "zipkin",
		SampleRate:     0.5,
		ServiceName:    "rex-test",
		ServiceVersion: "0.1.0",
	})
	require.NoError(t, err)
	require.NotNil(t, tp)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestTracerProvider_NilReceiver(t *testing.T) {
	var tp *TracerProvider

	ctx, span := tp.StartSpan(context.Background(), SpanInvocation)
	assert.NotNil(t, ctx)
	require.NotNil(t, span)
	span.End()

	assert.NoError(t, tp.Shutdown(context.Background()))
}
