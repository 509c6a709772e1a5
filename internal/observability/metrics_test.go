package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsCollector_Disabled(t *testing.T) {
	collector, err := NewMetricsCollector(false)
	require.NoError(t, err)
	require.NotNil(t, collector)

	// A disabled collector must absorb every record call.
	ctx := context.Background()
	collector.RecordInvocation(ctx, "generator_v1", OutcomeOK, 2*time.Second, 120, 45)
	collector.RecordVerdict(ctx, "VALID")
	collector.RecordWorkflowRun(ctx, "VALID", 2, 5*time.Second)
	collector.RecordCacheLookup(ctx, true)
	collector.TaskStarted(ctx)
	collector.TaskFinished(ctx)
}

func TestMetricsCollector_NilReceiver(t *testing.T) {
	var collector *MetricsCollector

	ctx := context.Background()
	collector.RecordInvocation(ctx, "validator_v1", OutcomeTimeout, time.Second, 0, 0)
	collector.RecordVerdict(ctx, "INVALID")
	collector.RecordWorkflowRun(ctx, "ERROR", 1, time.Second)
	collector.RecordCacheLookup(ctx, false)
	collector.TaskStarted(ctx)
	collector.TaskFinished(ctx)
}

func TestNewMetricsCollector_Enabled(t *testing.T) {
	collector, err := NewMetricsCollector(true)
	require.NoError(t, err)
	require.NotNil(t, collector)

	assert.NotNil(t, collector.invocations)
	assert.NotNil(t, collector.invocationLatency)
	assert.NotNil(t, collector.workflowRuns)
	assert.NotNil(t, collector.verdicts)
	assert.NotNil(t, collector.cacheLookups)
	assert.NotNil(t, collector.tasksActive)

	// Recording must not block or panic without a scraper attached.
	ctx := context.Background()
	collector.RecordInvocation(ctx, "generator_v1", OutcomeOK, 1500*time.Millisecond, 900, 210)
	collector.RecordVerdict(ctx, "VALID")
	collector.RecordWorkflowRun(ctx, "VALID", 1, 3*time.Second)
	collector.RecordCacheLookup(ctx, false)
	collector.TaskStarted(ctx)
	collector.TaskFinished(ctx)
}
