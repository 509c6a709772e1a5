package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Invocation outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeTimeout  = "timeout"
	OutcomeNotFound = "not_found"
)

// MetricsCollector manages all rex metrics. A disabled collector is a valid
// value whose record methods are no-ops, so callers never nil-check.
type MetricsCollector struct {
	meter metric.Meter

	// Invocation metrics
	invocations       metric.Int64Counter
	invocationLatency metric.Float64Histogram
	promptTokens      metric.Int64Counter
	resultTokens      metric.Int64Counter

	// Workflow metrics
	workflowRuns       metric.Int64Counter
	workflowIterations metric.Float64Histogram
	verdicts           metric.Int64Counter

	// Server metrics
	cacheLookups metric.Int64Counter
	tasksActive  metric.Int64UpDownCounter
}

// NewMetricsCollector builds the collector. When enabled it registers a
// Prometheus exporter with the default registry; the HTTP surface exposes
// it at /metrics.
func NewMetricsCollector(enabled bool) (*MetricsCollector, error) {
	if !enabled {
		return &MetricsCollector{}, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter("rex")

	invocations, err := meter.Int64Counter(
		"rex.invocations.total",
		metric.WithDescription("Total number of external tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create invocations counter: %w", err)
	}

	invocationLatency, err := meter.Float64Histogram(
		"rex.invocation.latency",
		metric.WithDescription("External tool invocation latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create invocation_latency histogram: %w", err)
	}

	promptTokens, err := meter.Int64Counter(
		"rex.invocation.tokens.prompt",
		metric.WithDescription("Estimated prompt tokens sent to the external tool"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create prompt_tokens counter: %w", err)
	}

	resultTokens, err := meter.Int64Counter(
		"rex.invocation.tokens.result",
		metric.WithDescription("Estimated tokens in extracted results"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create result_tokens counter: %w", err)
	}

	workflowRuns, err := meter.Int64Counter(
		"rex.workflow.runs.total",
		metric.WithDescription("Total number of generate/validate workflow runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create workflow_runs counter: %w", err)
	}

	workflowIterations, err := meter.Float64Histogram(
		"rex.workflow.iterations",
		metric.WithDescription("Iterations consumed per workflow run"),
		metric.WithUnit("{iteration}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create workflow_iterations histogram: %w", err)
	}

	verdicts, err := meter.Int64Counter(
		"rex.workflow.verdicts.total",
		metric.WithDescription("Validator verdicts by status"),
		metric.WithUnit("{verdict}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create verdicts counter: %w", err)
	}

	cacheLookups, err := meter.Int64Counter(
		"rex.cache.lookups.total",
		metric.WithDescription("Answer cache lookups by result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cache_lookups counter: %w", err)
	}

	tasksActive, err := meter.Int64UpDownCounter(
		"rex.tasks.active",
		metric.WithDescription("Number of tasks currently running"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create tasks_active gauge: %w", err)
	}

	return &MetricsCollector{
		meter:              meter,
		invocations:        invocations,
		invocationLatency:  invocationLatency,
		promptTokens:       promptTokens,
		resultTokens:       resultTokens,
		workflowRuns:       workflowRuns,
		workflowIterations: workflowIterations,
		verdicts:           verdicts,
		cacheLookups:       cacheLookups,
		tasksActive:        tasksActive,
	}, nil
}

// RecordInvocation records one external tool invocation.
func (m *MetricsCollector) RecordInvocation(ctx context.Context, node, outcome string, latency time.Duration, promptTokens, resultTokens int) {
	if m == nil || m.invocations == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("node", node),
		attribute.String("outcome", outcome),
	}

	m.invocations.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.invocationLatency.Record(ctx, latency.Seconds(), metric.WithAttributes(attrs...))
	m.promptTokens.Add(ctx, int64(promptTokens), metric.WithAttributes(attribute.String("node", node)))
	m.resultTokens.Add(ctx, int64(resultTokens), metric.WithAttributes(attribute.String("node", node)))
}

// RecordVerdict records one validator verdict.
func (m *MetricsCollector) RecordVerdict(ctx context.Context, status string) {
	if m == nil || m.verdicts == nil {
		return
	}
	m.verdicts.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordWorkflowRun records a completed workflow run.
func (m *MetricsCollector) RecordWorkflowRun(ctx context.Context, status string, iterations int, elapsed time.Duration) {
	if m == nil || m.workflowRuns == nil {
		return
	}

	attrs := []attribute.KeyValue{attribute.String("status", status)}
	m.workflowRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.workflowIterations.Record(ctx, float64(iterations), metric.WithAttributes(attrs...))
}

// RecordCacheLookup records an answer cache hit or miss.
func (m *MetricsCollector) RecordCacheLookup(ctx context.Context, hit bool) {
	if m == nil || m.cacheLookups == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// TaskStarted increments the active task gauge.
func (m *MetricsCollector) TaskStarted(ctx context.Context) {
	if m == nil || m.tasksActive == nil {
		return
	}
	m.tasksActive.Add(ctx, 1)
}

// TaskFinished decrements the active task gauge.
func (m *MetricsCollector) TaskFinished(ctx context.Context) {
	if m == nil || m.tasksActive == nil {
		return
	}
	m.tasksActive.Add(ctx, -1)
}
