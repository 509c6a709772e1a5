// Package workflow implements the generate/validate loop that produces
// answers about a repository. A generator node asks the Claude CLI to answer
// the query, a validator node judges the answer, and rejected answers are
// regenerated with the validator's feedback until the verdict is VALID or the
// iteration bound is hit.
package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"rex/internal/diff"
	"rex/internal/invocation"
	"rex/internal/logging"
	"rex/internal/observability"
	"rex/internal/utils"
)

// DefaultMaxIterations bounds the loop when neither the request nor the
// engine config sets a limit.
const DefaultMaxIterations = 3

// Invoker executes one external tool call. *invocation.Runner satisfies it;
// tests substitute scripted fakes.
type Invoker interface {
	Invoke(ctx context.Context, req invocation.Request) invocation.Result
}

// EngineConfig carries the static knobs of the engine.
type EngineConfig struct {
	// MaxIterations is the default iteration bound for runs that do not
	// set their own.
	MaxIterations int
	// LogDir is where per-task audit logs are written.
	LogDir string
}

// Engine drives generate/validate runs. It is safe for concurrent use: all
// per-run state lives on the stack of Run.
type Engine struct {
	cfg     EngineConfig
	invoker Invoker
	prompts PromptSet
	logger  logging.Logger
	metrics *observability.MetricsCollector
	tracer  *observability.TracerProvider

	mu        sync.RWMutex
	listeners []Listener
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithMetrics attaches a metrics collector.
func WithMetrics(m *observability.MetricsCollector) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithTracer attaches a tracer provider.
func WithTracer(tp *observability.TracerProvider) EngineOption {
	return func(e *Engine) { e.tracer = tp }
}

// WithListener registers a listener at construction time.
func WithListener(l Listener) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.listeners = append(e.listeners, l)
		}
	}
}

// NewEngine builds an engine around an invoker and a prompt set.
func NewEngine(cfg EngineConfig, invoker Invoker, prompts PromptSet, logger logging.Logger, opts ...EngineOption) *Engine {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	e := &Engine{
		cfg:     cfg,
		invoker: invoker,
		prompts: prompts,
		logger:  logging.OrNop(logger),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunRequest describes one workflow run.
type RunRequest struct {
	Query    string
	RepoPath string
	// TaskID correlates audit logs and sink files; empty generates one.
	TaskID string
	// MaxIterations overrides the engine default when positive.
	MaxIterations int
}

// runState is the mutable state threaded through one run.
type runState struct {
	taskID        string
	query         string
	repoPath      string
	answer        string
	validation    string
	status        Status
	feedback      string
	iteration     int
	maxIterations int
}

// Run executes the loop and returns the final answer: the output of the last
// generation, regardless of the final verdict. Faults never propagate; they
// come back as a diagnostic answer string.
func (e *Engine) Run(ctx context.Context, req RunRequest) (answer string) {
	taskID := req.TaskID
	if taskID == "" {
		taskID = utils.NewTaskID()
	}
	maxIter := req.MaxIterations
	if maxIter <= 0 {
		maxIter = e.cfg.MaxIterations
	}

	taskLog := utils.NewTaskLog(e.cfg.LogDir, taskID)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("workflow run %s panicked: %v", taskID, r)
			taskLog.Errorf("Workflow: Failed - %v", r)
			answer = fmt.Sprintf("Error: %v", r)
		}
	}()

	ctx, span := e.tracer.StartSpan(ctx, observability.SpanWorkflowRun,
		attribute.String(observability.AttrTaskID, taskID),
		attribute.String(observability.AttrRepoPath, req.RepoPath),
	)
	defer span.End()

	taskLog.LogDetails("Workflow: Started", map[string]string{
		"query": req.Query,
		"repo":  req.RepoPath,
	})
	e.emit(Event{Type: EventRunStarted, TaskID: taskID, Iteration: 1})

	st := &runState{
		taskID:        taskID,
		query:         req.Query,
		repoPath:      req.RepoPath,
		iteration:     1,
		maxIterations: maxIter,
	}

	for {
		if err := e.generate(ctx, st, taskLog); err != nil {
			return e.fail(ctx, st, taskLog, start, err)
		}
		if err := e.validate(ctx, st, taskLog); err != nil {
			return e.fail(ctx, st, taskLog, start, err)
		}
		if st.status == StatusValid {
			break
		}
		if st.iteration >= st.maxIterations {
			taskLog.Logf("Max iterations (%d) reached, returning best answer", st.maxIterations)
			break
		}
	}

	elapsed := time.Since(start)
	taskLog.Logf("Workflow: Completed (%s after %d iteration(s))", st.status, st.iteration)
	e.metrics.RecordWorkflowRun(ctx, string(st.status), st.iteration, elapsed)
	e.emit(Event{
		Type:      EventRunFinished,
		TaskID:    taskID,
		Iteration: st.iteration,
		Status:    st.status,
		Duration:  elapsed,
	})
	return st.answer
}

// fail records a non-panic fault and converts it into the diagnostic answer.
func (e *Engine) fail(ctx context.Context, st *runState, taskLog *utils.TaskLog, start time.Time, err error) string {
	e.logger.Error("workflow run %s failed: %v", st.taskID, err)
	taskLog.Errorf("Workflow: Failed - %v", err)
	e.metrics.RecordWorkflowRun(ctx, "error", st.iteration, time.Since(start))
	e.emit(Event{
		Type:      EventRunFinished,
		TaskID:    st.taskID,
		Iteration: st.iteration,
		Duration:  time.Since(start),
	})
	return fmt.Sprintf("Error: %v", err)
}

// generate produces an answer for the current iteration. When validator
// feedback is present, the revision prompt carries it alongside the original
// query.
func (e *Engine) generate(ctx context.Context, st *runState, taskLog *utils.TaskLog) error {
	node := fmt.Sprintf("generator_v%d", st.iteration)
	taskLog.Logf("Generator: Starting (iteration %d)", st.iteration)
	e.emit(Event{Type: EventNodeStarted, TaskID: st.taskID, Node: node, Iteration: st.iteration})

	ctx, span := e.tracer.StartSpan(ctx, observability.SpanGenerate,
		attribute.String(observability.AttrTaskID, st.taskID),
		attribute.String(observability.AttrNode, node),
		attribute.Int(observability.AttrIteration, st.iteration),
	)
	defer span.End()

	prompt, err := e.prompts.RenderGenerator(st.query, st.feedback)
	if err != nil {
		return err
	}

	res := e.invoker.Invoke(ctx, invocation.Request{
		Prompt:   prompt,
		RepoPath: st.repoPath,
		TaskID:   st.taskID,
		Node:     node,
	})

	prev := st.answer
	st.answer = res.Text
	taskLog.Logf("Generator: Done (%.1fs)", res.Duration.Seconds())

	if st.iteration > 1 && prev != "" {
		stats := diff.LineStats(prev, st.answer)
		if stats.Changed() {
			taskLog.Logf("Generator: Revised answer (+%d/-%d lines)", stats.AddedLines, stats.DeletedLines)
		} else {
			taskLog.Log("Generator: Answer unchanged despite feedback")
		}
	}

	e.emit(Event{
		Type:      EventNodeFinished,
		TaskID:    st.taskID,
		Node:      node,
		Iteration: st.iteration,
		Duration:  res.Duration,
	})
	return nil
}

// validate judges the current answer and advances the iteration counter when
// the verdict rejects it. Feedback is replaced wholesale each round; only the
// latest verdict drives the next generation.
func (e *Engine) validate(ctx context.Context, st *runState, taskLog *utils.TaskLog) error {
	node := fmt.Sprintf("validator_v%d", st.iteration)
	taskLog.Logf("Validator: Starting (iteration %d)", st.iteration)
	e.emit(Event{Type: EventNodeStarted, TaskID: st.taskID, Node: node, Iteration: st.iteration})

	ctx, span := e.tracer.StartSpan(ctx, observability.SpanValidate,
		attribute.String(observability.AttrTaskID, st.taskID),
		attribute.String(observability.AttrNode, node),
		attribute.Int(observability.AttrIteration, st.iteration),
	)
	defer span.End()

	prompt, err := e.prompts.RenderValidator(st.query, st.answer)
	if err != nil {
		return err
	}

	res := e.invoker.Invoke(ctx, invocation.Request{
		Prompt:   prompt,
		RepoPath: st.repoPath,
		TaskID:   st.taskID,
		Node:     node,
	})

	status, feedback := ParseVerdict(res.Text)
	st.validation = res.Text
	st.status = status
	st.feedback = feedback

	taskLog.Logf("Validator: %s (%.1fs)", status, res.Duration.Seconds())
	e.metrics.RecordVerdict(ctx, string(status))
	span.SetAttributes(attribute.String(observability.AttrStatus, string(status)))

	verdictIteration := st.iteration
	if status != StatusValid {
		st.iteration++
	}

	e.emit(Event{
		Type:      EventVerdict,
		TaskID:    st.taskID,
		Node:      node,
		Iteration: verdictIteration,
		Status:    status,
		Feedback:  feedback,
		Duration:  res.Duration,
	})
	e.emit(Event{
		Type:      EventNodeFinished,
		TaskID:    st.taskID,
		Node:      node,
		Iteration: verdictIteration,
		Duration:  res.Duration,
	})
	return nil
}
