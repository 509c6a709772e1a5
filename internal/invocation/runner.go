package invocation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"rex/internal/logging"
	"rex/internal/observability"
	"rex/internal/tokens"
)

// commandContext builds the child process command. Tests substitute it to
// run a stub instead of the real binary.
var commandContext = exec.CommandContext

// RunnerConfig is the read-only invocation configuration, resolved once at
// process start.
type RunnerConfig struct {
	// BinaryPath locates the external tool.
	BinaryPath string
	// DefaultMaxTurns applies when a request leaves MaxTurns zero.
	DefaultMaxTurns int
	// DefaultTimeout applies when a request leaves Timeout zero.
	DefaultTimeout time.Duration
	// LogDir holds the per-task sink files.
	LogDir string
	// MaxConcurrent bounds simultaneous child processes across all tasks.
	// Zero disables the bound.
	MaxConcurrent int64
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithMetrics attaches the metrics collector.
func WithMetrics(metrics *observability.MetricsCollector) RunnerOption {
	return func(r *Runner) {
		r.metrics = metrics
	}
}

// Runner invokes the external tool. It is safe for concurrent use: the
// configuration is immutable and per-invocation state is local.
type Runner struct {
	cfg     RunnerConfig
	logger  logging.Logger
	metrics *observability.MetricsCollector
	sem     *semaphore.Weighted
}

// NewRunner builds a Runner from resolved configuration.
func NewRunner(cfg RunnerConfig, logger logging.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:    cfg,
		logger: logging.OrNop(logger),
	}
	if cfg.MaxConcurrent > 0 {
		r.sem = semaphore.NewWeighted(cfg.MaxConcurrent)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sink returns the sink handle for a task, for callers that render or tail
// the captured stream.
func (r *Runner) Sink(taskID string) *Sink {
	return NewSink(r.cfg.LogDir, taskID)
}

// Invoke runs the tool once and blocks until it exits or the timeout
// elapses. It never returns an error: every failure surface produces a
// non-empty diagnostic in Result.Text with exit code -1, so one bad step
// cannot crash a run.
func (r *Runner) Invoke(ctx context.Context, req Request) Result {
	maxTurns := req.MaxTurns
	if maxTurns <= 0 {
		maxTurns = r.cfg.DefaultMaxTurns
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = r.cfg.DefaultTimeout
	}

	if r.sem != nil {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			return r.finish(ctx, req.Node, Result{
				Text:     "Error: " + err.Error(),
				ExitCode: -1,
			}, req.Prompt, observability.OutcomeError)
		}
		defer r.sem.Release(1)
	}

	start := time.Now()
	sink := r.Sink(req.TaskID)

	if err := sink.AppendHeader(req.Node, req.RepoPath, req.Prompt); err != nil {
		return r.finish(ctx, req.Node, Result{
			Text:     "Error: " + err.Error(),
			Duration: time.Since(start),
			ExitCode: -1,
		}, req.Prompt, observability.OutcomeError)
	}

	out, err := sink.OpenAppend()
	if err != nil {
		return r.finish(ctx, req.Node, Result{
			Text:     "Error: " + err.Error(),
			Duration: time.Since(start),
			ExitCode: -1,
		}, req.Prompt, observability.OutcomeError)
	}

	args := []string{
		"-p", req.Prompt,
		"--verbose",
		"--output-format", "stream-json",
		"--dangerously-skip-permissions",
		"--max-turns", strconv.Itoa(maxTurns),
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := commandContext(runCtx, r.cfg.BinaryPath, args...)
	cmd.Dir = req.RepoPath
	// Full environment: the tool needs the caller's auth tokens.
	cmd.Env = os.Environ()
	cmd.Stdout = out
	cmd.Stderr = &stderr

	r.logger.Debug("invoking %s for task %s (%s, max_turns=%d, timeout=%s)",
		r.cfg.BinaryPath, req.TaskID, req.Node, maxTurns, timeout)

	if err := cmd.Start(); err != nil {
		out.Close()
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, exec.ErrNotFound) {
			r.logger.Error("tool binary missing at %s", r.cfg.BinaryPath)
			return r.finish(ctx, req.Node, Result{
				Text:     fmt.Sprintf("Error: Claude CLI not found at %s", r.cfg.BinaryPath),
				Duration: 0,
				ExitCode: -1,
			}, req.Prompt, observability.OutcomeNotFound)
		}
		return r.finish(ctx, req.Node, Result{
			Text:     "Error: " + err.Error(),
			Duration: time.Since(start),
			ExitCode: -1,
		}, req.Prompt, observability.OutcomeError)
	}

	waitErr := cmd.Wait()
	out.Close()
	duration := time.Since(start)

	if waitErr != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		// CommandContext killed the child at the deadline; it is already
		// reaped by Wait. A clean exit that merely raced the deadline is
		// not a timeout.
		if err := sink.AppendTimeoutFooter(duration); err != nil {
			r.logger.Warn("sink footer write failed for task %s: %v", req.TaskID, err)
		}
		return r.finish(ctx, req.Node, Result{
			Text:     fmt.Sprintf("Error: Timed out after %gs", timeout.Seconds()),
			Duration: duration,
			ExitCode: -1,
		}, req.Prompt, observability.OutcomeTimeout)
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			if err := sink.AppendFooter(duration, -1); err != nil {
				r.logger.Warn("sink footer write failed for task %s: %v", req.TaskID, err)
			}
			return r.finish(ctx, req.Node, Result{
				Text:     "Error: " + waitErr.Error(),
				Duration: duration,
				ExitCode: -1,
			}, req.Prompt, observability.OutcomeError)
		}
	}

	if err := sink.AppendFooter(duration, exitCode); err != nil {
		r.logger.Warn("sink footer write failed for task %s: %v", req.TaskID, err)
	}

	text := ExtractFile(sink.Path())
	if err := sink.AppendParsed(text); err != nil {
		r.logger.Warn("sink trailer write failed for task %s: %v", req.TaskID, err)
	}

	if exitCode != 0 && text == "" {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			text = "Error: " + msg
		} else {
			text = "Unknown error"
		}
	}

	outcome := observability.OutcomeOK
	if exitCode != 0 {
		outcome = observability.OutcomeError
	}
	return r.finish(ctx, req.Node, Result{
		Text:     text,
		Duration: duration,
		ExitCode: exitCode,
	}, req.Prompt, outcome)
}

// finish records metrics for one invocation and hands the result back.
func (r *Runner) finish(ctx context.Context, node string, res Result, prompt, outcome string) Result {
	r.metrics.RecordInvocation(ctx, node, outcome, res.Duration,
		tokens.Count(prompt), tokens.Count(res.Text))
	return res
}
