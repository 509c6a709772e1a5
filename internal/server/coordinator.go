package server

import (
	"context"
	"strings"

	"rex/internal/logging"
	"rex/internal/observability"
	"rex/internal/utils"
	"rex/internal/workflow"
)

// WorkflowRunner runs one generate/validate workflow to completion.
// *workflow.Engine satisfies it; tests substitute stubs.
type WorkflowRunner interface {
	Run(ctx context.Context, req workflow.RunRequest) string
}

// Coordinator ties the workflow, task store and answer cache together for
// the HTTP handlers: one call per query, bookkeeping included.
type Coordinator struct {
	runner  WorkflowRunner
	store   *TaskStore
	cache   *AnswerCache
	logger  logging.Logger
	metrics *observability.MetricsCollector
	logDir  string
}

// CoordinatorOption configures optional coordinator behavior.
type CoordinatorOption func(*Coordinator)

// WithAnswerCache attaches an answer cache.
func WithAnswerCache(cache *AnswerCache) CoordinatorOption {
	return func(c *Coordinator) { c.cache = cache }
}

// WithCoordinatorMetrics attaches a metrics collector.
func WithCoordinatorMetrics(m *observability.MetricsCollector) CoordinatorOption {
	return func(c *Coordinator) { c.metrics = m }
}

// NewCoordinator creates a coordinator. logDir is where per-task audit logs
// live; it must match the directory the workflow engine writes to.
func NewCoordinator(runner WorkflowRunner, store *TaskStore, logDir string, logger logging.Logger, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		runner: runner,
		store:  store,
		logDir: logDir,
		logger: logging.OrNop(logger),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HandleQuery answers one query, serving from the cache when possible and
// recording the task either way. The returned string is always an answer:
// workflow faults arrive as diagnostics, not errors.
func (c *Coordinator) HandleQuery(ctx context.Context, taskID, query, repoPath string) string {
	c.store.Create(taskID, query, repoPath)
	taskLog := utils.NewTaskLog(c.logDir, taskID)

	if c.cache != nil {
		if answer, ok := c.cache.Get(query, repoPath); ok {
			c.metrics.RecordCacheLookup(ctx, true)
			taskLog.Log("Answer served from cache")
			if err := c.store.SetCompleted(taskID, answer, true); err != nil {
				c.logger.Warn("record cached task %s: %v", taskID, err)
			}
			return answer
		}
		c.metrics.RecordCacheLookup(ctx, false)
	}

	if err := c.store.SetRunning(taskID); err != nil {
		c.logger.Warn("mark task %s running: %v", taskID, err)
	}
	c.metrics.TaskStarted(ctx)
	defer c.metrics.TaskFinished(ctx)

	answer := c.runner.Run(ctx, workflow.RunRequest{
		Query:    query,
		RepoPath: repoPath,
		TaskID:   taskID,
	})

	if strings.HasPrefix(answer, "Error: ") {
		if err := c.store.SetFailed(taskID, answer); err != nil {
			c.logger.Warn("record failed task %s: %v", taskID, err)
		}
		return answer
	}

	if err := c.store.SetCompleted(taskID, answer, false); err != nil {
		c.logger.Warn("record completed task %s: %v", taskID, err)
	}
	c.cache.Put(query, repoPath, answer)
	return answer
}
