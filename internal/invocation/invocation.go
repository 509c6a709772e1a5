// Package invocation drives one synchronous run of the external reasoning
// tool. It supervises the child process with timeout/kill semantics, streams
// the tool's line-delimited output into a per-task sink, and recovers the
// terminal result from that stream. It knows nothing about the workflow
// looping above it.
package invocation

import "time"

// Request describes one invocation of the external tool.
type Request struct {
	// Prompt is passed to the tool verbatim.
	Prompt string
	// RepoPath becomes the child's working directory.
	RepoPath string
	// TaskID keys the per-task sink file.
	TaskID string
	// Node tags which workflow step is calling, e.g. "generator_v1".
	Node string
	// MaxTurns caps the tool's internal tool-call turns. Zero uses the
	// runner default.
	MaxTurns int
	// Timeout bounds this invocation. Zero uses the runner default.
	Timeout time.Duration
}

// Result is what every invocation returns. Text is never empty on failure:
// diagnostics travel here instead of through an error value, so a failed
// step can be judged downstream like any other answer.
type Result struct {
	Text     string
	Duration time.Duration
	ExitCode int
}
