package invocation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const sinkDelimiterWidth = 80

// Sink is the append-only per-task capture of the tool's raw stream plus
// framing markers. The file is opened, appended, and closed on every write
// so a crash between steps leaves a consistent log, and concurrent tasks
// never share a file.
type Sink struct {
	path string
}

// NewSink returns the sink for one task. The file is <dir>/<taskID>_claude.log.
func NewSink(dir, taskID string) *Sink {
	return &Sink{path: filepath.Join(dir, taskID+"_claude.log")}
}

// Path returns the sink file path.
func (s *Sink) Path() string {
	return s.path
}

// OpenAppend opens the sink for appending. The caller owns the handle; the
// runner points the child's stdout here so output streams to disk without
// buffering in memory.
func (s *Sink) OpenAppend() (*os.File, error) {
	return os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// AppendHeader frames the start of one invocation.
func (s *Sink) AppendHeader(node, repoPath, prompt string) error {
	var b strings.Builder
	delim := strings.Repeat("=", sinkDelimiterWidth)
	fmt.Fprintf(&b, "\n%s\n", delim)
	fmt.Fprintf(&b, "[%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), strings.ToUpper(node))
	fmt.Fprintf(&b, "Repo: %s\n", repoPath)
	fmt.Fprintf(&b, "Prompt: %s\n", prompt)
	fmt.Fprintf(&b, "%s\n", delim)
	return s.append(b.String())
}

// AppendFooter records a normal completion.
func (s *Sink) AppendFooter(duration time.Duration, exitCode int) error {
	return s.append(fmt.Sprintf("\n[Completed in %.2fs, exit: %d]\n", duration.Seconds(), exitCode))
}

// AppendTimeoutFooter records a killed invocation.
func (s *Sink) AppendTimeoutFooter(duration time.Duration) error {
	return s.append(fmt.Sprintf("\n[TIMEOUT after %.2fs]\n", duration.Seconds()))
}

// AppendParsed records what extraction recovered, for audit.
func (s *Sink) AppendParsed(text string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", strings.Repeat("-", sinkDelimiterWidth))
	b.WriteString("Parsed response:\n")
	if text == "" {
		b.WriteString("(empty)\n")
	} else {
		b.WriteString(text + "\n")
	}
	return s.append(b.String())
}

func (s *Sink) append(data string) error {
	f, err := s.OpenAppend()
	if err != nil {
		return err
	}
	if _, err := f.WriteString(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
