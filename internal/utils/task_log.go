package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// TaskLog is the per-task audit trail. Every workflow step appends
// human-readable lines to <dir>/<taskID>.log and mirrors them to the
// component logger. The file is opened, appended, and closed on each
// write so a crash between steps leaves a consistent log.
type TaskLog struct {
	dir     string
	taskID  string
	console *Logger
}

// NewTaskLog returns the audit log for one task.
func NewTaskLog(dir, taskID string) *TaskLog {
	return &TaskLog{
		dir:     dir,
		taskID:  taskID,
		console: NewComponentLogger("Task"),
	}
}

// TaskID returns the task this log belongs to.
func (t *TaskLog) TaskID() string {
	return t.taskID
}

// Path returns the audit log file path.
func (t *TaskLog) Path() string {
	return filepath.Join(t.dir, t.taskID+".log")
}

// Log appends an INFO line.
func (t *TaskLog) Log(message string) {
	t.write("INFO", message, nil)
}

// Logf appends a formatted INFO line.
func (t *TaskLog) Logf(format string, args ...any) {
	t.write("INFO", fmt.Sprintf(format, args...), nil)
}

// LogDetails appends an INFO line followed by indented key/value detail
// lines. Keys are written in sorted order.
func (t *TaskLog) LogDetails(message string, details map[string]string) {
	t.write("INFO", message, details)
}

// Errorf appends an ERROR line.
func (t *TaskLog) Errorf(format string, args ...any) {
	t.write("ERROR", fmt.Sprintf(format, args...), nil)
}

func (t *TaskLog) write(level, message string, details map[string]string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s\n", timestamp, level, message)

	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %s\n", k, details[k])
	}

	if err := appendFile(t.Path(), b.String()); err != nil {
		t.console.Warn("task log write failed: %v", err)
	}

	t.console.Info("[%s] %s", t.taskID, message)
}

// appendFile opens path append-only, writes data, and closes it.
func appendFile(path, data string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
