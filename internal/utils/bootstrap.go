package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureLogDirs creates the per-task log directory under baseDir and drops a
// .gitignore into tmp/ so task logs never land in version control. It
// returns the logs directory path. An existing .gitignore is left alone.
func EnsureLogDirs(baseDir string) (string, error) {
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working directory: %w", err)
		}
		baseDir = wd
	}

	logsDir := filepath.Join(baseDir, "tmp", "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return "", fmt.Errorf("create logs directory: %w", err)
	}

	gitignore := filepath.Join(baseDir, "tmp", ".gitignore")
	if _, err := os.Stat(gitignore); os.IsNotExist(err) {
		if err := os.WriteFile(gitignore, []byte("*\n!.gitignore\n"), 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", gitignore, err)
		}
	}

	return logsDir, nil
}

// EnsureDir creates dir (and parents) when it does not exist.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// ResolveLogDir ensures and returns the task log directory: the override when
// non-empty, otherwise tmp/logs under baseDir.
func ResolveLogDir(baseDir, override string) (string, error) {
	if override != "" {
		if err := EnsureDir(override); err != nil {
			return "", fmt.Errorf("create log directory: %w", err)
		}
		return override, nil
	}
	return EnsureLogDirs(baseDir)
}
