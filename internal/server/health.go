package server

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// HealthStatus is the readiness of one component.
type HealthStatus string

const (
	HealthStatusReady    HealthStatus = "ready"
	HealthStatusNotReady HealthStatus = "not_ready"
	HealthStatusDisabled HealthStatus = "disabled"
)

// ComponentHealth is the probe result for one component.
type ComponentHealth struct {
	Name    string         `json:"name"`
	Status  HealthStatus   `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// HealthProbe checks one component.
type HealthProbe interface {
	Check(ctx context.Context) ComponentHealth
}

// HealthChecker aggregates probes for the readiness endpoint.
type HealthChecker struct {
	mu     sync.RWMutex
	probes []HealthProbe
}

// NewHealthChecker creates an empty health checker.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{}
}

// RegisterProbe adds a probe.
func (h *HealthChecker) RegisterProbe(probe HealthProbe) {
	if probe == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.probes = append(h.probes, probe)
}

// CheckAll runs every probe and returns their results.
func (h *HealthChecker) CheckAll(ctx context.Context) []ComponentHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	results := make([]ComponentHealth, 0, len(h.probes))
	for _, probe := range h.probes {
		results = append(results, probe.Check(ctx))
	}
	return results
}

// Healthy reports whether no probe is not_ready.
func (h *HealthChecker) Healthy(ctx context.Context) bool {
	for _, result := range h.CheckAll(ctx) {
		if result.Status == HealthStatusNotReady {
			return false
		}
	}
	return true
}

// BinaryProbe checks that the external tool binary is present and
// executable. It never spawns the tool: readiness must stay cheap.
type BinaryProbe struct {
	path string
}

// NewBinaryProbe creates a probe for the tool binary.
func NewBinaryProbe(path string) *BinaryProbe {
	return &BinaryProbe{path: path}
}

// Check implements HealthProbe.
func (p *BinaryProbe) Check(ctx context.Context) ComponentHealth {
	health := ComponentHealth{Name: "claude_binary"}

	resolved := p.path
	if !strings.ContainsRune(p.path, os.PathSeparator) {
		found, err := exec.LookPath(p.path)
		if err != nil {
			health.Status = HealthStatusNotReady
			health.Message = fmt.Sprintf("binary %q not found in PATH", p.path)
			return health
		}
		resolved = found
	}

	info, err := os.Stat(resolved)
	switch {
	case err != nil:
		health.Status = HealthStatusNotReady
		health.Message = fmt.Sprintf("binary not found at %s", resolved)
	case info.IsDir():
		health.Status = HealthStatusNotReady
		health.Message = fmt.Sprintf("%s is a directory", resolved)
	case info.Mode().Perm()&0o111 == 0:
		health.Status = HealthStatusNotReady
		health.Message = fmt.Sprintf("%s is not executable", resolved)
	default:
		health.Status = HealthStatusReady
		health.Details = map[string]any{"path": resolved}
	}
	return health
}

// LogDirProbe checks that the task log directory is writable.
type LogDirProbe struct {
	dir string
}

// NewLogDirProbe creates a probe for the log directory.
func NewLogDirProbe(dir string) *LogDirProbe {
	return &LogDirProbe{dir: dir}
}

// Check implements HealthProbe.
func (p *LogDirProbe) Check(ctx context.Context) ComponentHealth {
	health := ComponentHealth{Name: "log_dir", Details: map[string]any{"path": p.dir}}

	probeFile := filepath.Join(p.dir, ".healthcheck")
	if err := os.WriteFile(probeFile, []byte("ok"), 0o644); err != nil {
		health.Status = HealthStatusNotReady
		health.Message = fmt.Sprintf("log directory not writable: %v", err)
		return health
	}
	_ = os.Remove(probeFile)

	health.Status = HealthStatusReady
	return health
}
