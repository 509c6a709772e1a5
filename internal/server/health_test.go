package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestHealthCheckerHealthy(t *testing.T) {
	checker := NewHealthChecker()
	if !checker.Healthy(context.Background()) {
		t.Error("Expected an empty checker to be healthy")
	}

	checker.RegisterProbe(stubProbe{health: ComponentHealth{Name: "a", Status: HealthStatusReady}})
	checker.RegisterProbe(stubProbe{health: ComponentHealth{Name: "b", Status: HealthStatusDisabled}})
	if !checker.Healthy(context.Background()) {
		t.Error("Expected ready+disabled probes to be healthy")
	}

	checker.RegisterProbe(stubProbe{health: ComponentHealth{Name: "c", Status: HealthStatusNotReady}})
	if checker.Healthy(context.Background()) {
		t.Error("Expected a not_ready probe to degrade health")
	}
	if results := checker.CheckAll(context.Background()); len(results) != 3 {
		t.Errorf("Expected 3 results, got %d", len(results))
	}
}

func TestBinaryProbe(t *testing.T) {
	dir := t.TempDir()

	executable := filepath.Join(dir, "claude")
	if err := os.WriteFile(executable, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	plain := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(plain, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want HealthStatus
	}{
		{"executable", executable, HealthStatusReady},
		{"missing", filepath.Join(dir, "absent"), HealthStatusNotReady},
		{"directory", dir, HealthStatusNotReady},
		{"not executable", plain, HealthStatusNotReady},
		{"not in PATH", "definitely-not-a-real-binary-7f3a", HealthStatusNotReady},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			health := NewBinaryProbe(tt.path).Check(context.Background())
			if health.Status != tt.want {
				t.Errorf("Check(%s) = %s (%s), want %s", tt.path, health.Status, health.Message, tt.want)
			}
			if health.Name != "claude_binary" {
				t.Errorf("Unexpected component name: %s", health.Name)
			}
		})
	}
}

func TestLogDirProbe(t *testing.T) {
	dir := t.TempDir()

	health := NewLogDirProbe(dir).Check(context.Background())
	if health.Status != HealthStatusReady {
		t.Errorf("Writable dir reported %s: %s", health.Status, health.Message)
	}
	if _, err := os.Stat(filepath.Join(dir, ".healthcheck")); !os.IsNotExist(err) {
		t.Error("Expected probe file to be cleaned up")
	}

	health = NewLogDirProbe(filepath.Join(dir, "missing", "nested")).Check(context.Background())
	if health.Status != HealthStatusNotReady {
		t.Errorf("Missing dir reported %s", health.Status)
	}
}
