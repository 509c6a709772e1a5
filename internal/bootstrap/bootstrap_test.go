package bootstrap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rex/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		ClaudePath:               "/usr/bin/true",
		DefaultMaxTurns:          5,
		DefaultTimeout:           30 * time.Second,
		MaxIterations:            3,
		MaxConcurrentInvocations: 2,
		Host:                     "127.0.0.1",
		Port:                     8001,
		BaseDir:                  t.TempDir(),
		MetricsEnabled:           false,
		Cache: config.CacheConfig{
			Enabled: true,
			TTL:     time.Minute,
			MaxSize: 16,
		},
	}
}

func TestBuildWithConfig(t *testing.T) {
	cfg := testConfig(t)

	app, cleanup, err := BuildWithConfig(cfg, nil)
	if err != nil {
		t.Fatalf("Failed to build app: %v", err)
	}
	defer cleanup()

	if app.Runner == nil {
		t.Error("Expected runner to be wired")
	}
	if app.Engine == nil {
		t.Error("Expected engine to be wired")
	}
	if app.Metrics == nil {
		t.Error("Expected metrics collector to be wired")
	}
	if app.Tracer == nil {
		t.Error("Expected tracer provider to be wired")
	}
	if !strings.HasPrefix(app.LogDir, cfg.BaseDir) {
		t.Errorf("Expected log dir under base dir, got %s", app.LogDir)
	}
	if _, err := os.Stat(app.LogDir); err != nil {
		t.Errorf("Expected log dir to exist: %v", err)
	}
}

func TestBuildWithConfigBadPromptsFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.PromptsFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, _, err := BuildWithConfig(cfg, nil)
	if err == nil {
		t.Fatal("Expected error for missing prompts file")
	}
}

func TestBuildWithConfigPromptsOverride(t *testing.T) {
	cfg := testConfig(t)

	path := filepath.Join(t.TempDir(), "prompts.yaml")
	override := "generator: |\n  Custom generator for {{.Query}}\n"
	if err := os.WriteFile(path, []byte(override), 0o644); err != nil {
		t.Fatalf("Failed to write prompts file: %v", err)
	}
	cfg.PromptsFile = path

	app, cleanup, err := BuildWithConfig(cfg, nil)
	if err != nil {
		t.Fatalf("Failed to build app with prompt override: %v", err)
	}
	defer cleanup()

	if app.Engine == nil {
		t.Fatal("Expected engine to be wired")
	}
}

func TestBuildServerFromFile(t *testing.T) {
	base := t.TempDir()
	configPath := filepath.Join(base, "rex.yaml")
	contents := strings.Join([]string{
		"claude_path: /usr/bin/true",
		"host: 127.0.0.1",
		"port: 8099",
		"base_dir: " + base,
		"metrics_enabled: false",
		"",
	}, "\n")
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	app, srv, cleanup, err := BuildServer(configPath, nil)
	if err != nil {
		t.Fatalf("Failed to build server: %v", err)
	}
	defer cleanup()

	if srv == nil {
		t.Fatal("Expected server to be wired")
	}
	if app.Config.Port != 8099 {
		t.Errorf("Expected port 8099 from config file, got %d", app.Config.Port)
	}
}
