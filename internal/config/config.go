// Package config resolves the process-wide configuration once at startup.
// The resulting Config value is immutable and shared by reference: callers
// read it concurrently without synchronization.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Version is the agent version reported on the agent card, /healthz and
// `rex version`.
const Version = "0.1.0"

const (
	// DefaultClaudePath is where the Homebrew install of the external tool
	// lands on macOS hosts. Override with CLAUDE_PATH elsewhere.
	DefaultClaudePath = "/opt/homebrew/bin/claude"

	DefaultMaxTurns       = 5
	DefaultTimeoutSeconds = 300
	DefaultMaxIterations  = 3
	DefaultHost           = "0.0.0.0"
	DefaultPort           = 8001
)

// CacheConfig controls the answer cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	MaxSize int
}

// TracingConfig selects and configures the optional span exporter.
type TracingConfig struct {
	Enabled        bool
	Exporter       string // otlp, zipkin, jaeger
	OTLPEndpoint   string
	ZipkinEndpoint string
	JaegerEndpoint string
	SampleRate     float64
}

// Config is the process configuration, resolved once by Load.
type Config struct {
	// ClaudePath is the external tool binary.
	ClaudePath string
	// DefaultMaxTurns caps the tool's internal tool-call turns per invocation.
	DefaultMaxTurns int
	// DefaultTimeout bounds one invocation, not a whole workflow run.
	DefaultTimeout time.Duration
	// MaxIterations bounds generate/validate loops per task.
	MaxIterations int
	// MaxConcurrentInvocations bounds simultaneous child processes across
	// all tasks. Zero disables the bound.
	MaxConcurrentInvocations int64

	Host string
	Port int

	// BaseDir anchors the tmp/logs tree. Empty means the working directory.
	BaseDir string
	// LogDir overrides the resolved tmp/logs location when non-empty.
	LogDir string

	// PromptsFile optionally overrides the built-in prompt templates.
	PromptsFile string

	MetricsEnabled bool
	Cache          CacheConfig
	Tracing        TracingConfig
}

// Addr returns the host:port the server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads configuration from the environment and, when REX_CONFIG or
// configFile names one, a YAML file. Environment values win over the file;
// both win over defaults. Pass configFile == "" to use REX_CONFIG.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("claude_path", DefaultClaudePath)
	v.SetDefault("max_turns", DefaultMaxTurns)
	v.SetDefault("timeout_seconds", DefaultTimeoutSeconds)
	v.SetDefault("max_iterations", DefaultMaxIterations)
	v.SetDefault("max_concurrent_invocations", 4)
	v.SetDefault("host", DefaultHost)
	v.SetDefault("port", DefaultPort)
	v.SetDefault("base_dir", "")
	v.SetDefault("log_dir", "")
	v.SetDefault("prompts_file", "")
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("cache_enabled", true)
	v.SetDefault("cache_ttl", "10m")
	v.SetDefault("cache_size", 256)
	v.SetDefault("tracing_enabled", false)
	v.SetDefault("tracing_exporter", "otlp")
	v.SetDefault("tracing_otlp_endpoint", "")
	v.SetDefault("tracing_zipkin_endpoint", "")
	v.SetDefault("tracing_jaeger_endpoint", "")
	v.SetDefault("tracing_sample_rate", 1.0)

	// Older deployments configured these without a prefix; keep both
	// spellings working.
	bindings := map[string][]string{
		"claude_path":                {"REX_CLAUDE_PATH", "CLAUDE_PATH"},
		"max_turns":                  {"REX_MAX_TURNS"},
		"timeout_seconds":            {"REX_TIMEOUT_SECONDS"},
		"max_iterations":             {"REX_MAX_ITERATIONS"},
		"max_concurrent_invocations": {"REX_MAX_CONCURRENT_INVOCATIONS"},
		"host":                       {"REX_HOST", "HOST"},
		"port":                       {"REX_PORT", "PORT"},
		"base_dir":                   {"REX_BASE_DIR"},
		"log_dir":                    {"REX_LOG_DIR"},
		"prompts_file":               {"REX_PROMPTS_FILE"},
		"metrics_enabled":            {"REX_METRICS_ENABLED"},
		"cache_enabled":              {"REX_CACHE_ENABLED"},
		"cache_ttl":                  {"REX_CACHE_TTL"},
		"cache_size":                 {"REX_CACHE_SIZE"},
		"tracing_enabled":            {"REX_TRACING_ENABLED"},
		"tracing_exporter":           {"REX_TRACING_EXPORTER"},
		"tracing_otlp_endpoint":      {"REX_TRACING_OTLP_ENDPOINT"},
		"tracing_zipkin_endpoint":    {"REX_TRACING_ZIPKIN_ENDPOINT"},
		"tracing_jaeger_endpoint":    {"REX_TRACING_JAEGER_ENDPOINT"},
		"tracing_sample_rate":        {"REX_TRACING_SAMPLE_RATE"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if configFile == "" {
		configFile = strings.TrimSpace(os.Getenv("REX_CONFIG"))
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		ClaudePath:               strings.TrimSpace(v.GetString("claude_path")),
		DefaultMaxTurns:          v.GetInt("max_turns"),
		DefaultTimeout:           time.Duration(v.GetInt("timeout_seconds")) * time.Second,
		MaxIterations:            v.GetInt("max_iterations"),
		MaxConcurrentInvocations: v.GetInt64("max_concurrent_invocations"),
		Host:                     v.GetString("host"),
		Port:                     v.GetInt("port"),
		BaseDir:                  v.GetString("base_dir"),
		LogDir:                   v.GetString("log_dir"),
		PromptsFile:              v.GetString("prompts_file"),
		MetricsEnabled:           v.GetBool("metrics_enabled"),
		Cache: CacheConfig{
			Enabled: v.GetBool("cache_enabled"),
			TTL:     v.GetDuration("cache_ttl"),
			MaxSize: v.GetInt("cache_size"),
		},
		Tracing: TracingConfig{
			Enabled:        v.GetBool("tracing_enabled"),
			Exporter:       v.GetString("tracing_exporter"),
			OTLPEndpoint:   v.GetString("tracing_otlp_endpoint"),
			ZipkinEndpoint: v.GetString("tracing_zipkin_endpoint"),
			JaegerEndpoint: v.GetString("tracing_jaeger_endpoint"),
			SampleRate:     v.GetFloat64("tracing_sample_rate"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ClaudePath == "" {
		return fmt.Errorf("claude path must not be empty")
	}
	if c.DefaultMaxTurns < 1 {
		return fmt.Errorf("max turns must be at least 1, got %d", c.DefaultMaxTurns)
	}
	if c.DefaultTimeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.DefaultTimeout)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be at least 1, got %d", c.MaxIterations)
	}
	if c.MaxConcurrentInvocations < 0 {
		return fmt.Errorf("max concurrent invocations must not be negative, got %d", c.MaxConcurrentInvocations)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	if c.Cache.Enabled {
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("cache ttl must be positive, got %s", c.Cache.TTL)
		}
		if c.Cache.MaxSize < 1 {
			return fmt.Errorf("cache size must be at least 1, got %d", c.Cache.MaxSize)
		}
	}
	if c.Tracing.Enabled {
		switch c.Tracing.Exporter {
		case "otlp", "zipkin", "jaeger":
		default:
			return fmt.Errorf("unknown tracing exporter %q", c.Tracing.Exporter)
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing sample rate out of range: %f", c.Tracing.SampleRate)
		}
	}
	return nil
}
