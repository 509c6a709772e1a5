// Package bootstrap assembles the application from resolved configuration.
// Both binaries go through it: the CLI wires the core pipeline, the server
// binary adds the A2A surface on top.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"rex/internal/config"
	"rex/internal/invocation"
	"rex/internal/logging"
	"rex/internal/observability"
	"rex/internal/server"
	"rex/internal/utils"
	"rex/internal/workflow"
)

// App bundles the core components wired by Build.
type App struct {
	Config  *config.Config
	LogDir  string
	Logger  logging.Logger
	Metrics *observability.MetricsCollector
	Tracer  *observability.TracerProvider
	Runner  *invocation.Runner
	Engine  *workflow.Engine
}

// Build loads configuration and wires the core pipeline: log directories,
// observability, the invocation runner, prompts and the workflow engine.
// The returned cleanup flushes the tracer.
func Build(configFile string, logger logging.Logger, opts ...workflow.EngineOption) (*App, func(), error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return BuildWithConfig(cfg, logger, opts...)
}

// BuildWithConfig wires the core pipeline around an already-resolved Config.
func BuildWithConfig(cfg *config.Config, logger logging.Logger, opts ...workflow.EngineOption) (*App, func(), error) {
	logger = logging.OrNop(logger)

	logDir, err := utils.ResolveLogDir(cfg.BaseDir, cfg.LogDir)
	if err != nil {
		return nil, nil, err
	}

	metrics, err := observability.NewMetricsCollector(cfg.MetricsEnabled)
	if err != nil {
		return nil, nil, fmt.Errorf("init metrics: %w", err)
	}

	tracer, err := observability.NewTracerProvider(observability.TracingConfig{
		Enabled:        cfg.Tracing.Enabled,
		Exporter:       cfg.Tracing.Exporter,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		ZipkinEndpoint: cfg.Tracing.ZipkinEndpoint,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		ServiceName:    "rex",
		ServiceVersion: config.Version,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init tracing: %w", err)
	}

	prompts := workflow.DefaultPromptSet()
	if cfg.PromptsFile != "" {
		prompts, err = workflow.LoadPromptSet(cfg.PromptsFile)
		if err != nil {
			return nil, nil, err
		}
	}

	runner := invocation.NewRunner(invocation.RunnerConfig{
		BinaryPath:      cfg.ClaudePath,
		DefaultMaxTurns: cfg.DefaultMaxTurns,
		DefaultTimeout:  cfg.DefaultTimeout,
		LogDir:          logDir,
		MaxConcurrent:   cfg.MaxConcurrentInvocations,
	}, logger, invocation.WithMetrics(metrics))

	engineOpts := append([]workflow.EngineOption{
		workflow.WithMetrics(metrics),
		workflow.WithTracer(tracer),
	}, opts...)

	engine := workflow.NewEngine(workflow.EngineConfig{
		MaxIterations: cfg.MaxIterations,
		LogDir:        logDir,
	}, runner, prompts, logger, engineOpts...)

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(ctx); err != nil {
			logger.Warn("tracer shutdown: %v", err)
		}
	}

	return &App{
		Config:  cfg,
		LogDir:  logDir,
		Logger:  logger,
		Metrics: metrics,
		Tracer:  tracer,
		Runner:  runner,
		Engine:  engine,
	}, cleanup, nil
}

// BuildServer wires the A2A server on top of the core pipeline.
func BuildServer(configFile string, logger logging.Logger) (*App, *server.Server, func(), error) {
	app, cleanup, err := Build(configFile, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	srv, err := assembleServer(app)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return app, srv, cleanup, nil
}

func assembleServer(app *App) (*server.Server, error) {
	cfg := app.Config

	store := server.NewTaskStore(0)

	var cache *server.AnswerCache
	if cfg.Cache.Enabled {
		var err error
		cache, err = server.NewAnswerCache(cfg.Cache.MaxSize, cfg.Cache.TTL)
		if err != nil {
			return nil, err
		}
	}

	health := server.NewHealthChecker()
	health.RegisterProbe(server.NewBinaryProbe(cfg.ClaudePath))
	health.RegisterProbe(server.NewLogDirProbe(app.LogDir))

	coordinator := server.NewCoordinator(app.Engine, store, app.LogDir, app.Logger,
		server.WithAnswerCache(cache),
		server.WithCoordinatorMetrics(app.Metrics),
	)

	return server.New(cfg, coordinator, store, health, app.LogDir, app.Logger), nil
}
