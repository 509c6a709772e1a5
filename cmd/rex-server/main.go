package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"rex/internal/bootstrap"
	"rex/internal/config"
	"rex/internal/logging"
)

var cyan = color.New(color.FgCyan).SprintFunc()

func main() {
	configFile := flag.String("config", "", "path to a YAML config file (default: REX_CONFIG)")
	flag.Parse()

	logger := logging.NewComponentLogger("Main")
	logger.Info("Starting rex A2A server...")

	app, srv, cleanup, err := bootstrap.BuildServer(*configFile, logger)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}
	defer cleanup()

	cfg := app.Config
	logger.Info("=== Server Configuration ===")
	logger.Info("Claude Path: %s", cfg.ClaudePath)
	logger.Info("Max Turns: %d", cfg.DefaultMaxTurns)
	logger.Info("Timeout: %s", cfg.DefaultTimeout)
	logger.Info("Max Iterations: %d", cfg.MaxIterations)
	logger.Info("Listen: %s", cfg.Addr())
	logger.Info("Log Dir: %s", app.LogDir)
	logger.Info("Cache: enabled=%t ttl=%s size=%d", cfg.Cache.Enabled, cfg.Cache.TTL, cfg.Cache.MaxSize)
	logger.Info("===========================")

	printBanner(cfg, app.LogDir)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server stopped")
}

func printBanner(cfg *config.Config, logDir string) {
	rows := []string{
		fmt.Sprintf("  Server: http://%s", cfg.Addr()),
		fmt.Sprintf("  Logs:   %s", logDir),
		"",
		"  Log files per task:",
		"    {task_id}.log        - System logs",
		"    {task_id}_claude.log - Claude Code thinking",
	}

	fmt.Println()
	fmt.Println(cyan("╔═══════════════════════════════════════════════════════════╗"))
	fmt.Printf("%s%-59s%s\n", cyan("║"), fmt.Sprintf("          Repo Expert A2A Server v%s", config.Version), cyan("║"))
	fmt.Println(cyan("╠═══════════════════════════════════════════════════════════╣"))
	for _, row := range rows {
		fmt.Printf("%s%-59s%s\n", cyan("║"), row, cyan("║"))
	}
	fmt.Println(cyan("╚═══════════════════════════════════════════════════════════╝"))
	fmt.Println()
}
