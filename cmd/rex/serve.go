package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rex/internal/bootstrap"
	"rex/internal/config"
	"rex/internal/logging"
)

func newServeCommand(cli *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the A2A server in the foreground",
		Long: `Run the same A2A server the rex-server binary runs, wired from the same
configuration. Handy for local development; deployments should prefer the
dedicated rex-server binary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cli.configFile)
		},
	}
}

func runServe(configFile string) error {
	logger := logging.NewComponentLogger("Main")

	app, srv, cleanup, err := bootstrap.BuildServer(configFile, logger)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}
	defer cleanup()

	fmt.Printf("%s %s\n", cyan("rex A2A server"), config.Version)
	fmt.Printf("  Server: http://%s\n", app.Config.Addr())
	fmt.Printf("  Logs:   %s\n\n", app.LogDir)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-quit:
	}

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
