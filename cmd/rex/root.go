package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"rex/internal/bootstrap"
	"rex/internal/config"
	"rex/internal/logging"
)

// isTTY checks if the current environment has a TTY available
func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// cliApp holds the wired pipeline shared by the subcommands. The pipeline is
// built lazily so help and version never touch configuration.
type cliApp struct {
	app     *bootstrap.App
	cleanup func()

	configFile    string
	repoPath      string
	verbose       bool
	plain         bool
	maxIterations int
}

func (cli *cliApp) initialize() error {
	if cli.app != nil {
		return nil
	}

	var logger logging.Logger
	if cli.verbose {
		logger = logging.NewComponentLogger("CLI")
	}

	app, cleanup, err := bootstrap.Build(cli.configFile, logger)
	if err != nil {
		return err
	}
	cli.app = app
	cli.cleanup = cleanup
	return nil
}

func newRootCommand() *cobra.Command {
	cli := &cliApp{}

	rootCmd := &cobra.Command{
		Use:   "rex",
		Short: "Repository expert agent for the terminal",
		Long: fmt.Sprintf(`%s

rex answers questions about a codebase by driving Claude Code through a
generate/validate loop: a generator explores the repository and drafts an
answer, then a validator checks the draft against the actual code and sends
it back with feedback until it holds up or the iteration budget runs out.

%s
  rex "how does request routing work?" -r /path/to/repo
  rex ask "where is retry handled?"        # repo defaults to the working dir
  rex                                      # interactive chat
  rex logs 1a2b3c4d                        # inspect a task's audit trail
  rex logs 1a2b3c4d --claude               # summarized tool stream`,
			bold("rex "+config.Version),
			bold("EXAMPLES:")),
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				if err := cli.initialize(); err != nil {
					return err
				}
				defer cli.cleanup()
				return cli.runAsk(strings.Join(args, " "))
			}
			if !isTTY() {
				return cmd.Help()
			}
			if err := cli.initialize(); err != nil {
				return err
			}
			defer cli.cleanup()
			return cli.runChat()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cli.configFile, "config", "", "Path to a YAML config file (default: REX_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&cli.repoPath, "repo", "r", "", "Repository to answer questions about")
	rootCmd.PersistentFlags().BoolVarP(&cli.verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&cli.plain, "plain", false, "Plain output without spinner or markdown")

	rootCmd.AddCommand(newAskCommand(cli))
	rootCmd.AddCommand(newChatCommand(cli))
	rootCmd.AddCommand(newLogsCommand(cli))
	rootCmd.AddCommand(newServeCommand(cli))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// resolveRepo falls back to the working directory so rex can be run from
// inside the repository it should explain.
func resolveRepo(repo string) (string, error) {
	if repo == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working directory: %w", err)
		}
		return wd, nil
	}
	info, err := os.Stat(repo)
	if err != nil {
		return "", fmt.Errorf("repository path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("repository path %s is not a directory", repo)
	}
	return repo, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Version: %s\n", config.Version)
		},
	}
}
