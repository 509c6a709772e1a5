package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"rex/internal/server"
	"rex/internal/utils"
	"rex/internal/workflow"
)

func newAskCommand(cli *cliApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [query]",
		Short: "Ask one question about a repository",
		Long: `Ask one question and print the validated answer.

The repository defaults to the working directory; override it with --repo or
by including 'repo_path: /path/to/repo' in the query itself, the same
convention inbound A2A messages use.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.initialize(); err != nil {
				return err
			}
			defer cli.cleanup()
			return cli.runAsk(strings.Join(args, " "))
		},
	}
	cmd.Flags().IntVar(&cli.maxIterations, "max-iterations", 0, "Validation loop bound for this run (default: configured value)")
	return cmd
}

func (cli *cliApp) runAsk(input string) error {
	if strings.TrimSpace(input) == "" {
		if !isTTY() {
			return fmt.Errorf("no query given")
		}
		entered, err := promptForQuery()
		if err != nil {
			return err
		}
		input = entered
	}

	query, repoFromText := server.ExtractParams(input)
	if query == "" {
		return fmt.Errorf("no query given")
	}

	repo := cli.repoPath
	if repoFromText != "" {
		repo = repoFromText
	}
	repo, err := resolveRepo(repo)
	if err != nil {
		return err
	}

	req := workflow.RunRequest{
		Query:         query,
		RepoPath:      repo,
		TaskID:        utils.NewTaskID(),
		MaxIterations: cli.maxIterations,
	}

	if cli.plain || !isTTY() {
		return cli.runAskPlain(req)
	}
	return cli.runAskInteractive(req)
}

func promptForQuery() (string, error) {
	prompt := promptui.Prompt{
		Label: "Query",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("query must not be empty")
			}
			return nil
		},
	}
	entered, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(entered), nil
}

// runAskPlain keeps stdout to the answer alone so output can be piped.
func (cli *cliApp) runAskPlain(req workflow.RunRequest) error {
	start := time.Now()

	answer := cli.app.Engine.Run(context.Background(), req)
	fmt.Println(answer)

	if strings.HasPrefix(answer, "Error: ") {
		return &exitCodeError{Code: 1}
	}
	if cli.verbose {
		fmt.Fprintf(os.Stderr, "✓ Completed in %s\n", formatDuration(time.Since(start)))
	}
	return nil
}

func (cli *cliApp) runAskInteractive(req workflow.RunRequest) error {
	res, err := cli.runWithProgress(context.Background(), req)
	if err != nil {
		return err
	}

	logsHint := gray("Logs: " + cli.taskLogPath(req.TaskID))

	if strings.HasPrefix(res.answer, "Error: ") {
		fmt.Printf("\n%s %s\n%s\n", red("✗"), res.answer, logsHint)
		return &exitCodeError{Code: 1}
	}

	rendered := res.answer
	if mr, err := newMarkdownRenderer(); err == nil {
		rendered = mr.renderIfMarkdown(res.answer)
	}
	fmt.Printf("\n%s\n", strings.TrimRight(rendered, "\n"))

	completion := fmt.Sprintf("%s Completed in %s · %d iteration(s)", green("✓"), formatDuration(res.duration), res.iterations)
	if res.status != workflow.StatusValid {
		completion += gray(" · iteration budget reached")
	}
	fmt.Printf("\n%s\n%s\n", completion, logsHint)
	return nil
}

func (cli *cliApp) taskLogPath(taskID string) string {
	return filepath.Join(cli.app.LogDir, taskID+".log")
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.0fms", d.Seconds()*1000)
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fm", d.Minutes())
}
