package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rex/internal/invocation"
)

func newLogsCommand(cli *cliApp) *cobra.Command {
	var raw bool
	var claudeStream bool
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs [task-id]",
		Short: "Inspect task logs",
		Long: `Inspect the logs a run leaves behind.

Without arguments, lists recent tasks. With a task ID, prints that task's
audit trail. --claude switches to the tool stream, summarized one line per
event; --follow tails the stream of a running task; add --raw for the
unprocessed JSON.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.initialize(); err != nil {
				return err
			}
			defer cli.cleanup()

			if len(args) == 0 {
				return cli.listTaskLogs()
			}
			if follow {
				return cli.followClaudeLog(args[0], raw)
			}
			if claudeStream {
				return cli.showClaudeLog(args[0], raw)
			}
			return cli.showTaskLog(args[0])
		},
	}

	cmd.Flags().BoolVar(&claudeStream, "claude", false, "Show the tool stream instead of the audit trail")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Tail the tool stream until interrupted")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print tool stream lines unprocessed (with --claude or --follow)")
	return cmd
}

func (cli *cliApp) listTaskLogs() error {
	entries, err := os.ReadDir(cli.app.LogDir)
	if err != nil {
		return fmt.Errorf("read log dir: %w", err)
	}

	type taskLog struct {
		taskID  string
		modTime time.Time
		size    int64
	}
	var logs []taskLog
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".log") || strings.HasSuffix(name, "_claude.log") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		logs = append(logs, taskLog{
			taskID:  strings.TrimSuffix(name, ".log"),
			modTime: info.ModTime(),
			size:    info.Size(),
		})
	}

	if len(logs) == 0 {
		fmt.Printf("No task logs in %s\n", cli.app.LogDir)
		return nil
	}

	sort.Slice(logs, func(i, j int) bool { return logs[i].modTime.After(logs[j].modTime) })

	fmt.Println(bold(fmt.Sprintf("Task logs in %s:", cli.app.LogDir)))
	for _, l := range logs {
		fmt.Printf("  %s  %s\n", l.taskID,
			gray(fmt.Sprintf("%s · %d bytes", l.modTime.Format("2006-01-02 15:04:05"), l.size)))
	}
	return nil
}

func (cli *cliApp) showTaskLog(taskID string) error {
	data, err := os.ReadFile(cli.taskLogPath(taskID))
	if err != nil {
		return fmt.Errorf("read task log: %w", err)
	}
	fmt.Print(string(data))
	return nil
}

func (cli *cliApp) showClaudeLog(taskID string, raw bool) error {
	path := filepath.Join(cli.app.LogDir, taskID+"_claude.log")
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("read tool stream log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if raw {
			fmt.Println(line)
			continue
		}
		summary, ok := invocation.SummarizeLine(line)
		if !ok {
			continue
		}
		fmt.Println(formatSummary(summary))
	}
	return scanner.Err()
}

// followClaudeLog tails the tool stream like the websocket endpoint does,
// picking up complete lines only, until Ctrl-C.
func (cli *cliApp) followClaudeLog(taskID string, raw bool) error {
	path := filepath.Join(cli.app.LogDir, taskID+"_claude.log")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	defer signal.Stop(quit)

	poll := time.NewTicker(500 * time.Millisecond)
	defer poll.Stop()

	var offset int64
	for {
		lines, newOffset, err := invocation.ReadCompleteLines(path, offset)
		if err != nil {
			return fmt.Errorf("tail tool stream log: %w", err)
		}
		offset = newOffset

		for _, line := range lines {
			if raw {
				fmt.Println(line)
				continue
			}
			if summary, ok := invocation.SummarizeLine(line); ok {
				fmt.Println(formatSummary(summary))
			}
		}

		select {
		case <-quit:
			return nil
		case <-poll.C:
		}
	}
}

func formatSummary(s invocation.EventSummary) string {
	switch s.Kind {
	case invocation.EventToolUse:
		return cyan(s.Text)
	case invocation.EventToolResult, invocation.EventSystem:
		return gray(s.Text)
	case invocation.EventResult:
		return green(s.Text)
	default:
		return s.Text
	}
}
