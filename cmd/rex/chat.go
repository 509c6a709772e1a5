package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"rex/internal/server"
	"rex/internal/utils"
	"rex/internal/workflow"
)

func newChatCommand(cli *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat about a repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.initialize(); err != nil {
				return err
			}
			defer cli.cleanup()
			return cli.runChat()
		},
	}
}

// runChat runs a REPL with readline support (arrow keys, history).
func (cli *cliApp) runChat() error {
	fmt.Println(bold("rex - repository expert"))
	fmt.Println("Type a question and press Enter. Type 'exit' or 'quit' to quit.")
	fmt.Println("Switch repositories inline: include 'repo_path: /path/to/repo' in a message.")
	fmt.Println()

	repo := cli.repoPath
	if repo == "" {
		if wd, err := os.Getwd(); err == nil {
			repo = wd
		}
	}
	fmt.Printf("Repository: %s\n\n", repo)

	homeDir, _ := os.UserHomeDir()
	historyFile := filepath.Join(homeDir, ".rex-history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "> ",
		HistoryFile:       historyFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdin:             readline.NewCancelableStdin(os.Stdin),
		Stdout:            os.Stdout,
		Stderr:            os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	ctx := context.Background()

	for {
		input, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(input) == 0 {
				fmt.Println("\nGoodbye!")
				break
			}
			continue
		} else if err == io.EOF {
			fmt.Println("\nGoodbye!")
			break
		}

		input = strings.TrimSpace(input)

		if input == "exit" || input == "quit" || input == "q" {
			fmt.Println("Goodbye!")
			break
		}
		if input == "" {
			continue
		}

		query, repoFromText := server.ExtractParams(input)
		if repoFromText != "" {
			resolved, err := resolveRepo(repoFromText)
			if err != nil {
				fmt.Printf("%s %v\n\n", red("✗"), err)
				continue
			}
			repo = resolved
			fmt.Printf("%s\n", gray("Repository: "+repo))
		}
		if repo == "" {
			fmt.Printf("%s Set a repository first: include 'repo_path: /path/to/repo' or pass --repo\n\n", yellow("!"))
			continue
		}

		taskID := utils.NewTaskID()
		start := time.Now()
		fmt.Printf("%s\n", gray("✶ Working… (this can take a few minutes)"))

		answer := cli.app.Engine.Run(ctx, workflow.RunRequest{
			Query:    query,
			RepoPath: repo,
			TaskID:   taskID,
		})

		if strings.HasPrefix(answer, "Error: ") {
			fmt.Printf("\n%s %s\n\n", red("✗"), answer)
			continue
		}

		fmt.Printf("\n%s\n", renderChatMarkdown(answer))
		fmt.Printf("\n%s\n\n", gray(fmt.Sprintf("✓ Completed in %s · logs: %s",
			formatDuration(time.Since(start)), cli.taskLogPath(taskID))))
	}

	return nil
}

// renderChatMarkdown renders markdown content to terminal
func renderChatMarkdown(content string) string {
	width := 100
	result := markdown.Render(content, width, 6)
	return string(result)
}
