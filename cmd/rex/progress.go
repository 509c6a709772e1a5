package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rex/internal/workflow"
)

var (
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	historyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// askResult is what the progress UI hands back once the run finishes.
type askResult struct {
	answer     string
	status     workflow.Status
	iterations int
	duration   time.Duration
	done       bool
}

// Messages for Bubble Tea
type (
	workflowEventMsg workflow.Event
	answerMsg        string
)

type askModel struct {
	spinner    spinner.Model
	cancel     context.CancelFunc
	start      time.Time
	step       string
	verdicts   []string
	cancelling bool
	result     askResult
}

func newAskModel(cancel context.CancelFunc) askModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return askModel{
		spinner: sp,
		cancel:  cancel,
		start:   time.Now(),
		step:    "Starting",
	}
}

func (m askModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m askModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			if m.cancelling {
				return m, tea.Quit
			}
			m.cancelling = true
			m.step = "Cancelling"
			m.cancel()
		}
		return m, nil

	case workflowEventMsg:
		ev := workflow.Event(msg)
		switch ev.Type {
		case workflow.EventNodeStarted:
			if m.cancelling {
				return m, nil
			}
			if strings.HasPrefix(ev.Node, "generator") {
				m.step = fmt.Sprintf("Generator drafting (iteration %d)", ev.Iteration)
			} else {
				m.step = fmt.Sprintf("Validator checking (iteration %d)", ev.Iteration)
			}
		case workflow.EventVerdict:
			m.verdicts = append(m.verdicts, fmt.Sprintf("iteration %d: %s", ev.Iteration, ev.Status))
		case workflow.EventRunFinished:
			m.result.status = ev.Status
			m.result.iterations = ev.Iteration
			m.result.duration = ev.Duration
		}
		return m, nil

	case answerMsg:
		m.result.answer = string(msg)
		m.result.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m askModel) View() string {
	if m.result.done {
		return ""
	}

	elapsed := time.Since(m.start).Seconds()
	line := fmt.Sprintf("%s %s… (%.0fs · esc to interrupt)",
		m.spinner.View(), stepStyle.Render(m.step), elapsed)

	if len(m.verdicts) == 0 {
		return line + "\n"
	}
	return line + "\n" + historyStyle.Render(strings.Join(m.verdicts, "  ")) + "\n"
}

// runWithProgress drives one workflow run behind a live progress view. The
// engine runs in its own goroutine and reports back through program messages.
func (cli *cliApp) runWithProgress(ctx context.Context, req workflow.RunRequest) (askResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newAskModel(cancel))

	cli.app.Engine.AddListener(workflow.ListenerFunc(func(ev workflow.Event) {
		if ev.TaskID == req.TaskID {
			p.Send(workflowEventMsg(ev))
		}
	}))

	go func() {
		answer := cli.app.Engine.Run(ctx, req)
		p.Send(answerMsg(answer))
	}()

	finalModel, err := p.Run()
	if err != nil {
		return askResult{}, err
	}

	m, ok := finalModel.(askModel)
	if !ok || !m.result.done {
		return askResult{}, fmt.Errorf("interrupted")
	}
	return m.result, nil
}
