package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// spinnerTask describes one blocking step shown behind a spinner.
type spinnerTask struct {
	Label string
	// Done is printed once the step succeeds; empty clears the line.
	Done string
	Run  func(context.Context) error
}

type taskFinishedMsg struct{ err error }

type taskModel struct {
	task    spinnerTask
	spinner spinner.Model
	start   tea.Cmd
	err     error
	over    bool
}

func (m taskModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.start)
}

func (m taskModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if finished, ok := msg.(taskFinishedMsg); ok {
		m.over, m.err = true, finished.err
		return m, tea.Quit
	}
	if tick, ok := msg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(tick)
		return m, cmd
	}
	return m, nil
}

func (m taskModel) View() string {
	switch {
	case !m.over:
		return m.spinner.View() + " " + m.task.Label
	case m.err == nil && m.task.Done != "":
		return doneStyle.Render("✓") + " " + m.task.Done + "\n"
	default:
		return ""
	}
}

// runSpinner animates task.Label on out until task.Run returns, and returns
// its error.
func runSpinner(ctx context.Context, out io.Writer, task spinnerTask) error {
	model := taskModel{
		task:    task,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
		start: func() tea.Msg {
			return taskFinishedMsg{err: task.Run(ctx)}
		},
	}

	final, err := tea.NewProgram(model,
		tea.WithInput(nil),
		tea.WithOutput(out),
		tea.WithContext(ctx),
	).Run()
	if err != nil {
		return err
	}

	m, ok := final.(taskModel)
	if !ok {
		return fmt.Errorf("unexpected spinner model %T", final)
	}
	return m.err
}
