package ui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCanceled is returned when the user aborts a running action.
var ErrCanceled = errors.New("operation canceled")

// RunSpinner runs a Bubble Tea spinner while executing action. The UI exits
// when the action completes and returns the action's error. Progress text
// sent on the channel passed to action replaces the title.
//
// action runs under a context derived from ctx that is canceled as soon as
// the UI exits, including when the user aborts. RunSpinner waits for action
// to return before returning itself, so action must honor that context.
func RunSpinner(ctx context.Context, title string, action func(ctx context.Context, progress chan<- string) error, opts ...tea.ProgramOption) error {
	if ctx == nil {
		ctx = context.Background()
	}
	actx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newSpinnerModel(title)
	p := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)...)

	progress := make(chan string, 16)
	go func() {
		for text := range progress {
			p.Send(progressMsg(text))
		}
	}()
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		err := action(actx, progress)
		close(progress)
		p.Send(actionDoneMsg{err: err})
	}()

	final, err := p.Run()
	cancel()
	<-finished
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return final.(*spinnerModel).err
}

type actionDoneMsg struct{ err error }

type progressMsg string

type spinnerModel struct {
	title string
	spin  spinner.Model
	done  bool
	err   error
	style lipgloss.Style
}

func newSpinnerModel(title string) *spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return &spinnerModel{
		title: title,
		spin:  s,
		style: lipgloss.NewStyle().Padding(0, 1),
	}
}

func (m *spinnerModel) Init() tea.Cmd {
	return m.spin.Tick
}

func (m *spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.done = true
			m.err = ErrCanceled
			return m, tea.Quit
		}
	case progressMsg:
		m.title = string(msg)
	case actionDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *spinnerModel) View() string {
	if m.done {
		if m.err != nil {
			return m.style.Render("✗ "+m.title+" ("+m.err.Error()+")") + "\n"
		}
		return m.style.Render("✓ "+m.title) + "\n"
	}
	return m.style.Render(m.spin.View() + " " + m.title)
}
