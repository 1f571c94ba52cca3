package tui

import (
	"context"
	"fmt"
	"strings"

	"dlcinst/internal/core"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Controller is the part of the run controller the view drives
type Controller interface {
	Start(ctx context.Context) (core.Outcome, error)
	Retry(ctx context.Context) (core.Outcome, error)
	Cancel()
	Reselect() error
	Accept() error
	State() core.RunState
}

// RunFinishedMsg is sent when the worker returns
type RunFinishedMsg struct {
	Outcome core.Outcome
	Err     error
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	actionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// App is the run view model
type App struct {
	ctx        context.Context
	title      string
	controller Controller
	reporter   *ChanReporter
	keys       *KeyMap

	spinner   spinner.Model
	selBar    progress.Model
	totalBar  progress.Model
	log       viewport.Model
	lines     []string
	current   string
	selection int
	overall   int

	running    bool
	canceling  bool
	outcome    *RunFinishedMsg
	reselected bool
	width      int
	height     int
}

// NewApp creates the run view. The run starts when the program starts.
func NewApp(ctx context.Context, title string, controller Controller, reporter *ChanReporter, keys *KeyMap) App {
	if keys == nil {
		keys = NewKeyMap("")
	}
	return App{
		ctx:        ctx,
		title:      title,
		controller: controller,
		reporter:   reporter,
		keys:       keys,
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(actionStyle)),
		selBar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(60)),
		totalBar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(60)),
		log:        viewport.New(80, 12),
		running:    true,
		width:      80,
		height:     24,
	}
}

// Init implements tea.Model
func (a App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.reporter.listen(), a.run(a.controller.Start))
}

func (a App) run(fn func(context.Context) (core.Outcome, error)) tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		outcome, err := fn(ctx)
		return RunFinishedMsg{Outcome: outcome, Err: err}
	}
}

// Update implements tea.Model
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		barWidth := min(max(msg.Width-4, 10), 80)
		a.selBar.Width = barWidth
		a.totalBar.Width = barWidth
		a.log.Width = msg.Width
		a.log.Height = max(msg.Height-12, 3)
		return a, nil

	case EventMsg:
		a.appendLine(core.Event(msg))
		return a, a.reporter.listen()

	case ProgressMsg:
		a.selection = msg.Selection
		a.overall = msg.Overall
		return a, a.reporter.listen()

	case RunFinishedMsg:
		a.running = false
		a.canceling = false
		a.outcome = &msg
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

func (a App) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case a.keys.IsScrollUp(msg), a.keys.IsScrollDown(msg):
		a.log, cmd = a.log.Update(msg)
		return a, cmd

	case a.running:
		if a.keys.IsCancel(msg) && !a.canceling {
			a.canceling = true
			a.controller.Cancel()
		}
		return a, nil

	case a.keys.IsRetry(msg) && a.retryable():
		a.running = true
		a.outcome = nil
		a.selection, a.overall = 0, 0
		return a, a.run(a.controller.Retry)

	case a.keys.IsReselect(msg):
		if err := a.controller.Reselect(); err != nil {
			return a, nil
		}
		a.reselected = true
		return a, tea.Quit

	case a.keys.IsAccept(msg):
		if err := a.controller.Accept(); err != nil {
			return a, nil
		}
		return a, tea.Quit
	}
	return a, nil
}

func (a App) retryable() bool {
	if a.outcome == nil {
		return false
	}
	s := a.outcome.Outcome.State
	return s == core.StatePartiallyFailed || s == core.StateCanceled
}

func (a *App) appendLine(e core.Event) {
	text := e.Text
	switch e.Severity {
	case core.SeverityOperation:
		a.current = e.Selection
		text = dimStyle.Render(text)
	case core.SeverityAction:
		text = actionStyle.Render("  " + text)
	case core.SeveritySuccess:
		text = successStyle.Render(text)
	case core.SeverityWarning:
		text = warningStyle.Render(text)
	case core.SeverityError:
		text = errorStyle.Render(text)
	}
	a.lines = append(a.lines, text)
	a.log.SetContent(strings.Join(a.lines, "\n"))
	a.log.GotoBottom()
}

// Outcome returns the finished run, or nil while running
func (a App) Outcome() *RunFinishedMsg {
	return a.outcome
}

// Reselected reports whether the user left the view to change selections
func (a App) Reselected() bool {
	return a.reselected
}

// Running reports whether a run is in progress
func (a App) Running() bool {
	return a.running
}

// Lines returns the number of log lines received
func (a App) Lines() int {
	return len(a.lines)
}

// View implements tea.Model
func (a App) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(a.title))
	b.WriteString("\n")

	status := ""
	switch {
	case a.canceling:
		status = warningStyle.Render("Canceling after the current program...")
	case a.running:
		status = a.spinner.View() + " " + a.current
	case a.outcome != nil:
		status = a.renderOutcome()
	}
	b.WriteString(status + "\n\n")

	b.WriteString(dimStyle.Render("Program") + "\n")
	b.WriteString(a.selBar.ViewAs(float64(a.selection)/100) + "\n")
	b.WriteString(dimStyle.Render("Overall") + "\n")
	b.WriteString(a.totalBar.ViewAs(float64(a.overall)/100) + "\n\n")

	b.WriteString(a.log.View() + "\n\n")
	b.WriteString(dimStyle.Render(a.keys.Help(!a.running, a.retryable())))
	return b.String()
}

func (a App) renderOutcome() string {
	o := a.outcome.Outcome
	msg := o.Message()
	if msg == "" && a.outcome.Err != nil {
		msg = a.outcome.Err.Error()
	}
	switch o.State {
	case core.StateSucceeded:
		return successStyle.Render(msg)
	case core.StateCanceled:
		return warningStyle.Render(msg)
	default:
		return errorStyle.Render(msg)
	}
}

// Run shows the run view until the user accepts or reselects. It returns the
// final view model.
func Run(ctx context.Context, title string, controller Controller, reporter *ChanReporter, keys *KeyMap) (App, error) {
	p := tea.NewProgram(NewApp(ctx, title, controller, reporter, keys), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return App{}, fmt.Errorf("running view: %w", err)
	}
	return final.(App), nil
}
