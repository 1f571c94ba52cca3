package tui_test

import (
	"context"
	"testing"

	"dlcinst/internal/core"
	"dlcinst/internal/domain"
	"dlcinst/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	state      core.RunState
	canceled   bool
	retried    int
	accepted   bool
	reselected bool
	retryWith  core.Outcome
}

func (f *fakeController) Start(context.Context) (core.Outcome, error) {
	return core.Outcome{State: core.StateSucceeded}, nil
}

func (f *fakeController) Retry(context.Context) (core.Outcome, error) {
	f.retried++
	return f.retryWith, nil
}

func (f *fakeController) Cancel()              { f.canceled = true }
func (f *fakeController) State() core.RunState { return f.state }

func (f *fakeController) Reselect() error {
	f.reselected = true
	return nil
}

func (f *fakeController) Accept() error {
	f.accepted = true
	return nil
}

func key(s string) tea.KeyMsg {
	if s == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newApp(ctrl *fakeController) tui.App {
	return tui.NewApp(context.Background(), "Installing DLC unlockers", ctrl, tui.NewChanReporter(), nil)
}

func update(t *testing.T, app tui.App, msg tea.Msg) (tui.App, tea.Cmd) {
	t.Helper()
	model, cmd := app.Update(msg)
	updated, ok := model.(tui.App)
	require.True(t, ok)
	return updated, cmd
}

func partialFailure() tui.RunFinishedMsg {
	return tui.RunFinishedMsg{
		Outcome: core.Outcome{State: core.StatePartiallyFailed, Total: 3, Failed: []string{"Game 2"}},
		Err:     domain.ErrPartialFailure,
	}
}

func TestApp_InitialState(t *testing.T) {
	app := newApp(&fakeController{})

	assert.True(t, app.Running())
	assert.Nil(t, app.Outcome())
	assert.NotNil(t, app.Init())
	assert.Contains(t, app.View(), "Installing DLC unlockers")
	assert.Contains(t, app.View(), "c: cancel")
}

func TestApp_EventsAndProgress(t *testing.T) {
	app := newApp(&fakeController{})

	app, cmd := update(t, app, tui.EventMsg{Selection: "Game 1", Text: "Installing SmokeAPI", Severity: core.SeverityOperation})
	assert.NotNil(t, cmd, "view keeps listening for worker output")
	app, _ = update(t, app, tui.ProgressMsg{Selection: 50, Overall: 17})

	assert.Equal(t, 1, app.Lines())
	assert.Contains(t, app.View(), "Installing SmokeAPI")
	assert.Contains(t, app.View(), "Game 1")
}

func TestApp_CancelWhileRunning(t *testing.T) {
	ctrl := &fakeController{}
	app := newApp(ctrl)

	app, _ = update(t, app, key("c"))
	assert.True(t, ctrl.canceled)
	assert.Contains(t, app.View(), "Canceling")

	// Accept keys are ignored while running
	_, cmd := update(t, app, key("enter"))
	assert.Nil(t, cmd)
	assert.False(t, ctrl.accepted)
}

func TestApp_PartialFailureOffersRetry(t *testing.T) {
	ctrl := &fakeController{retryWith: core.Outcome{State: core.StateSucceeded, Total: 1}}
	app := newApp(ctrl)

	app, _ = update(t, app, partialFailure())
	assert.False(t, app.Running())
	assert.Contains(t, app.View(), "Operation failed for Game 2.")
	assert.Contains(t, app.View(), "r: retry")

	app, cmd := update(t, app, key("r"))
	require.NotNil(t, cmd)
	assert.True(t, app.Running())

	app, _ = update(t, app, cmd())
	assert.Equal(t, 1, ctrl.retried)
	assert.Equal(t, core.StateSucceeded, app.Outcome().Outcome.State)
	assert.NotContains(t, app.View(), "r: retry")
}

func TestApp_RetryIgnoredAfterSuccess(t *testing.T) {
	ctrl := &fakeController{}
	app := newApp(ctrl)
	app, _ = update(t, app, tui.RunFinishedMsg{Outcome: core.Outcome{State: core.StateSucceeded}})

	_, cmd := update(t, app, key("r"))
	assert.Nil(t, cmd)
	assert.Zero(t, ctrl.retried)
}

func TestApp_AcceptQuits(t *testing.T) {
	ctrl := &fakeController{}
	app := newApp(ctrl)
	app, _ = update(t, app, partialFailure())

	_, cmd := update(t, app, key("enter"))

	require.NotNil(t, cmd)
	_, isQuit := cmd().(tea.QuitMsg)
	assert.True(t, isQuit)
	assert.True(t, ctrl.accepted)
}

func TestApp_ReselectQuits(t *testing.T) {
	ctrl := &fakeController{}
	app := newApp(ctrl)
	app, _ = update(t, app, partialFailure())

	app, cmd := update(t, app, key("s"))

	require.NotNil(t, cmd)
	assert.True(t, ctrl.reselected)
	assert.True(t, app.Reselected())
}

func TestApp_WindowResize(t *testing.T) {
	app := newApp(&fakeController{})

	app, _ = update(t, app, tea.WindowSizeMsg{Width: 40, Height: 20})
	assert.NotEmpty(t, app.View())
}

func TestChanReporter_DeliversInOrder(t *testing.T) {
	rep := tui.NewChanReporter()
	app := tui.NewApp(context.Background(), "t", &fakeController{}, rep, nil)

	rep.Log(core.Event{Text: "first"})
	rep.Progress(core.Progress{Selection: 10, Overall: 10})

	// The listen command from an update hands over the next message
	_, cmd := update(t, app, tui.EventMsg{Text: "seed"})
	require.NotNil(t, cmd)
	assert.Equal(t, tui.EventMsg{Text: "first"}, cmd())
	_, cmd = update(t, app, tui.EventMsg{Text: "seed"})
	assert.Equal(t, tui.ProgressMsg{Selection: 10, Overall: 10}, cmd())
}
