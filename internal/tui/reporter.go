package tui

import (
	"dlcinst/internal/core"

	tea "github.com/charmbracelet/bubbletea"
)

// EventMsg carries a run event into the view
type EventMsg core.Event

// ProgressMsg carries a progress update into the view
type ProgressMsg core.Progress

// ChanReporter forwards run output to the view over a channel. Sends block
// until the view has taken the previous message, so nothing is dropped and
// order is kept.
type ChanReporter struct {
	ch chan tea.Msg
}

// NewChanReporter creates a reporter with a small buffer
func NewChanReporter() *ChanReporter {
	return &ChanReporter{ch: make(chan tea.Msg, 64)}
}

func (r *ChanReporter) Log(e core.Event) {
	r.ch <- EventMsg(e)
}

func (r *ChanReporter) Progress(p core.Progress) {
	r.ch <- ProgressMsg(p)
}

// listen waits for the next message from the worker
func (r *ChanReporter) listen() tea.Cmd {
	return func() tea.Msg {
		return <-r.ch
	}
}
