package core

import (
	"sync"
	"time"
)

// Severity classifies a log event for presentation
type Severity int

const (
	SeverityOperation Severity = iota // An operation is about to start
	SeverityAction                    // A file-level change completed
	SeveritySuccess
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityOperation:
		return "operation"
	case SeverityAction:
		return "action"
	case SeveritySuccess:
		return "success"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a line of user-facing run output
type Event struct {
	Time      time.Time
	Selection string // Display name, empty for run-level events
	Text      string
	Severity  Severity
}

// Progress carries completion percentages in [0,100]
type Progress struct {
	Selection int
	Overall   int
}

// Reporter receives run output. Calls come from the worker goroutine, so
// implementations hand the values over to the presentation side instead of
// touching its state directly.
type Reporter interface {
	Log(Event)
	Progress(Progress)
}

// NopReporter discards everything
type NopReporter struct{}

func (NopReporter) Log(Event)         {}
func (NopReporter) Progress(Progress) {}

// RecordingReporter keeps every event and progress update in memory
type RecordingReporter struct {
	mu       sync.Mutex
	events   []Event
	progress []Progress
}

func (r *RecordingReporter) Log(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *RecordingReporter) Progress(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
}

// Events returns a copy of the recorded events
func (r *RecordingReporter) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Updates returns a copy of the recorded progress updates
func (r *RecordingReporter) Updates() []Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Progress(nil), r.progress...)
}

// Tracker scopes reporting to the selection being processed and folds its
// progress into the overall run progress. A nil Tracker discards everything.
type Tracker struct {
	rep       Reporter
	total     int
	done      int
	overall   int
	selection string
}

// NewTracker creates a tracker for a run over total selections
func NewTracker(rep Reporter, total int) *Tracker {
	if rep == nil {
		rep = NopReporter{}
	}
	if total < 1 {
		total = 1
	}
	return &Tracker{rep: rep, total: total}
}

// Begin starts reporting for the named selection
func (t *Tracker) Begin(name string) {
	if t == nil {
		return
	}
	t.selection = name
	t.Progress(0)
}

// Complete marks the current selection as finished, whatever its result
func (t *Tracker) Complete() {
	if t == nil {
		return
	}
	t.done++
	t.selection = ""
}

// Log emits an event attributed to the current selection
func (t *Tracker) Log(text string, sev Severity) {
	if t == nil {
		return
	}
	t.rep.Log(Event{Time: time.Now(), Selection: t.selection, Text: text, Severity: sev})
}

// Progress reports the current selection's completion. Overall progress
// never moves backwards.
func (t *Tracker) Progress(percent int) {
	if t == nil {
		return
	}
	percent = min(max(percent, 0), 100)
	overall := t.done*100/t.total + percent/t.total
	if overall < t.overall {
		overall = t.overall
	}
	t.overall = overall
	t.rep.Progress(Progress{Selection: percent, Overall: overall})
}

// Finish reports the run as fully complete
func (t *Tracker) Finish() {
	if t == nil {
		return
	}
	t.overall = 100
	t.rep.Progress(Progress{Selection: 100, Overall: 100})
}
