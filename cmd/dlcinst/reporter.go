package main

import (
	"fmt"
	"io"
	"sync"

	"dlcinst/internal/core"
)

// lineReporter prints run events as plain lines, for non-interactive output
type lineReporter struct {
	mu       sync.Mutex
	w        io.Writer
	progress bool // Print overall progress when it changes
	overall  int
}

func newLineReporter(w io.Writer, progress bool) *lineReporter {
	return &lineReporter{w: w, progress: progress, overall: -1}
}

func (r *lineReporter) Log(e core.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.w, styleEvent(e))
}

func (r *lineReporter) Progress(p core.Progress) {
	if !r.progress {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.Overall == r.overall {
		return
	}
	r.overall = p.Overall
	fmt.Fprintf(r.w, "[%3d%%]\n", p.Overall)
}

func styleEvent(e core.Event) string {
	switch e.Severity {
	case core.SeverityOperation:
		return colorCyan(e.Text)
	case core.SeveritySuccess:
		return colorGreen(e.Text)
	case core.SeverityWarning:
		return colorYellow(e.Text)
	case core.SeverityError:
		return colorRed(e.Text)
	default:
		return "  " + e.Text
	}
}
