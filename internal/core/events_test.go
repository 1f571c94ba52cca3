package core_test

import (
	"testing"

	"dlcinst/internal/core"

	"github.com/stretchr/testify/assert"
)

func TestTracker_OverallProgressIsMonotonic(t *testing.T) {
	rep := &core.RecordingReporter{}
	tr := core.NewTracker(rep, 4)

	tr.Begin("first")
	tr.Progress(50)
	tr.Progress(100)
	tr.Complete()
	tr.Begin("second")
	tr.Progress(100)
	tr.Complete()
	tr.Finish()

	updates := rep.Updates()
	assert.NotEmpty(t, updates)
	last := 0
	for _, u := range updates {
		assert.GreaterOrEqual(t, u.Overall, last)
		assert.LessOrEqual(t, u.Overall, 100)
		last = u.Overall
	}
	assert.Equal(t, 100, last)
}

func TestTracker_ClampsSelectionProgress(t *testing.T) {
	rep := &core.RecordingReporter{}
	tr := core.NewTracker(rep, 1)

	tr.Progress(150)
	tr.Progress(-5)

	updates := rep.Updates()
	assert.Equal(t, 100, updates[0].Selection)
	assert.Equal(t, 0, updates[1].Selection)
	assert.Equal(t, 100, updates[1].Overall)
}

func TestTracker_AttributesEventsToSelection(t *testing.T) {
	rep := &core.RecordingReporter{}
	tr := core.NewTracker(rep, 1)

	tr.Begin("Test Game")
	tr.Log("hello", core.SeverityAction)
	tr.Complete()
	tr.Log("done", core.SeveritySuccess)

	events := rep.Events()
	assert.Equal(t, "Test Game", events[0].Selection)
	assert.Equal(t, "", events[1].Selection)
	assert.Equal(t, "success", events[1].Severity.String())
}

func TestTracker_NilIsSafe(t *testing.T) {
	var tr *core.Tracker
	assert.NotPanics(t, func() {
		tr.Begin("x")
		tr.Log("x", core.SeverityOperation)
		tr.Progress(10)
		tr.Complete()
		tr.Finish()
	})
}
