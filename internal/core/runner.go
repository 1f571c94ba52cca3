package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"dlcinst/internal/domain"
)

// RunState is the state of a Runner
type RunState int

const (
	StateIdle RunState = iota
	StateRunning
	StateSucceeded
	StatePartiallyFailed
	StateCanceled
	StateAccepted
	StateReselected
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StatePartiallyFailed:
		return "partially_failed"
	case StateCanceled:
		return "canceled"
	case StateAccepted:
		return "accepted"
	case StateReselected:
		return "reselected"
	default:
		return "unknown"
	}
}

// Terminal reports whether a run in this state has finished
func (s RunState) Terminal() bool {
	return s == StateSucceeded || s == StatePartiallyFailed || s == StateCanceled
}

// Mode selects between installing and removing unlockers
type Mode int

const (
	ModeInstall Mode = iota
	ModeUninstall
)

func (m Mode) String() string {
	if m == ModeUninstall {
		return "uninstall"
	}
	return "install"
}

// ProcessChecker reports running processes that belong to a selection
type ProcessChecker interface {
	Running(ctx context.Context, sel *domain.ProgramSelection) ([]string, error)
}

// Recorder persists run history. Recording failures never fail a run.
type Recorder interface {
	BeginRun(mode string, total int) (int64, error)
	RecordSelection(runID int64, sel *domain.ProgramSelection, runErr error) error
	FinishRun(runID int64, state string) error
}

// RunnerOptions configures a Runner
type RunnerOptions struct {
	Mode     Mode
	Reporter Reporter       // Optional
	Checker  ProcessChecker // Optional: skips the running-process guard when nil
	Recorder Recorder       // Optional
	Logger   *slog.Logger   // Optional

	Hooks      domain.RunHooks
	HookRunner *HookRunner // Hooks are skipped when nil
}

// Outcome summarizes a finished run
type Outcome struct {
	Mode      Mode
	State     RunState
	Total     int
	Succeeded []string
	Failed    []string
}

// Message returns the user-facing summary of the outcome
func (o Outcome) Message() string {
	switch o.State {
	case StateSucceeded:
		return fmt.Sprintf("DLC unlockers successfully %s for %d %s.", o.verb(), o.Total, plural(o.Total, "program", "programs"))
	case StateCanceled:
		return "The operation was canceled."
	case StatePartiallyFailed:
		if len(o.Failed) == 1 {
			return fmt.Sprintf("Operation failed for %s.", o.Failed[0])
		}
		return fmt.Sprintf("Operation failed for %d programs.", len(o.Failed))
	default:
		return ""
	}
}

func (o Outcome) verb() string {
	if o.Mode == ModeUninstall {
		return "uninstalled"
	}
	return "installed"
}

// Runner drives reconciliation across every enabled selection of a registry.
// Selections are processed sequentially on the caller's goroutine; Cancel
// and State may be called from any goroutine.
type Runner struct {
	registry     *Registry
	orchestrator *Orchestrator
	opts         RunnerOptions
	logger       *slog.Logger

	canceled atomic.Bool

	mu       sync.Mutex
	state    RunState
	disabled []*domain.ProgramSelection
	programs int // Enabled selections when Start was called; kept across retries
}

// NewRunner creates a new runner
func NewRunner(registry *Registry, orchestrator *Orchestrator, opts RunnerOptions) *Runner {
	if opts.Reporter == nil {
		opts.Reporter = NopReporter{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{
		registry:     registry,
		orchestrator: orchestrator,
		opts:         opts,
		logger:       logger,
	}
}

// State returns the current run state
func (r *Runner) State() RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start runs over every enabled selection. It returns ErrCanceled when the
// run was canceled and ErrPartialFailure when any selection failed.
func (r *Runner) Start(ctx context.Context) (Outcome, error) {
	if err := r.transition(StateRunning, StateIdle, StateSucceeded, StateReselected); err != nil {
		return Outcome{}, err
	}
	r.canceled.Store(false)
	r.programs = len(r.registry.Enabled())
	return r.run(ctx)
}

// Retry runs again over the selections still enabled after a failed or
// canceled run. Selections that already succeeded stay disabled.
func (r *Runner) Retry(ctx context.Context) (Outcome, error) {
	if err := r.transition(StateRunning, StatePartiallyFailed, StateCanceled); err != nil {
		return Outcome{}, err
	}
	r.canceled.Store(false)
	return r.run(ctx)
}

// Cancel asks a running run to stop before its next selection. The
// selection in progress is always finished.
func (r *Runner) Cancel() {
	r.canceled.Store(true)
}

// Reselect restores the enabled flag of every selection the run disabled so
// the user can change the selection set.
func (r *Runner) Reselect() error {
	if err := r.transition(StateReselected, StateSucceeded, StatePartiallyFailed, StateCanceled); err != nil {
		return err
	}
	r.restoreDisabled()
	return nil
}

// Accept ends the session after a finished run
func (r *Runner) Accept() error {
	return r.transition(StateAccepted, StateSucceeded, StatePartiallyFailed, StateCanceled)
}

func (r *Runner) transition(to RunState, from ...RunState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range from {
		if r.state == s {
			r.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: cannot move from %s to %s", domain.ErrInvalidTransition, r.state, to)
}

func (r *Runner) setState(s RunState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
}

func (r *Runner) restoreDisabled() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sel := range r.disabled {
		sel.Enabled = true
	}
	r.disabled = nil
}

func (r *Runner) run(ctx context.Context) (Outcome, error) {
	mode := r.opts.Mode
	selections := r.registry.Enabled()
	outcome := Outcome{Mode: mode, Total: r.programs}
	tracker := NewTracker(r.opts.Reporter, len(selections))

	runID := r.beginRecord(mode, len(selections))
	r.logger.Debug("run started", "mode", mode.String(), "selections", len(selections))

	hooks := r.hooks()
	var beforeAll error
	if err := r.runHook(ctx, hooks.BeforeAll, "before_all", nil); err != nil {
		tracker.Log(fmt.Sprintf("Hook %s.before_all failed: %v", mode, err), SeverityError)
		beforeAll = fmt.Errorf("before_all hook: %w", err)
	}

	for _, sel := range selections {
		if r.canceled.Load() || ctx.Err() != nil {
			tracker.Log("The operation was canceled.", SeverityWarning)
			outcome.State = StateCanceled
			r.setState(StateCanceled)
			r.finishRecord(runID, StateCanceled)
			return outcome, domain.ErrCanceled
		}

		tracker.Begin(sel.Name)
		err := beforeAll
		if err == nil {
			err = r.process(ctx, sel, mode, tracker)
		}
		if err != nil {
			tracker.Log(fmt.Sprintf("Operation failed for %s: %v", sel.Name, err), SeverityError)
			outcome.Failed = append(outcome.Failed, sel.Name)
		} else {
			tracker.Log(fmt.Sprintf("Operation succeeded for %s.", sel.Name), SeveritySuccess)
			outcome.Succeeded = append(outcome.Succeeded, sel.Name)
			r.mu.Lock()
			sel.Enabled = false
			r.disabled = append(r.disabled, sel)
			r.mu.Unlock()
		}
		r.recordSelection(runID, sel, err)
		tracker.Complete()
	}

	tracker.Finish()

	if beforeAll == nil {
		if err := r.runHook(ctx, hooks.AfterAll, "after_all", nil); err != nil {
			tracker.Log(fmt.Sprintf("Hook %s.after_all failed: %v", mode, err), SeverityWarning)
		}
	}

	if len(outcome.Failed) > 0 {
		outcome.State = StatePartiallyFailed
		r.setState(StatePartiallyFailed)
		r.finishRecord(runID, StatePartiallyFailed)
		tracker.Log(outcome.Message(), SeverityError)
		if len(outcome.Failed) == 1 {
			return outcome, fmt.Errorf("%w for %s", domain.ErrPartialFailure, outcome.Failed[0])
		}
		return outcome, fmt.Errorf("%w for %d programs", domain.ErrPartialFailure, len(outcome.Failed))
	}

	r.restoreDisabled()
	outcome.State = StateSucceeded
	r.setState(StateSucceeded)
	r.finishRecord(runID, StateSucceeded)
	tracker.Log(outcome.Message(), SeveritySuccess)
	return outcome, nil
}

func (r *Runner) process(ctx context.Context, sel *domain.ProgramSelection, mode Mode, t *Tracker) error {
	if r.opts.Checker != nil {
		running, err := r.opts.Checker.Running(ctx, sel)
		if err != nil {
			r.logger.Warn("checking running processes", "selection", sel.Name, "error", err)
			return fmt.Errorf("%w: could not check running processes: %w", domain.ErrProcessRunning, err)
		}
		if len(running) > 0 {
			return fmt.Errorf("%w: %s", domain.ErrProcessRunning, strings.Join(running, ", "))
		}
	}

	hooks := r.hooks()
	if err := r.runHook(ctx, hooks.BeforeEach, "before_each", sel); err != nil {
		return fmt.Errorf("before_each hook: %w", err)
	}

	if err := r.orchestrator.Reconcile(sel, mode == ModeUninstall, t); err != nil {
		return err
	}

	if err := r.runHook(ctx, hooks.AfterEach, "after_each", sel); err != nil {
		t.Log(fmt.Sprintf("Hook %s.after_each failed: %v", mode, err), SeverityWarning)
	}
	return nil
}

// hooks returns the hooks of the runner's mode, empty when hooks are off
func (r *Runner) hooks() domain.HookConfig {
	if r.opts.HookRunner == nil {
		return domain.HookConfig{}
	}
	return r.opts.Hooks.For(r.opts.Mode == ModeUninstall)
}

func (r *Runner) runHook(ctx context.Context, script, hook string, sel *domain.ProgramSelection) error {
	if script == "" {
		return nil
	}
	hc := newHookContext(r.opts.Mode, hook, sel)
	result, err := r.opts.HookRunner.Run(ctx, script, hc)
	if result != nil {
		r.logger.Debug("hook finished", "hook", hc.Hook, "selection", hc.Name,
			"exit_code", result.ExitCode, "stdout", result.Stdout, "stderr", result.Stderr)
	}
	return err
}

func (r *Runner) beginRecord(mode Mode, total int) int64 {
	if r.opts.Recorder == nil {
		return 0
	}
	id, err := r.opts.Recorder.BeginRun(mode.String(), total)
	if err != nil {
		r.logger.Warn("recording run", "error", err)
		return 0
	}
	return id
}

func (r *Runner) recordSelection(runID int64, sel *domain.ProgramSelection, runErr error) {
	if r.opts.Recorder == nil || runID == 0 {
		return
	}
	if err := r.opts.Recorder.RecordSelection(runID, sel, runErr); err != nil {
		r.logger.Warn("recording selection result", "selection", sel.Name, "error", err)
	}
}

func (r *Runner) finishRecord(runID int64, state RunState) {
	if r.opts.Recorder == nil || runID == 0 {
		return
	}
	if err := r.opts.Recorder.FinishRun(runID, state.String()); err != nil {
		r.logger.Warn("recording run result", "error", err)
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
