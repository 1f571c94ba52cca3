package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"dlcinst/internal/domain"
)

// HookContext provides environment information for hook scripts
type HookContext struct {
	Mode        string // "install" or "uninstall"
	Hook        string // e.g. "install.before_all"
	SelectionID string // Empty for *_all hooks
	Platform    string // Empty for *_all hooks
	Name        string // Empty for *_all hooks
	Root        string // Empty for *_all hooks
}

func newHookContext(mode Mode, hook string, sel *domain.ProgramSelection) HookContext {
	hc := HookContext{Mode: mode.String(), Hook: mode.String() + "." + hook}
	if sel != nil {
		hc.SelectionID = sel.ID
		hc.Platform = sel.Platform.String()
		hc.Name = sel.Name
		hc.Root = sel.RootDirectory
	}
	return hc
}

// HookResult contains the output from running a hook
type HookResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// HookRunner executes hook scripts with timeout and environment
type HookRunner struct {
	timeout time.Duration
}

// NewHookRunner creates a new hook runner with the given timeout
func NewHookRunner(timeout time.Duration) *HookRunner {
	return &HookRunner{timeout: timeout}
}

// Run executes a hook script and returns its output
func (r *HookRunner) Run(ctx context.Context, scriptPath string, hc HookContext) (*HookResult, error) {
	result := &HookResult{}

	info, err := os.Stat(scriptPath)
	if os.IsNotExist(err) {
		return result, fmt.Errorf("hook script not found: %s", scriptPath)
	}
	if err != nil {
		return result, fmt.Errorf("checking hook script: %w", err)
	}

	if info.Mode()&0111 == 0 {
		return result, fmt.Errorf("hook script not executable: %s", scriptPath)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, scriptPath)
	cmd.WaitDelay = 100 * time.Millisecond // Allow graceful shutdown after context cancel
	cmd.Env = append(os.Environ(),
		"DLCINST_MODE="+hc.Mode,
		"DLCINST_HOOK="+hc.Hook,
		"DLCINST_SELECTION_ID="+hc.SelectionID,
		"DLCINST_PLATFORM="+hc.Platform,
		"DLCINST_NAME="+hc.Name,
		"DLCINST_ROOT="+hc.Root,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return result, fmt.Errorf("hook timed out after %v: %s", r.timeout, scriptPath)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, fmt.Errorf("hook failed with exit code %d: %s", result.ExitCode, scriptPath)
		}
		return result, fmt.Errorf("running hook: %w", err)
	}

	return result, nil
}
