// Package process finds running programs that live inside a selection's
// directory tree.
package process

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v4/process"

	"dlcinst/internal/domain"
)

// Info is the subset of a running process the checker looks at
type Info struct {
	PID     int32
	Name    string
	Exe     string
	Cmdline []string
}

// Lister enumerates running processes
type Lister func(ctx context.Context) ([]Info, error)

// Checker matches running processes against selection root directories
type Checker struct {
	list   Lister
	logger *slog.Logger
}

// NewChecker creates a checker backed by the operating system process table
func NewChecker(logger *slog.Logger) *Checker {
	return NewCheckerWithLister(SystemProcesses, logger)
}

// NewCheckerWithLister creates a checker with a custom process source
func NewCheckerWithLister(list Lister, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Checker{list: list, logger: logger}
}

// Running returns the names of processes whose executable, or whose
// Wine-style command line, points inside the selection root directory.
func (c *Checker) Running(ctx context.Context, sel *domain.ProgramSelection) ([]string, error) {
	if sel.RootDirectory == "" {
		return nil, nil
	}
	root := resolve(sel.RootDirectory)

	procs, err := c.list(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}

	seen := map[string]bool{}
	var names []string
	for _, p := range procs {
		if !c.belongs(p, root) {
			continue
		}
		name := p.Name
		if name == "" {
			name = filepath.Base(p.Exe)
		}
		c.logger.Debug("process inside selection", "pid", p.PID, "name", name, "root", root)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (c *Checker) belongs(p Info, root string) bool {
	if p.Exe != "" && within(resolve(p.Exe), root) {
		return true
	}
	// argv[0] is the program itself; later arguments only count when they
	// name a Windows executable, as Wine and Proton launchers pass the game.
	for i, arg := range p.Cmdline {
		if i > 0 && !strings.HasSuffix(strings.ToLower(arg), ".exe") {
			continue
		}
		if path, ok := hostPath(arg); ok && within(path, root) {
			return true
		}
	}
	return false
}

// SystemProcesses lists processes through gopsutil. Processes that vanish or
// deny access while being read are skipped.
func SystemProcesses(ctx context.Context) ([]Info, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(procs))
	for _, p := range procs {
		exe, _ := p.ExeWithContext(ctx)
		cmdline, _ := p.CmdlineSliceWithContext(ctx)
		if exe == "" && len(cmdline) == 0 {
			continue
		}
		name, _ := p.NameWithContext(ctx)
		infos = append(infos, Info{PID: p.Pid, Name: name, Exe: exe, Cmdline: cmdline})
	}
	return infos, nil
}

// hostPath turns a command line argument into a host path. Wine maps the
// host root to drive Z:, so "Z:\games\x.exe" becomes "/games/x.exe".
func hostPath(arg string) (string, bool) {
	switch {
	case strings.HasPrefix(arg, "/"):
		return filepath.Clean(arg), true
	case len(arg) > 2 && (arg[0] == 'Z' || arg[0] == 'z') && arg[1] == ':' && (arg[2] == '\\' || arg[2] == '/'):
		return filepath.Clean(strings.ReplaceAll(arg[2:], `\`, "/")), true
	default:
		return "", false
	}
}

func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "."
}

func resolve(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return filepath.Clean(path)
}
