package core

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"

	"dlcinst/internal/component"
	"dlcinst/internal/domain"
	"dlcinst/internal/probe"
)

// Orchestrator brings the directories of one selection into the state the
// selection asks for. It decides per directory from the probed on-disk state,
// so running it twice with the same selection changes nothing the second time.
type Orchestrator struct {
	prober       *probe.Prober
	installer    *component.Installer
	defaultProxy string
	logger       *slog.Logger
}

// NewOrchestrator creates a new orchestrator. defaultProxy is used for
// selections that enable Koaloader without naming a proxy.
func NewOrchestrator(prober *probe.Prober, installer *component.Installer, defaultProxy string, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if defaultProxy == "" {
		defaultProxy = component.DefaultProxy
	}
	return &Orchestrator{
		prober:       prober,
		installer:    installer,
		defaultProxy: defaultProxy,
		logger:       logger,
	}
}

// Reconcile runs the four reconciliation steps for sel. With uninstallAll set
// every component is removed instead. The first failing step aborts the
// selection; earlier changes are kept.
func (o *Orchestrator) Reconcile(sel *domain.ProgramSelection, uninstallAll bool, t *Tracker) error {
	o.logger.Debug("reconciling", "selection", sel.Key().String(), "uninstall", uninstallAll, "koaloader", sel.Koaloader)

	if err := o.removeStaleLoaders(sel, t); err != nil {
		return err
	}

	if uninstallAll || !sel.Koaloader {
		if err := o.removeLoaders(sel, t); err != nil {
			return err
		}
	}

	if err := o.reconcileShims(sel, uninstallAll || sel.Koaloader, t); err != nil {
		return err
	}

	if sel.Koaloader && !uninstallAll {
		if err := o.installLoaders(sel, t); err != nil {
			return err
		}
	}

	t.Progress(100)
	return nil
}

// StaleDirectories lists the directories under the selection root, root
// included, that hold Koaloader files but are not executable directories.
func (o *Orchestrator) StaleDirectories(sel *domain.ProgramSelection) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(sel.RootDirectory, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == sel.RootDirectory {
				return err
			}
			o.logger.Debug("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() || sel.IsExecutableDirectory(path) {
			return nil
		}
		if o.prober.Loader(path).Any() {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, domain.Filesystem(domain.KindKoaloader, sel.RootDirectory, "scanning root directory", err)
	}
	return dirs, nil
}

func (o *Orchestrator) removeStaleLoaders(sel *domain.ProgramSelection, t *Tracker) error {
	dirs, err := o.StaleDirectories(sel)
	if err != nil {
		t.Log(err.Error(), SeverityError)
		return err
	}
	for _, dir := range dirs {
		t.Log(fmt.Sprintf("Uninstalling Koaloader from %s in incorrect directory %q", sel.Name, dir), SeverityOperation)
		if err := o.installer.UninstallLoader(dir); err != nil {
			t.Log(err.Error(), SeverityError)
			return err
		}
		t.Log(fmt.Sprintf("Removed Koaloader from %q", dir), SeverityAction)
	}
	return nil
}

func (o *Orchestrator) removeLoaders(sel *domain.ProgramSelection, t *Tracker) error {
	for _, d := range sel.ExecutableDirectories {
		if !o.prober.Loader(d.Path).Any() {
			continue
		}
		t.Log(fmt.Sprintf("Uninstalling Koaloader from %s in %q", sel.Name, d.Path), SeverityOperation)
		if err := o.installer.UninstallLoader(d.Path); err != nil {
			t.Log(err.Error(), SeverityError)
			return err
		}
		t.Log(fmt.Sprintf("Removed Koaloader from %q", d.Path), SeverityAction)
	}
	return nil
}

// reconcileShims applies the direct shim rule to every DLL directory. When
// the loader is the target (or everything is being removed) direct shims are
// taken out; otherwise they are installed or have their config refreshed.
func (o *Orchestrator) reconcileShims(sel *domain.ProgramSelection, proxyTarget bool, t *Tracker) error {
	kinds := sel.ApplicableShims()
	count := len(sel.DllDirectories)

	for i, dir := range sel.DllDirectories {
		for _, kind := range kinds {
			st := o.prober.Shim(dir, kind)

			switch {
			case proxyTarget && st.Any():
				t.Log(fmt.Sprintf("Uninstalling %s from %s in %q", kind, sel.Name, dir), SeverityOperation)
				if err := o.installer.Uninstall(dir, kind); err != nil {
					t.Log(err.Error(), SeverityError)
					return err
				}
				t.Log(fmt.Sprintf("Removed %s from %q", kind, dir), SeverityAction)

			case !proxyTarget && !st.Active:
				t.Log(fmt.Sprintf("Installing %s for %s in %q", kind, sel.Name, dir), SeverityOperation)
				if err := o.installer.Install(dir, kind, sel, sel.ArchFor(dir)); err != nil {
					t.Log(err.Error(), SeverityError)
					return err
				}
				t.Log(fmt.Sprintf("Installed %s in %q", kind, dir), SeverityAction)

			case !proxyTarget:
				written, err := o.installer.SyncConfig(dir, kind, sel)
				if err != nil {
					t.Log(err.Error(), SeverityError)
					return err
				}
				if written {
					t.Log(fmt.Sprintf("Updated %s configuration in %q", kind, dir), SeverityAction)
				}
			}
		}
		t.Progress((i + 1) * 100 / count)
	}
	return nil
}

func (o *Orchestrator) installLoaders(sel *domain.ProgramSelection, t *Tracker) error {
	proxy := sel.KoaloaderProxy
	if proxy == "" {
		proxy = o.defaultProxy
	}
	for _, d := range sel.ExecutableDirectories {
		t.Log(fmt.Sprintf("Installing Koaloader for %s in %q", sel.Name, d.Path), SeverityOperation)
		if err := o.installer.InstallLoader(d.Path, sel, d.Arch, proxy); err != nil {
			t.Log(err.Error(), SeverityError)
			return err
		}
		t.Log(fmt.Sprintf("Installed Koaloader as %s.dll in %q", component.NormalizeProxy(proxy), d.Path), SeverityAction)
	}
	return nil
}
