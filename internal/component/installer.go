package component

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"dlcinst/internal/domain"
	"dlcinst/internal/linker"
	"dlcinst/internal/payload"
	"dlcinst/internal/storage/cache"
)

// Installer performs the file operations of every component kind in a
// single directory. Steps are individually idempotent; a failed step aborts
// the rest of that component without undoing earlier steps.
type Installer struct {
	payloads payload.Provider
	cache    *cache.Cache
	linker   linker.Linker
	logger   *slog.Logger
}

// NewInstaller creates a new installer. A nil logger discards debug output.
func NewInstaller(payloads payload.Provider, cache *cache.Cache, lnk linker.Linker, logger *slog.Logger) *Installer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Installer{
		payloads: payloads,
		cache:    cache,
		linker:   lnk,
		logger:   logger,
	}
}

// Install places the shim of kind into dir for sel. arch picks the variant
// when dir holds no library of the shim yet.
func (i *Installer) Install(dir string, kind domain.ComponentKind, sel *domain.ProgramSelection, arch domain.Arch) error {
	spec, ok := Shim(kind)
	if !ok {
		return fmt.Errorf("%s is not a shim", kind)
	}

	variants := variantsFor(spec, dir, arch)

	// Every conflict is detected before the first mutation.
	for _, v := range variants {
		target := filepath.Join(dir, v.Target)
		backup := filepath.Join(dir, v.Backup())
		if !exists(target) || i.payloads.IsOwnFile(target, kind) || !exists(backup) {
			continue
		}
		same, err := payload.SameContent(target, backup)
		if err != nil {
			return domain.Filesystem(kind, dir, "comparing backup", err)
		}
		if !same {
			return domain.Conflict(kind, dir, "backing up original",
				"%s differs from existing backup %s", v.Target, v.Backup())
		}
	}

	for _, v := range variants {
		target := filepath.Join(dir, v.Target)
		backup := filepath.Join(dir, v.Backup())

		if exists(target) && !i.payloads.IsOwnFile(target, kind) {
			if exists(backup) {
				// Identical copy already backed up.
				if err := os.Remove(target); err != nil {
					return domain.Filesystem(kind, dir, "removing duplicate original", err)
				}
			} else {
				i.logger.Debug("backing up original", "kind", kind, "file", target)
				if err := os.Rename(target, backup); err != nil {
					return domain.Filesystem(kind, dir, "backing up original", err)
				}
			}
		}

		if err := i.deploy(kind, v.Arch, target); err != nil {
			return domain.Filesystem(kind, dir, "writing payload", err)
		}
	}

	if _, err := i.SyncConfig(dir, kind, sel); err != nil {
		return err
	}

	return nil
}

// SyncConfig writes the shim's configuration for sel when the file is missing
// or differs. It reports whether the file was written.
func (i *Installer) SyncConfig(dir string, kind domain.ComponentKind, sel *domain.ProgramSelection) (bool, error) {
	spec, ok := Shim(kind)
	if !ok {
		return false, fmt.Errorf("%s is not a shim", kind)
	}

	content, err := ShimConfig(kind, sel)
	if err != nil {
		return false, domain.Filesystem(kind, dir, "generating config", err)
	}
	written, err := writeIfChanged(filepath.Join(dir, spec.Config), content)
	if err != nil {
		return false, domain.Filesystem(kind, dir, "writing config", err)
	}
	return written, nil
}

// Uninstall removes the shim of kind from dir and restores any backed up
// original. Calling it on a clean directory is a successful no-op.
func (i *Installer) Uninstall(dir string, kind domain.ComponentKind) error {
	spec, ok := Shim(kind)
	if !ok {
		return fmt.Errorf("%s is not a shim", kind)
	}

	for _, v := range spec.Variants {
		target := filepath.Join(dir, v.Target)
		backup := filepath.Join(dir, v.Backup())
		if exists(backup) && exists(target) && !i.payloads.IsOwnFile(target, kind) {
			return domain.Conflict(kind, dir, "restoring original",
				"%s is not an installer file and would be replaced by %s", v.Target, v.Backup())
		}
	}

	for _, v := range spec.Variants {
		target := filepath.Join(dir, v.Target)
		backup := filepath.Join(dir, v.Backup())

		if exists(target) && i.payloads.IsOwnFile(target, kind) {
			if err := remove(target); err != nil {
				return domain.Filesystem(kind, dir, "removing payload", err)
			}
		}

		if exists(backup) {
			i.logger.Debug("restoring original", "kind", kind, "file", target)
			if err := os.Rename(backup, target); err != nil {
				return domain.Filesystem(kind, dir, "restoring original", err)
			}
		}
	}

	if err := remove(filepath.Join(dir, spec.Config)); err != nil {
		return domain.Filesystem(kind, dir, "removing config", err)
	}
	if spec.Cache != "" {
		if err := remove(filepath.Join(dir, spec.Cache)); err != nil {
			return domain.Filesystem(kind, dir, "removing cache", err)
		}
	}

	return nil
}

// InstallLoader places Koaloader into dir under the given proxy name together
// with the modules of every shim that applies to sel.
func (i *Installer) InstallLoader(dir string, sel *domain.ProgramSelection, arch domain.Arch, proxy string) error {
	kind := domain.KindKoaloader
	if arch == domain.ArchUnknown {
		arch = domain.Arch64
	}

	proxy = NormalizeProxy(proxy)
	if !IsProxy(proxy) {
		return fmt.Errorf("%w: unsupported Koaloader proxy %q", domain.ErrInvalidConfig, proxy)
	}

	proxyPath := filepath.Join(dir, proxy+".dll")
	if exists(proxyPath) && !i.payloads.IsOwnFile(proxyPath, kind) {
		return domain.Conflict(kind, dir, "writing proxy", "%s.dll is not a Koaloader file", proxy)
	}

	wanted := map[string]bool{}
	for _, shim := range sel.ApplicableShims() {
		spec, _ := Shim(shim)
		module := filepath.Join(dir, spec.ModuleName(arch))
		if exists(module) && !i.payloads.IsOwnFile(module, shim) {
			return domain.Conflict(kind, dir, "writing module", "%s is not a %s file", spec.ModuleName(arch), shim)
		}
		wanted[module] = true
	}

	for _, other := range Proxies {
		if other == proxy {
			continue
		}
		path := filepath.Join(dir, other+".dll")
		if exists(path) && i.payloads.IsOwnFile(path, kind) {
			i.logger.Debug("removing previous proxy", "file", path)
			if err := remove(path); err != nil {
				return domain.Filesystem(kind, dir, "removing previous proxy", err)
			}
		}
	}

	if err := i.deploy(kind, arch, proxyPath); err != nil {
		return domain.Filesystem(kind, dir, "writing proxy", err)
	}

	if err := i.removeModules(dir, wanted); err != nil {
		return err
	}
	for _, shim := range sel.ApplicableShims() {
		spec, _ := Shim(shim)
		if err := i.deploy(shim, arch, filepath.Join(dir, spec.ModuleName(arch))); err != nil {
			return domain.Filesystem(kind, dir, "writing module", err)
		}
	}

	content, err := LoaderConfigFor(sel, arch)
	if err != nil {
		return domain.Filesystem(kind, dir, "generating config", err)
	}
	if _, err := writeIfChanged(filepath.Join(dir, LoaderConfig), content); err != nil {
		return domain.Filesystem(kind, dir, "writing config", err)
	}

	return nil
}

// UninstallLoader removes every Koaloader proxy, module and config from dir.
// Files with Koaloader names that the installer did not write are left alone.
func (i *Installer) UninstallLoader(dir string) error {
	kind := domain.KindKoaloader

	for _, proxy := range Proxies {
		path := filepath.Join(dir, proxy+".dll")
		if exists(path) && i.payloads.IsOwnFile(path, kind) {
			if err := remove(path); err != nil {
				return domain.Filesystem(kind, dir, "removing proxy", err)
			}
		}
	}

	if err := i.removeModules(dir, nil); err != nil {
		return err
	}

	if err := remove(filepath.Join(dir, LoaderConfig)); err != nil {
		return domain.Filesystem(kind, dir, "removing config", err)
	}

	return nil
}

// removeModules deletes installer-owned Koaloader modules not in keep
func (i *Installer) removeModules(dir string, keep map[string]bool) error {
	for _, shim := range domain.ShimKinds {
		spec, _ := Shim(shim)
		for _, arch := range []domain.Arch{domain.Arch32, domain.Arch64} {
			module := filepath.Join(dir, spec.ModuleName(arch))
			if keep[module] || !exists(module) || !i.payloads.IsOwnFile(module, shim) {
				continue
			}
			if err := remove(module); err != nil {
				return domain.Filesystem(domain.KindKoaloader, dir, "removing module", err)
			}
		}
	}
	return nil
}

func (i *Installer) deploy(kind domain.ComponentKind, arch domain.Arch, dst string) error {
	data, err := i.payloads.Payload(kind, arch)
	if err != nil {
		return err
	}
	src, err := i.cache.Ensure(kind, arch, data)
	if err != nil {
		return err
	}
	i.logger.Debug("deploying payload", "kind", kind, "arch", arch, "file", dst, "method", i.linker.Method())
	return i.linker.Deploy(src, dst)
}

// variantsFor picks the library slots to fill: those the directory already
// uses, otherwise the ones matching arch (both when unknown).
func variantsFor(spec Spec, dir string, arch domain.Arch) []Variant {
	var present []Variant
	for _, v := range spec.Variants {
		if exists(filepath.Join(dir, v.Target)) || exists(filepath.Join(dir, v.Backup())) {
			present = append(present, v)
		}
	}
	if len(present) > 0 {
		return present
	}
	if arch == domain.ArchUnknown {
		return spec.Variants
	}
	for _, v := range spec.Variants {
		if v.Arch == arch {
			return []Variant{v}
		}
	}
	return spec.Variants
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// remove deletes path, treating a missing file as success
func remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func writeIfChanged(path string, content []byte) (bool, error) {
	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, content) {
		return false, nil
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return false, err
	}
	return true, nil
}
