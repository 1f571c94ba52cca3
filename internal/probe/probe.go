// Package probe inspects a directory for the files of each unlocker component.
package probe

import (
	"os"
	"path/filepath"

	"dlcinst/internal/component"
	"dlcinst/internal/domain"
	"dlcinst/internal/payload"
)

// State is the on-disk state of one component kind in one directory
type State struct {
	Active   bool     // Installer-owned library present in the slot the program loads
	Backup   bool     // Original library renamed aside by a previous install
	Residual bool     // Config, cache or module files present without an active library
	Files    []string // Component files found, by basename
}

// Any reports whether the component left anything in the directory
func (s State) Any() bool {
	return s.Active || s.Backup || s.Residual
}

// Presence maps each component kind to its state
type Presence map[domain.ComponentKind]State

// Prober checks directories for component files. It never mutates anything.
type Prober struct {
	payloads payload.Provider
}

// New creates a prober that fingerprints files with payloads
func New(payloads payload.Provider) *Prober {
	return &Prober{payloads: payloads}
}

// Probe reports the state of every component kind in dir
func (p *Prober) Probe(dir string) Presence {
	presence := Presence{domain.KindKoaloader: p.Loader(dir)}
	for _, kind := range domain.ShimKinds {
		presence[kind] = p.Shim(dir, kind)
	}
	return presence
}

// Shim reports the state of a single shim kind in dir
func (p *Prober) Shim(dir string, kind domain.ComponentKind) State {
	var st State
	spec, ok := component.Shim(kind)
	if !ok {
		return st
	}

	for _, v := range spec.Variants {
		target := filepath.Join(dir, v.Target)
		if isFile(target) && p.payloads.IsOwnFile(target, kind) {
			st.Active = true
			st.Files = append(st.Files, v.Target)
		}
		if isFile(filepath.Join(dir, v.Backup())) {
			st.Backup = true
			st.Files = append(st.Files, v.Backup())
		}
	}

	leftover := false
	for _, name := range []string{spec.Config, spec.Cache} {
		if name != "" && isFile(filepath.Join(dir, name)) {
			leftover = true
			st.Files = append(st.Files, name)
		}
	}
	st.Residual = leftover && !st.Active

	return st
}

// Loader reports the state of Koaloader in dir. Koaloader never renames
// originals, so Backup is always false.
func (p *Prober) Loader(dir string) State {
	var st State

	for _, proxy := range component.Proxies {
		path := filepath.Join(dir, proxy+".dll")
		if isFile(path) && p.payloads.IsOwnFile(path, domain.KindKoaloader) {
			st.Active = true
			st.Files = append(st.Files, proxy+".dll")
		}
	}

	leftover := false
	for _, kind := range domain.ShimKinds {
		spec, _ := component.Shim(kind)
		for _, arch := range []domain.Arch{domain.Arch32, domain.Arch64} {
			name := spec.ModuleName(arch)
			if path := filepath.Join(dir, name); isFile(path) && p.payloads.IsOwnFile(path, kind) {
				leftover = true
				st.Files = append(st.Files, name)
			}
		}
	}
	if isFile(filepath.Join(dir, component.LoaderConfig)) {
		leftover = true
		st.Files = append(st.Files, component.LoaderConfig)
	}
	st.Residual = leftover && !st.Active

	return st
}

// Deployed reports whether dir holds an installer-owned binary of kind. A
// shim counts both at its direct slot and as a Koaloader module.
func (p *Prober) Deployed(dir string, kind domain.ComponentKind) bool {
	if kind == domain.KindKoaloader {
		return p.Loader(dir).Active
	}
	if p.Shim(dir, kind).Active {
		return true
	}
	spec, ok := component.Shim(kind)
	if !ok {
		return false
	}
	for _, arch := range []domain.Arch{domain.Arch32, domain.Arch64} {
		if path := filepath.Join(dir, spec.ModuleName(arch)); isFile(path) && p.payloads.IsOwnFile(path, kind) {
			return true
		}
	}
	return false
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
