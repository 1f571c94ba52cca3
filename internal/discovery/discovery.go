// Package discovery scans an installed program for the directories the
// unlockers care about.
package discovery

import (
	"debug/pe"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"dlcinst/internal/component"
	"dlcinst/internal/domain"
)

// ignoredExecutables are helpers shipped next to games that never load the
// store libraries.
var ignoredExecutables = []string{
	"crashhandler",
	"crashreport",
	"unins",
	"vcredist",
	"dxsetup",
	"dotnetfx",
}

// ExecutableArch reads the target architecture of a Windows executable
func ExecutableArch(path string) (domain.Arch, error) {
	f, err := pe.Open(path)
	if err != nil {
		return domain.ArchUnknown, err
	}
	defer f.Close()

	switch f.Machine {
	case pe.IMAGE_FILE_MACHINE_I386:
		return domain.Arch32, nil
	case pe.IMAGE_FILE_MACHINE_AMD64:
		return domain.Arch64, nil
	default:
		return domain.ArchUnknown, nil
	}
}

// ScanExecutables returns every directory under root that holds a Windows
// executable, with the architecture its executables agree on.
func ScanExecutables(root string) ([]domain.ExecutableDirectory, error) {
	arches := map[string]map[domain.Arch]bool{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".exe") || ignored(d.Name()) {
			return nil
		}
		arch, err := ExecutableArch(path)
		if err != nil {
			return nil
		}
		dir := filepath.Dir(path)
		if arches[dir] == nil {
			arches[dir] = map[domain.Arch]bool{}
		}
		arches[dir][arch] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	dirs := make([]domain.ExecutableDirectory, 0, len(arches))
	for dir, seen := range arches {
		arch := domain.ArchUnknown
		if len(seen) == 1 {
			for a := range seen {
				arch = a
			}
		}
		dirs = append(dirs, domain.ExecutableDirectory{Path: dir, Arch: arch})
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Path < dirs[j].Path })
	return dirs, nil
}

// ScanDllDirectories returns every directory under root holding a store
// library one of the shims replaces, or a backup of one.
func ScanDllDirectories(root string) ([]string, error) {
	names := map[string]bool{}
	for _, kind := range domain.ShimKinds {
		spec, _ := component.Shim(kind)
		for _, v := range spec.Variants {
			names[strings.ToLower(v.Target)] = true
			names[strings.ToLower(v.Backup())] = true
		}
	}

	found := map[string]bool{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() && names[strings.ToLower(d.Name())] {
			found[filepath.Dir(path)] = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	dirs := make([]string, 0, len(found))
	for dir := range found {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// Fill scans sel.RootDirectory and sets the executable and DLL directories.
// Directories already set are kept.
func Fill(sel *domain.ProgramSelection) error {
	if len(sel.ExecutableDirectories) == 0 {
		exes, err := ScanExecutables(sel.RootDirectory)
		if err != nil {
			return err
		}
		sel.ExecutableDirectories = exes
	}
	if len(sel.DllDirectories) == 0 {
		dlls, err := ScanDllDirectories(sel.RootDirectory)
		if err != nil {
			return err
		}
		sel.DllDirectories = dlls
	}
	return nil
}

func ignored(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range ignoredExecutables {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
