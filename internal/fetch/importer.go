package fetch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"dlcinst/internal/component"
	"dlcinst/internal/discovery"
	"dlcinst/internal/domain"
)

// Imported describes one library copied into the payload directory
type Imported struct {
	Kind   domain.ComponentKind
	Arch   domain.Arch
	Source string // Path inside the unpacked release
	Dest   string // <payload dir>/<slug>/<32|64>.dll
}

// candidate is a file name a release of a component ships its library as
type candidate struct {
	name string
	arch domain.Arch // Implied by the name; ArchUnknown when the PE header decides
	rank int         // Lower wins when several files match
}

func candidates(kind domain.ComponentKind) []candidate {
	if kind == domain.KindKoaloader {
		out := []candidate{{name: component.DefaultProxy + ".dll"}}
		for _, p := range component.Proxies {
			if p != component.DefaultProxy {
				out = append(out, candidate{name: p + ".dll", rank: 1})
			}
		}
		return out
	}

	spec, ok := component.Shim(kind)
	if !ok {
		return nil
	}
	var out []candidate
	for _, v := range spec.Variants {
		out = append(out, candidate{name: v.Target, arch: v.Arch})
	}
	for _, arch := range []domain.Arch{domain.Arch32, domain.Arch64} {
		out = append(out, candidate{name: spec.ModuleName(arch), arch: arch, rank: 1})
	}
	return out
}

// Import scans srcDir for kind's libraries and copies the best match of each
// architecture to destDir/<slug>/<32|64>.dll. The PE header decides the
// architecture when it can be read.
func Import(srcDir string, kind domain.ComponentKind, destDir string) ([]Imported, error) {
	byName := map[string]candidate{}
	for _, c := range candidates(kind) {
		byName[strings.ToLower(c.name)] = c
	}

	type match struct {
		path string
		rank int
	}
	best := map[domain.Arch]match{}

	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		c, ok := byName[strings.ToLower(d.Name())]
		if !ok {
			return nil
		}
		arch := c.arch
		if peArch, err := discovery.ExecutableArch(path); err == nil && peArch != domain.ArchUnknown {
			arch = peArch
		}
		if arch == domain.ArchUnknown {
			return nil
		}
		if cur, ok := best[arch]; !ok || c.rank < cur.rank {
			best[arch] = match{path: path, rank: c.rank}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", srcDir, err)
	}
	if len(best) == 0 {
		return nil, fmt.Errorf("%w: no %s library in %s", domain.ErrPayloadNotFound, kind, srcDir)
	}

	var imported []Imported
	for _, arch := range []domain.Arch{domain.Arch32, domain.Arch64} {
		m, ok := best[arch]
		if !ok {
			continue
		}
		dest := filepath.Join(destDir, kind.Slug(), arch.String()+".dll")
		if err := copyFile(m.path, dest); err != nil {
			return imported, err
		}
		imported = append(imported, Imported{Kind: kind, Arch: arch, Source: m.path, Dest: dest})
	}
	return imported, nil
}

// ImportArchive unpacks archivePath into a temporary directory and imports
// kind's libraries from it
func ImportArchive(ctx context.Context, archivePath string, kind domain.ComponentKind, destDir string) ([]Imported, error) {
	tmp, err := os.MkdirTemp("", "dlcinst-release-")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	if err := Extract(ctx, archivePath, tmp); err != nil {
		return nil, err
	}
	return Import(tmp, kind, destDir)
}

func copyFile(src, dest string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating payload dir: %w", err)
	}
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	return nil
}

// ParseKind resolves a component name as typed on the command line
func ParseKind(s string) (domain.ComponentKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, kind := range []domain.ComponentKind{domain.KindKoaloader, domain.KindSmokeAPI, domain.KindScreamAPI, domain.KindUplayR1, domain.KindUplayR2} {
		if s == kind.Slug() || s == strings.ToLower(kind.String()) {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown component %q", s)
}
