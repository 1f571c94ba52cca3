package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"dlcinst/internal/component"
	"dlcinst/internal/domain"

	"gopkg.in/yaml.v3"
)

// DlcConfig is the YAML representation of a DLC
type DlcConfig struct {
	Name string `yaml:"name,omitempty"`
	Type string `yaml:"type"`
}

// ExtraDlcConfig is the YAML representation of DLC owned by another app
type ExtraDlcConfig struct {
	ID   string               `yaml:"id"`
	Name string               `yaml:"name,omitempty"`
	Dlc  map[string]DlcConfig `yaml:"dlc"`
}

// ExecutableConfig is the YAML representation of an executable directory
type ExecutableConfig struct {
	Path string `yaml:"path"`
	Arch string `yaml:"arch,omitempty"`
}

// SelectionConfig is the YAML representation of a program selection.
// Relative directories are resolved against Root.
type SelectionConfig struct {
	ID             string               `yaml:"id"`
	Name           string               `yaml:"name"`
	Platform       string               `yaml:"platform"`
	Root           string               `yaml:"root"`
	Executables    []ExecutableConfig   `yaml:"executables,omitempty"`
	DllDirectories []string             `yaml:"dll_directories,omitempty"`
	Dlc            map[string]DlcConfig `yaml:"dlc,omitempty"`
	ExtraDlc       []ExtraDlcConfig     `yaml:"extra_dlc,omitempty"`
	Koaloader      bool                 `yaml:"koaloader,omitempty"`
	KoaloaderProxy string               `yaml:"koaloader_proxy,omitempty"`
	Enabled        *bool                `yaml:"enabled,omitempty"` // Defaults to true
}

// SelectionsFile is the top-level selections.yaml structure
type SelectionsFile struct {
	Selections []SelectionConfig `yaml:"selections"`
}

// LoadSelections reads program selections from path. A missing file yields
// no selections.
func LoadSelections(path string) ([]*domain.ProgramSelection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading selections: %w", err)
	}

	var file SelectionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing selections: %w", err)
	}

	sels := make([]*domain.ProgramSelection, 0, len(file.Selections))
	for i, sc := range file.Selections {
		sel, err := sc.toDomain()
		if err != nil {
			return nil, fmt.Errorf("selection %d (%s): %w", i+1, sc.ID, err)
		}
		sels = append(sels, sel)
	}
	return sels, nil
}

// SaveSelections writes program selections to path
func SaveSelections(path string, sels []*domain.ProgramSelection) error {
	file := SelectionsFile{Selections: make([]SelectionConfig, 0, len(sels))}
	for _, sel := range sels {
		file.Selections = append(file.Selections, fromDomain(sel))
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("marshaling selections: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating selections dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing selections: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing selections: %w", err)
	}
	return nil
}

func (sc SelectionConfig) toDomain() (*domain.ProgramSelection, error) {
	if sc.ID == "" {
		return nil, fmt.Errorf("%w: missing id", domain.ErrInvalidConfig)
	}
	platform, err := domain.ParsePlatform(sc.Platform)
	if err != nil {
		return nil, err
	}
	if sc.Root == "" || !filepath.IsAbs(sc.Root) {
		return nil, fmt.Errorf("%w: root must be an absolute path", domain.ErrInvalidConfig)
	}

	sel := &domain.ProgramSelection{
		ID:            sc.ID,
		Name:          sc.Name,
		Platform:      platform,
		RootDirectory: filepath.Clean(sc.Root),
		Koaloader:     sc.Koaloader,
		Enabled:       sc.Enabled == nil || *sc.Enabled,
	}
	if sel.Name == "" {
		sel.Name = sc.ID
	}

	if sc.KoaloaderProxy != "" {
		proxy := component.NormalizeProxy(sc.KoaloaderProxy)
		if !component.IsProxy(proxy) {
			return nil, fmt.Errorf("%w: unsupported koaloader_proxy %q", domain.ErrInvalidConfig, sc.KoaloaderProxy)
		}
		sel.KoaloaderProxy = proxy
	}

	for _, e := range sc.Executables {
		arch, err := domain.ParseArch(e.Arch)
		if err != nil {
			return nil, fmt.Errorf("executable %q: %w", e.Path, err)
		}
		sel.ExecutableDirectories = append(sel.ExecutableDirectories, domain.ExecutableDirectory{
			Path: resolve(sel.RootDirectory, e.Path),
			Arch: arch,
		})
	}
	for _, d := range sc.DllDirectories {
		sel.DllDirectories = append(sel.DllDirectories, resolve(sel.RootDirectory, d))
	}

	if sel.SelectedDlc, err = dlcToDomain(sc.Dlc); err != nil {
		return nil, err
	}
	for _, extra := range sc.ExtraDlc {
		dlc, err := dlcToDomain(extra.Dlc)
		if err != nil {
			return nil, err
		}
		sel.ExtraSelectedDlc = append(sel.ExtraSelectedDlc, domain.ExtraDlc{ID: extra.ID, Name: extra.Name, Dlc: dlc})
	}

	return sel, nil
}

func dlcToDomain(in map[string]DlcConfig) (map[string]domain.Dlc, error) {
	out := make(map[string]domain.Dlc, len(in))
	for id, d := range in {
		typ, ok := domain.ParseDlcType(d.Type)
		if !ok {
			return nil, fmt.Errorf("%w: dlc %s has unknown type %q", domain.ErrInvalidConfig, id, d.Type)
		}
		out[id] = domain.Dlc{Name: d.Name, Type: typ}
	}
	return out, nil
}

func fromDomain(sel *domain.ProgramSelection) SelectionConfig {
	sc := SelectionConfig{
		ID:             sel.ID,
		Name:           sel.Name,
		Platform:       sel.Platform.String(),
		Root:           sel.RootDirectory,
		DllDirectories: sel.DllDirectories,
		Dlc:            dlcFromDomain(sel.SelectedDlc),
		Koaloader:      sel.Koaloader,
		KoaloaderProxy: sel.KoaloaderProxy,
	}
	if !sel.Enabled {
		enabled := false
		sc.Enabled = &enabled
	}
	for _, e := range sel.ExecutableDirectories {
		ec := ExecutableConfig{Path: e.Path}
		if e.Arch != domain.ArchUnknown {
			ec.Arch = e.Arch.String()
		}
		sc.Executables = append(sc.Executables, ec)
	}
	for _, extra := range sel.ExtraSelectedDlc {
		sc.ExtraDlc = append(sc.ExtraDlc, ExtraDlcConfig{ID: extra.ID, Name: extra.Name, Dlc: dlcFromDomain(extra.Dlc)})
	}
	return sc
}

func dlcFromDomain(in map[string]domain.Dlc) map[string]DlcConfig {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]DlcConfig, len(in))
	for id, d := range in {
		out[id] = DlcConfig{Name: d.Name, Type: d.Type.String()}
	}
	return out
}

func resolve(root, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(root, path)
}
