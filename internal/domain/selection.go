package domain

import "path/filepath"

// Dlc is a single DLC entry chosen by the user
type Dlc struct {
	Name string
	Type DlcType
}

// ExtraDlc groups DLC that belong to another app than the selection itself
// (e.g. a Steam DLC that ships its own sub-DLC).
type ExtraDlc struct {
	ID   string
	Name string
	Dlc  map[string]Dlc
}

// ExecutableDirectory is a directory under the root containing a game executable
type ExecutableDirectory struct {
	Path string
	Arch Arch
}

// SelectionKey identifies a selection in the registry
type SelectionKey struct {
	Platform Platform
	ID       string
}

func (k SelectionKey) String() string {
	return k.Platform.String() + "/" + k.ID
}

// ProgramSelection is the user's install intent for one program
type ProgramSelection struct {
	ID                    string
	Name                  string
	Platform              Platform
	RootDirectory         string
	ExecutableDirectories []ExecutableDirectory
	DllDirectories        []string
	SelectedDlc           map[string]Dlc
	ExtraSelectedDlc      []ExtraDlc
	Koaloader             bool   // Chain-load shims through the Koaloader proxy
	KoaloaderProxy        string // Proxy DLL name without extension; empty means default
	Enabled               bool   // Participates in the next run
}

// Key returns the registry key of the selection
func (s *ProgramSelection) Key() SelectionKey {
	return SelectionKey{Platform: s.Platform, ID: s.ID}
}

// HasDlc reports whether any selected or extra DLC satisfies match
func (s *ProgramSelection) HasDlc(match func(DlcType) bool) bool {
	for _, d := range s.SelectedDlc {
		if match(d.Type) {
			return true
		}
	}
	for _, extra := range s.ExtraSelectedDlc {
		for _, d := range extra.Dlc {
			if match(d.Type) {
				return true
			}
		}
	}
	return false
}

// Applies reports whether the component kind is relevant to this selection.
// Koaloader is governed by the Koaloader toggle, not by this check.
func (s *ProgramSelection) Applies(kind ComponentKind) bool {
	switch kind {
	case KindSmokeAPI:
		return (s.Platform == PlatformSteam || s.Platform == PlatformParadox) && s.HasDlc(DlcType.IsSteam)
	case KindScreamAPI:
		return (s.Platform == PlatformEpic || s.Platform == PlatformParadox) && s.HasDlc(DlcType.IsEpic)
	case KindUplayR1, KindUplayR2:
		return s.Platform == PlatformUbisoft
	default:
		return false
	}
}

// ApplicableShims returns the shim kinds relevant to this selection, in reconciliation order
func (s *ProgramSelection) ApplicableShims() []ComponentKind {
	var kinds []ComponentKind
	for _, k := range ShimKinds {
		if s.Applies(k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// IsExecutableDirectory reports whether dir is one of the selection's executable directories
func (s *ProgramSelection) IsExecutableDirectory(dir string) bool {
	dir = filepath.Clean(dir)
	for _, d := range s.ExecutableDirectories {
		if filepath.Clean(d.Path) == dir {
			return true
		}
	}
	return false
}

// ArchFor returns the architecture recorded for dir, or ArchUnknown
func (s *ProgramSelection) ArchFor(dir string) Arch {
	dir = filepath.Clean(dir)
	for _, d := range s.ExecutableDirectories {
		if filepath.Clean(d.Path) == dir {
			return d.Arch
		}
	}
	return ArchUnknown
}
