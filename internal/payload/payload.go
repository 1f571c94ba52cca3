// Package payload provides the unlocker binaries deployed by the installer and
// recognizes files that were written by it.
package payload

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"dlcinst/internal/domain"
)

//go:embed data
var embeddedFS embed.FS

// Provider hands out payload bytes and fingerprints installer-owned files
type Provider interface {
	// Payload returns the binary for kind and arch. ArchUnknown is treated as 64-bit.
	Payload(kind domain.ComponentKind, arch domain.Arch) ([]byte, error)
	// IsOwnFile reports whether path holds one of kind's payloads.
	IsOwnFile(path string, kind domain.ComponentKind) bool
}

type key struct {
	kind domain.ComponentKind
	arch domain.Arch
}

// Set is a Provider backed by an in-memory set of payloads
type Set struct {
	payloads map[key][]byte
	hashes   map[domain.ComponentKind]map[string]int64 // hex sha256 -> size
}

var allKinds = []domain.ComponentKind{
	domain.KindKoaloader,
	domain.KindSmokeAPI,
	domain.KindScreamAPI,
	domain.KindUplayR1,
	domain.KindUplayR2,
}

// Embedded returns the payloads compiled into the binary
func Embedded() (*Set, error) {
	sub, err := fs.Sub(embeddedFS, "data")
	if err != nil {
		return nil, fmt.Errorf("opening embedded payloads: %w", err)
	}
	return load(sub, nil)
}

// FromDir loads payloads from dir, laid out as <kind>/<32|64>.dll
// (e.g. smokeapi/64.dll). Missing files fall back to the embedded payloads.
func FromDir(dir string) (*Set, error) {
	fallback, err := Embedded()
	if err != nil {
		return nil, err
	}
	return load(os.DirFS(dir), fallback)
}

func load(fsys fs.FS, fallback *Set) (*Set, error) {
	s := &Set{
		payloads: make(map[key][]byte),
		hashes:   make(map[domain.ComponentKind]map[string]int64),
	}
	for _, kind := range allKinds {
		for _, arch := range []domain.Arch{domain.Arch32, domain.Arch64} {
			data, err := fs.ReadFile(fsys, path.Join(kind.Slug(), arch.String()+".dll"))
			if err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					return nil, fmt.Errorf("reading %s payload: %w", kind, err)
				}
				if fallback == nil {
					continue
				}
				data = fallback.payloads[key{kind, arch}]
				if data == nil {
					continue
				}
			}
			s.add(kind, arch, data)
		}
	}
	if fallback != nil {
		// Files written from the fallback payloads remain recognized
		for kind, hashes := range fallback.hashes {
			if s.hashes[kind] == nil {
				s.hashes[kind] = make(map[string]int64)
			}
			for sum, size := range hashes {
				s.hashes[kind][sum] = size
			}
		}
	}
	return s, nil
}

func (s *Set) add(kind domain.ComponentKind, arch domain.Arch, data []byte) {
	s.payloads[key{kind, arch}] = data
	if s.hashes[kind] == nil {
		s.hashes[kind] = make(map[string]int64)
	}
	sum := sha256.Sum256(data)
	s.hashes[kind][hex.EncodeToString(sum[:])] = int64(len(data))
}

// Payload implements Provider
func (s *Set) Payload(kind domain.ComponentKind, arch domain.Arch) ([]byte, error) {
	if arch == domain.ArchUnknown {
		arch = domain.Arch64
	}
	data, ok := s.payloads[key{kind, arch}]
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s-bit)", domain.ErrPayloadNotFound, kind, arch)
	}
	return data, nil
}

// IsOwnFile implements Provider. Unreadable files are never ours.
func (s *Set) IsOwnFile(path string, kind domain.ComponentKind) bool {
	known := s.hashes[kind]
	if len(known) == 0 {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	sizeMatch := false
	for _, size := range known {
		if size == info.Size() {
			sizeMatch = true
			break
		}
	}
	if !sizeMatch {
		return false
	}
	sum, err := Checksum(path)
	if err != nil {
		return false
	}
	_, ok := known[sum]
	return ok
}

// Checksum returns the hex SHA-256 of the file at path
func Checksum(path string) (string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// SameContent reports whether the files at a and b have identical contents
func SameContent(a, b string) (bool, error) {
	sa, err := Checksum(a)
	if err != nil {
		return false, err
	}
	sb, err := Checksum(b)
	if err != nil {
		return false, err
	}
	return sa == sb, nil
}
