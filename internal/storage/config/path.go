// Package config provides configuration and selection file parsing and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Dirs holds the directories the application reads and writes
type Dirs struct {
	Config string // config.yaml, selections.yaml
	Data   string // history database, payload cache
}

// DefaultDirs fills empty fields of d with the XDG locations
func DefaultDirs(d Dirs) (Dirs, error) {
	if d.Config != "" && d.Data != "" {
		return d, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return Dirs{}, fmt.Errorf("home directory: %w", err)
	}
	if d.Config == "" {
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			base = filepath.Join(home, ".config")
		}
		d.Config = filepath.Join(base, "dlcinst")
	}
	if d.Data == "" {
		base := os.Getenv("XDG_DATA_HOME")
		if base == "" {
			base = filepath.Join(home, ".local", "share")
		}
		d.Data = filepath.Join(base, "dlcinst")
	}
	return d, nil
}

// SelectionsPath returns the default selections file in the config directory
func (d Dirs) SelectionsPath() string {
	return filepath.Join(d.Config, "selections.yaml")
}

// CacheDir returns the payload cache directory
func (d Dirs) CacheDir() string {
	return filepath.Join(d.Data, "cache")
}

// DatabasePath returns the history database location
func (d Dirs) DatabasePath() string {
	return filepath.Join(d.Data, "dlcinst.db")
}

// ParseSelectionsPath validates a selections file path and returns it cleaned.
// The file itself may not exist yet, but its directory must.
// It returns an error if:
//   - The path is empty
//   - The path contains parent directory traversal (..)
//   - The path points to a directory
//   - The parent directory does not exist
//   - The file does not have a .yaml or .yml extension
func ParseSelectionsPath(path string) (string, error) {
	if path == "" {
		return "", errors.New("selections path cannot be empty")
	}

	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return "", errors.New("selections path contains invalid traversal")
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(abs))
	if ext != ".yaml" && ext != ".yml" {
		return "", errors.New("selections file must have .yaml or .yml extension")
	}

	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return "", errors.New("selections path is a directory, not a file")
	}

	info, err := os.Stat(filepath.Dir(abs))
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.New("selections directory does not exist")
		}
		return "", err
	}
	if !info.IsDir() {
		return "", errors.New("selections directory is not a directory")
	}

	return abs, nil
}
