package cache

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"dlcinst/internal/domain"
)

// Cache keeps materialized payload files that linkers deploy from
type Cache struct {
	basePath string
}

// New creates a new cache manager
func New(basePath string) *Cache {
	return &Cache{basePath: basePath}
}

// PayloadPath returns where the payload for kind/arch is stored
func (c *Cache) PayloadPath(kind domain.ComponentKind, arch domain.Arch) string {
	if arch == domain.ArchUnknown {
		arch = domain.Arch64
	}
	return filepath.Join(c.basePath, kind.Slug(), arch.String()+".dll")
}

// Exists checks if a payload is cached
func (c *Cache) Exists(kind domain.ComponentKind, arch domain.Arch) bool {
	info, err := os.Stat(c.PayloadPath(kind, arch))
	return err == nil && info.Mode().IsRegular()
}

// Ensure stores content as the cached payload unless an identical copy is
// already there, and returns the cached path.
func (c *Cache) Ensure(kind domain.ComponentKind, arch domain.Arch, content []byte) (string, error) {
	path := c.PayloadPath(kind, arch)

	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, content) {
		return path, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating cache dir: %w", err)
	}

	// Rename into place: hardlinked deployments keep the previous inode.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0644); err != nil {
		return "", fmt.Errorf("writing cached payload: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("storing cached payload: %w", err)
	}

	return path, nil
}

// Clear removes every cached payload
func (c *Cache) Clear() error {
	if err := os.RemoveAll(c.basePath); err != nil {
		return fmt.Errorf("clearing payload cache: %w", err)
	}
	return nil
}

// Size returns the total size of cached payloads
func (c *Cache) Size() (int64, error) {
	var totalSize int64
	err := filepath.WalkDir(c.basePath, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		totalSize += info.Size()
		return nil
	})

	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("calculating cache size: %w", err)
	}

	return totalSize, nil
}
