package linker

import (
	"fmt"
	"os"

	"dlcinst/internal/domain"
)

// Linker places payload files from the cache into game directories
type Linker interface {
	Deploy(src, dst string) error
	Method() domain.LinkMethod
}

// New creates a linker for the given method
func New(method domain.LinkMethod) Linker {
	switch method {
	case domain.LinkHardlink:
		return NewHardlink()
	case domain.LinkSymlink:
		return NewSymlink()
	default:
		return NewCopy()
	}
}

// removeExisting removes whatever occupies dst so a deployment never writes through
// an existing link into the cache.
func removeExisting(dst string) error {
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing existing file: %w", err)
	}
	return nil
}
