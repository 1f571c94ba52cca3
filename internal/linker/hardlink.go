package linker

import (
	"fmt"
	"os"

	"dlcinst/internal/domain"
)

// HardlinkLinker deploys payloads using hard links, copying when the cache
// lives on another filesystem
type HardlinkLinker struct {
	fallback *CopyLinker
}

// NewHardlink creates a new hardlink linker
func NewHardlink() *HardlinkLinker {
	return &HardlinkLinker{fallback: NewCopy()}
}

// Deploy creates a hard link from src to dst
func (l *HardlinkLinker) Deploy(src, dst string) error {
	if err := removeExisting(dst); err != nil {
		return err
	}

	if err := os.Link(src, dst); err != nil {
		if _, statErr := os.Stat(src); statErr != nil {
			return fmt.Errorf("creating hardlink: %w", err)
		}
		return l.fallback.Deploy(src, dst)
	}

	return nil
}

// Method returns the link method
func (l *HardlinkLinker) Method() domain.LinkMethod {
	return domain.LinkHardlink
}
