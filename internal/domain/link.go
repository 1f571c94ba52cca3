package domain

// LinkMethod determines how payloads are placed into game directories
type LinkMethod int

const (
	LinkCopy     LinkMethod = iota // Default: independent copy of the payload
	LinkHardlink                   // Hardlink to the payload cache
	LinkSymlink                    // Symlink to the payload cache
)

func (m LinkMethod) String() string {
	switch m {
	case LinkCopy:
		return "copy"
	case LinkHardlink:
		return "hardlink"
	case LinkSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// ParseLinkMethod converts a string to LinkMethod
func ParseLinkMethod(s string) LinkMethod {
	switch s {
	case "hardlink":
		return LinkHardlink
	case "symlink":
		return LinkSymlink
	default:
		return LinkCopy
	}
}
