package domain

import "fmt"

// Platform identifies the store or launcher a program belongs to
type Platform int

const (
	PlatformSteam   Platform = iota // Steam and Steam-like stores
	PlatformEpic                    // Epic Games Store
	PlatformUbisoft                 // Ubisoft Connect
	PlatformParadox                 // Paradox Launcher (carries both Steam and Epic DLC)
)

func (p Platform) String() string {
	switch p {
	case PlatformSteam:
		return "steam"
	case PlatformEpic:
		return "epic"
	case PlatformUbisoft:
		return "ubisoft"
	case PlatformParadox:
		return "paradox"
	default:
		return "unknown"
	}
}

// ParsePlatform converts a string to Platform
func ParsePlatform(s string) (Platform, error) {
	switch s {
	case "steam":
		return PlatformSteam, nil
	case "epic":
		return PlatformEpic, nil
	case "ubisoft":
		return PlatformUbisoft, nil
	case "paradox":
		return PlatformParadox, nil
	default:
		return 0, fmt.Errorf("%w: unknown platform %q", ErrInvalidConfig, s)
	}
}

// Arch is the binary architecture of an executable
type Arch int

const (
	ArchUnknown Arch = iota
	Arch32
	Arch64
)

func (a Arch) String() string {
	switch a {
	case Arch32:
		return "32"
	case Arch64:
		return "64"
	default:
		return "unknown"
	}
}

// ParseArch converts a string to Arch. An empty string or "unknown" is
// ArchUnknown; any other unrecognized value is an error.
func ParseArch(s string) (Arch, error) {
	switch s {
	case "32", "x86", "386", "i386":
		return Arch32, nil
	case "64", "x64", "amd64", "x86_64":
		return Arch64, nil
	case "", "unknown":
		return ArchUnknown, nil
	default:
		return ArchUnknown, fmt.Errorf("%w: unknown architecture %q", ErrInvalidConfig, s)
	}
}
