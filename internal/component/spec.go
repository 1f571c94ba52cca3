// Package component installs and removes the individual unlocker components
// in a single directory.
package component

import (
	"path/filepath"
	"strings"

	"dlcinst/internal/domain"
)

// Variant is one architecture-specific library slot of a shim
type Variant struct {
	Arch   domain.Arch
	Target string // Library filename the game loads
}

// Backup returns the filename the original library is renamed to
func (v Variant) Backup() string {
	return strings.TrimSuffix(v.Target, ".dll") + "_o.dll"
}

// Spec binds a component kind to its on-disk filenames
type Spec struct {
	Kind     domain.ComponentKind
	Variants []Variant
	Config   string // Generated configuration file
	Cache    string // Runtime cache file, empty when the shim keeps none
	Module   string // Base name used when Koaloader chain-loads the shim
}

// ModuleName returns the filename the shim gets when deployed as a Koaloader module
func (s Spec) ModuleName(arch domain.Arch) string {
	if arch == domain.Arch32 {
		return s.Module + "32.dll"
	}
	return s.Module + "64.dll"
}

// Paths returns every filename the shim may own in dir, for display
func (s Spec) Paths(dir string) []string {
	var paths []string
	for _, v := range s.Variants {
		paths = append(paths, filepath.Join(dir, v.Target), filepath.Join(dir, v.Backup()))
	}
	paths = append(paths, filepath.Join(dir, s.Config))
	if s.Cache != "" {
		paths = append(paths, filepath.Join(dir, s.Cache))
	}
	return paths
}

var shimSpecs = map[domain.ComponentKind]Spec{
	domain.KindSmokeAPI: {
		Kind: domain.KindSmokeAPI,
		Variants: []Variant{
			{Arch: domain.Arch32, Target: "steam_api.dll"},
			{Arch: domain.Arch64, Target: "steam_api64.dll"},
		},
		Config: "SmokeAPI.config.json",
		Cache:  "SmokeAPI.cache.json",
		Module: "SmokeAPI",
	},
	domain.KindScreamAPI: {
		Kind: domain.KindScreamAPI,
		Variants: []Variant{
			{Arch: domain.Arch32, Target: "EOSSDK-Win32-Shipping.dll"},
			{Arch: domain.Arch64, Target: "EOSSDK-Win64-Shipping.dll"},
		},
		Config: "ScreamAPI.json",
		Module: "ScreamAPI",
	},
	domain.KindUplayR1: {
		Kind: domain.KindUplayR1,
		Variants: []Variant{
			{Arch: domain.Arch32, Target: "uplay_r1_loader.dll"},
			{Arch: domain.Arch64, Target: "uplay_r1_loader64.dll"},
		},
		Config: "UplayR1Unlocker.jsonc",
		Module: "UplayR1Unlocker",
	},
	domain.KindUplayR2: {
		Kind: domain.KindUplayR2,
		Variants: []Variant{
			{Arch: domain.Arch32, Target: "upc_r2_loader.dll"},
			{Arch: domain.Arch64, Target: "upc_r2_loader64.dll"},
		},
		Config: "UplayR2Unlocker.jsonc",
		Module: "UplayR2Unlocker",
	},
}

// Shim returns the spec for a platform shim kind
func Shim(kind domain.ComponentKind) (Spec, bool) {
	spec, ok := shimSpecs[kind]
	return spec, ok
}

// LoaderConfig is the shared Koaloader configuration file
const LoaderConfig = "Koaloader.json"

// DefaultProxy is used when a selection does not name one
const DefaultProxy = "version"

// Proxies are the system library names Koaloader can masquerade as
var Proxies = []string{
	"audioses", "d3d10", "d3d11", "d3d9", "dinput8", "dwmapi", "dxgi",
	"glu32", "hid", "iphlpapi", "msasn1", "msimg32", "mswsock", "opengl32",
	"profapi", "propsys", "textshaping", "version", "winhttp", "winmm",
	"wldp", "xinput9_1_0",
}

// NormalizeProxy lowercases name, strips a trailing .dll and applies the default
func NormalizeProxy(name string) string {
	name = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".dll")
	if name == "" {
		return DefaultProxy
	}
	return name
}

// IsProxy reports whether name (without extension) is a supported proxy
func IsProxy(name string) bool {
	for _, p := range Proxies {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}
