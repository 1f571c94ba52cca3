package domain

// ComponentKind enumerates the unlocker components that can be placed in a directory
type ComponentKind int

const (
	KindKoaloader ComponentKind = iota // Loader-injector proxy that chain-loads the others
	KindSmokeAPI                       // Steamworks shim
	KindScreamAPI                      // Epic Online Services shim
	KindUplayR1                        // Ubisoft (legacy uplay_r1) shim
	KindUplayR2                        // Ubisoft (upc_r2) shim
)

// ShimKinds lists the platform shims in reconciliation order.
var ShimKinds = []ComponentKind{KindSmokeAPI, KindScreamAPI, KindUplayR1, KindUplayR2}

func (k ComponentKind) String() string {
	switch k {
	case KindKoaloader:
		return "Koaloader"
	case KindSmokeAPI:
		return "SmokeAPI"
	case KindScreamAPI:
		return "ScreamAPI"
	case KindUplayR1:
		return "Uplay R1 Unlocker"
	case KindUplayR2:
		return "Uplay R2 Unlocker"
	default:
		return "unknown"
	}
}

// Slug returns a filesystem-friendly identifier for the kind
func (k ComponentKind) Slug() string {
	switch k {
	case KindKoaloader:
		return "koaloader"
	case KindSmokeAPI:
		return "smokeapi"
	case KindScreamAPI:
		return "screamapi"
	case KindUplayR1:
		return "uplayr1"
	case KindUplayR2:
		return "uplayr2"
	default:
		return "unknown"
	}
}

// DlcType classifies a DLC entry by the API that reports its ownership
type DlcType int

const (
	DlcSteam DlcType = iota
	DlcSteamHidden
	DlcEpicCatalogItem
	DlcEpicEntitlement
	DlcUbisoft
)

func (t DlcType) String() string {
	switch t {
	case DlcSteam:
		return "steam"
	case DlcSteamHidden:
		return "steam_hidden"
	case DlcEpicCatalogItem:
		return "epic_catalog_item"
	case DlcEpicEntitlement:
		return "epic_entitlement"
	case DlcUbisoft:
		return "ubisoft"
	default:
		return "unknown"
	}
}

// ParseDlcType converts a string to DlcType
func ParseDlcType(s string) (DlcType, bool) {
	switch s {
	case "steam":
		return DlcSteam, true
	case "steam_hidden":
		return DlcSteamHidden, true
	case "epic_catalog_item":
		return DlcEpicCatalogItem, true
	case "epic_entitlement":
		return DlcEpicEntitlement, true
	case "ubisoft":
		return DlcUbisoft, true
	default:
		return 0, false
	}
}

// IsSteam reports whether SmokeAPI handles this DLC type
func (t DlcType) IsSteam() bool {
	return t == DlcSteam || t == DlcSteamHidden
}

// IsEpic reports whether ScreamAPI handles this DLC type
func (t DlcType) IsEpic() bool {
	return t == DlcEpicCatalogItem || t == DlcEpicEntitlement
}
