package component

import (
	"encoding/json"
	"fmt"
	"sort"

	"dlcinst/internal/domain"
)

type smokeAPIExtra struct {
	Dlcs map[string]string `json:"dlcs"`
}

type smokeAPIConfig struct {
	Version             int                      `json:"$version"`
	Logging             bool                     `json:"logging"`
	UnlockFamilySharing bool                     `json:"unlock_family_sharing"`
	DefaultAppStatus    string                   `json:"default_app_status"`
	OverrideAppStatus   map[string]string        `json:"override_app_status"`
	OverrideDlcStatus   map[string]string        `json:"override_dlc_status"`
	ExtraDlcs           map[string]smokeAPIExtra `json:"extra_dlcs"`
	AutoInjectInventory bool                     `json:"auto_inject_inventory"`
	ExtraInventoryItems []int                    `json:"extra_inventory_items"`
}

type screamAPIItems struct {
	UnlockAll bool     `json:"unlock_all"`
	Override  []string `json:"override"`
}

type screamAPIEntitlements struct {
	UnlockAll  bool     `json:"unlock_all"`
	AutoInject bool     `json:"auto_inject"`
	Inject     []string `json:"inject"`
}

type screamAPIConfig struct {
	Version      int                   `json:"version"`
	Logging      bool                  `json:"logging"`
	EOSLogging   bool                  `json:"eos_logging"`
	BlockMetrics bool                  `json:"block_metrics"`
	CatalogItems screamAPIItems        `json:"catalog_items"`
	Entitlements screamAPIEntitlements `json:"entitlements"`
}

type uplayConfig struct {
	Logging    bool     `json:"logging"`
	Lang       string   `json:"lang"`
	HookLoader bool     `json:"hook_loader"`
	Dlcs       []string `json:"dlcs"`
	Items      []string `json:"items"`
}

type loaderModule struct {
	Path     string          `json:"path"`
	Required bool            `json:"required"`
	Config   json.RawMessage `json:"config,omitempty"`
}

type loaderConfig struct {
	Logging  bool           `json:"logging"`
	Enabled  bool           `json:"enabled"`
	AutoLoad bool           `json:"auto_load"`
	Targets  []string       `json:"targets"`
	Modules  []loaderModule `json:"modules"`
}

// ShimConfig renders the configuration file content of a shim kind for sel
func ShimConfig(kind domain.ComponentKind, sel *domain.ProgramSelection) ([]byte, error) {
	var doc any
	switch kind {
	case domain.KindSmokeAPI:
		doc = smokeAPIDoc(sel)
	case domain.KindScreamAPI:
		doc = screamAPIDoc(sel)
	case domain.KindUplayR1, domain.KindUplayR2:
		doc = uplayConfig{
			Lang:  "default",
			Dlcs:  dlcIDs(sel, func(t domain.DlcType) bool { return t == domain.DlcUbisoft }),
			Items: []string{},
		}
	default:
		return nil, fmt.Errorf("no configuration format for %s", kind)
	}
	return render(doc)
}

// LoaderConfigFor renders the shared Koaloader configuration. Each module is
// listed in load order together with the shim configuration it needs.
func LoaderConfigFor(sel *domain.ProgramSelection, arch domain.Arch) ([]byte, error) {
	cfg := loaderConfig{
		Enabled:  true,
		AutoLoad: true,
		Targets:  []string{},
		Modules:  []loaderModule{},
	}
	for _, kind := range sel.ApplicableShims() {
		spec, _ := Shim(kind)
		shimCfg, err := ShimConfig(kind, sel)
		if err != nil {
			return nil, err
		}
		cfg.Modules = append(cfg.Modules, loaderModule{
			Path:     spec.ModuleName(arch),
			Required: true,
			Config:   json.RawMessage(shimCfg),
		})
	}
	return render(cfg)
}

func render(doc any) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return append(data, '\n'), nil
}

func smokeAPIDoc(sel *domain.ProgramSelection) smokeAPIConfig {
	cfg := smokeAPIConfig{
		Version:             2,
		UnlockFamilySharing: true,
		DefaultAppStatus:    "original",
		OverrideAppStatus:   map[string]string{},
		OverrideDlcStatus:   map[string]string{},
		ExtraDlcs:           map[string]smokeAPIExtra{},
		AutoInjectInventory: true,
		ExtraInventoryItems: []int{},
	}

	hidden := map[string]string{}
	for id, dlc := range sel.SelectedDlc {
		if !dlc.Type.IsSteam() {
			continue
		}
		cfg.OverrideDlcStatus[id] = "unlocked"
		if dlc.Type == domain.DlcSteamHidden {
			hidden[id] = dlc.Name
		}
	}
	if len(hidden) > 0 {
		cfg.ExtraDlcs[sel.ID] = smokeAPIExtra{Dlcs: hidden}
	}

	for _, extra := range sel.ExtraSelectedDlc {
		dlcs := map[string]string{}
		for id, dlc := range extra.Dlc {
			if !dlc.Type.IsSteam() {
				continue
			}
			cfg.OverrideDlcStatus[id] = "unlocked"
			dlcs[id] = dlc.Name
		}
		if len(dlcs) > 0 {
			cfg.OverrideAppStatus[extra.ID] = "unlocked"
			cfg.ExtraDlcs[extra.ID] = smokeAPIExtra{Dlcs: dlcs}
		}
	}
	return cfg
}

func screamAPIDoc(sel *domain.ProgramSelection) screamAPIConfig {
	return screamAPIConfig{
		Version: 2,
		CatalogItems: screamAPIItems{
			Override: dlcIDs(sel, func(t domain.DlcType) bool { return t == domain.DlcEpicCatalogItem }),
		},
		Entitlements: screamAPIEntitlements{
			Inject: dlcIDs(sel, func(t domain.DlcType) bool { return t == domain.DlcEpicEntitlement }),
		},
	}
}

// dlcIDs collects the sorted ids of selected and extra DLC matching match
func dlcIDs(sel *domain.ProgramSelection, match func(domain.DlcType) bool) []string {
	seen := map[string]bool{}
	ids := []string{}
	add := func(id string, dlc domain.Dlc) {
		if match(dlc.Type) && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for id, dlc := range sel.SelectedDlc {
		add(id, dlc)
	}
	for _, extra := range sel.ExtraSelectedDlc {
		for id, dlc := range extra.Dlc {
			add(id, dlc)
		}
	}
	sort.Strings(ids)
	return ids
}
