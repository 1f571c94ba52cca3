package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"dlcinst/internal/component"
	"dlcinst/internal/core"
	"dlcinst/internal/discovery"
	"dlcinst/internal/domain"
	"dlcinst/internal/source/steam"

	"github.com/spf13/cobra"
)

var selectionCmd = &cobra.Command{
	Use:     "selection",
	Aliases: []string{"sel"},
	Short:   "Selection management commands",
	Long:    `Commands for managing the games and DLC listed in the selections file.`,
}

var selectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List selections",
	Args:  cobra.NoArgs,
	RunE:  runSelectionList,
}

var (
	addPlatform  string
	addName      string
	addRoot      string
	addSteam     bool
	addDlc       []string
	addExes      []string
	addDllDirs   []string
	addKoaloader bool
	addProxy     string
	addNoScan    bool
	addDisabled  bool
	addReplace   bool

	removePlatform string
)

var selectionAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Add a selection",
	Long: `Add a game to the selections file.

DLC are given as id:type[:name], where type is one of steam, steam_hidden,
epic_catalog_item, epic_entitlement or ubisoft. Executables and DLL
directories are discovered under the root unless given explicitly.

Examples:
  dlcinst selection add 413150 --steam --dlc 1234:steam:Soundtrack
  dlcinst selection add Fortnite --platform epic --root /games/Fortnite --dlc abc:epic_catalog_item
  dlcinst selection add 413150 --steam --koaloader --proxy winmm`,
	Args: cobra.ExactArgs(1),
	RunE: runSelectionAdd,
}

var selectionRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a selection",
	Long: `Remove a selection from the selections file. Installed unlockers are left
in place; run 'dlcinst uninstall <id>' first to remove them.`,
	Args: cobra.ExactArgs(1),
	RunE: runSelectionRemove,
}

var selectionEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Include a selection in runs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSelectionEnabled(cmd, args[0], true)
	},
}

var selectionDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Exclude a selection from runs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSelectionEnabled(cmd, args[0], false)
	},
}

var selectionSteamAppsCmd = &cobra.Command{
	Use:   "steam-apps",
	Short: "List games installed in Steam libraries",
	Args:  cobra.NoArgs,
	RunE:  runSelectionSteamApps,
}

func init() {
	selectionAddCmd.Flags().StringVarP(&addPlatform, "platform", "p", "steam", "platform (steam, epic, ubisoft, paradox)")
	selectionAddCmd.Flags().StringVarP(&addName, "name", "n", "", "display name (default: id, or the Steam name)")
	selectionAddCmd.Flags().StringVarP(&addRoot, "root", "r", "", "game root directory")
	selectionAddCmd.Flags().BoolVar(&addSteam, "steam", false, "look up root and name in the Steam libraries by app id")
	selectionAddCmd.Flags().StringArrayVarP(&addDlc, "dlc", "d", nil, "DLC as id:type[:name] (repeatable)")
	selectionAddCmd.Flags().StringArrayVar(&addExes, "exe", nil, "executable directory as path[:arch], relative to root (repeatable)")
	selectionAddCmd.Flags().StringArrayVar(&addDllDirs, "dll-dir", nil, "directory holding store API libraries, relative to root (repeatable)")
	selectionAddCmd.Flags().BoolVar(&addKoaloader, "koaloader", false, "load unlockers through the Koaloader proxy")
	selectionAddCmd.Flags().StringVar(&addProxy, "proxy", "", "Koaloader proxy library (default: from config)")
	selectionAddCmd.Flags().BoolVar(&addNoScan, "no-scan", false, "do not scan the root for executables and DLL directories")
	selectionAddCmd.Flags().BoolVar(&addDisabled, "disabled", false, "add the selection disabled")
	selectionAddCmd.Flags().BoolVar(&addReplace, "replace", false, "replace an existing selection with the same id")

	selectionRemoveCmd.Flags().StringVarP(&removePlatform, "platform", "p", "", "platform, when the id exists on several")

	selectionCmd.AddCommand(selectionListCmd)
	selectionCmd.AddCommand(selectionAddCmd)
	selectionCmd.AddCommand(selectionRemoveCmd)
	selectionCmd.AddCommand(selectionEnableCmd)
	selectionCmd.AddCommand(selectionDisableCmd)
	selectionCmd.AddCommand(selectionSteamAppsCmd)
	rootCmd.AddCommand(selectionCmd)
}

// selectionJSON is the JSON shape of one selection for selection list
type selectionJSON struct {
	Key       string   `json:"key"`
	Name      string   `json:"name"`
	Root      string   `json:"root"`
	Enabled   bool     `json:"enabled"`
	Koaloader bool     `json:"koaloader"`
	Proxy     string   `json:"proxy,omitempty"`
	Dlc       int      `json:"dlc"`
	Shims     []string `json:"unlockers"`
}

func runSelectionList(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(service)

	sels := service.Registry().All()
	out := cmd.OutOrStdout()

	if jsonOutput {
		list := make([]selectionJSON, 0, len(sels))
		for _, sel := range sels {
			list = append(list, toSelectionJSON(sel))
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	if len(sels) == 0 {
		fmt.Fprintln(out, "No selections configured.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tNAME\tENABLED\tDLC\tUNLOCKERS")
	fmt.Fprintln(w, "---\t----\t-------\t---\t---------")
	for _, sel := range sels {
		s := toSelectionJSON(sel)
		enabled := colorGreen("yes")
		if !s.Enabled {
			enabled = colorYellow("no")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", s.Key, s.Name, enabled, s.Dlc, strings.Join(s.Shims, ", "))
	}
	return w.Flush()
}

func toSelectionJSON(sel *domain.ProgramSelection) selectionJSON {
	s := selectionJSON{
		Key:       sel.Key().String(),
		Name:      sel.Name,
		Root:      sel.RootDirectory,
		Enabled:   sel.Enabled,
		Koaloader: sel.Koaloader,
		Proxy:     sel.KoaloaderProxy,
		Dlc:       len(sel.SelectedDlc),
		Shims:     []string{},
	}
	for _, extra := range sel.ExtraSelectedDlc {
		s.Dlc += len(extra.Dlc)
	}
	for _, kind := range sel.ApplicableShims() {
		s.Shims = append(s.Shims, kind.String())
	}
	if sel.Koaloader && len(s.Shims) > 0 {
		s.Shims = append(s.Shims, domain.KindKoaloader.String())
	}
	return s
}

// parseDlcFlag parses id:type[:name]
func parseDlcFlag(v string) (string, domain.Dlc, error) {
	parts := strings.SplitN(v, ":", 3)
	if len(parts) < 2 || parts[0] == "" {
		return "", domain.Dlc{}, fmt.Errorf("invalid --dlc %q: want id:type[:name]", v)
	}
	typ, ok := domain.ParseDlcType(parts[1])
	if !ok {
		return "", domain.Dlc{}, fmt.Errorf("invalid --dlc %q: unknown type %q", v, parts[1])
	}
	d := domain.Dlc{Name: parts[0], Type: typ}
	if len(parts) == 3 && parts[2] != "" {
		d.Name = parts[2]
	}
	return parts[0], d, nil
}

// parseExeFlag parses path[:arch]
func parseExeFlag(root, v string) (domain.ExecutableDirectory, error) {
	path, arch := v, domain.ArchUnknown
	if i := strings.LastIndex(v, ":"); i > 0 {
		a, err := domain.ParseArch(v[i+1:])
		if err != nil {
			return domain.ExecutableDirectory{}, fmt.Errorf("--exe %q: %w", v, err)
		}
		path, arch = v[:i], a
	}
	return domain.ExecutableDirectory{Path: underRoot(root, path), Arch: arch}, nil
}

func underRoot(root, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(root, path)
}

func buildSelection(id string) (*domain.ProgramSelection, error) {
	platform, err := domain.ParsePlatform(addPlatform)
	if err != nil {
		return nil, err
	}
	sel := &domain.ProgramSelection{
		ID:          id,
		Name:        addName,
		Platform:    platform,
		SelectedDlc: map[string]domain.Dlc{},
		Koaloader:   addKoaloader,
		Enabled:     !addDisabled,
	}

	root := addRoot
	if addSteam {
		app, err := steam.FindApp(steam.Roots(), id)
		if err != nil {
			return nil, fmt.Errorf("looking up steam app %s: %w", id, err)
		}
		if root == "" {
			root = app.InstallPath
		}
		if sel.Name == "" {
			sel.Name = app.Name
		}
	}
	if root == "" {
		return nil, fmt.Errorf("no root directory; use --root or --steam")
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	sel.RootDirectory = root
	if sel.Name == "" {
		sel.Name = id
	}

	if addProxy != "" {
		proxy := component.NormalizeProxy(addProxy)
		if !component.IsProxy(proxy) {
			return nil, fmt.Errorf("%w: unsupported proxy %q", domain.ErrInvalidConfig, addProxy)
		}
		sel.KoaloaderProxy = proxy
	}

	for _, v := range addDlc {
		dlcID, d, err := parseDlcFlag(v)
		if err != nil {
			return nil, err
		}
		sel.SelectedDlc[dlcID] = d
	}
	for _, v := range addExes {
		exe, err := parseExeFlag(root, v)
		if err != nil {
			return nil, err
		}
		sel.ExecutableDirectories = append(sel.ExecutableDirectories, exe)
	}
	for _, v := range addDllDirs {
		sel.DllDirectories = append(sel.DllDirectories, underRoot(root, v))
	}

	if !addNoScan {
		if err := discovery.Fill(sel); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", root, err)
		}
	}
	return sel, nil
}

func runSelectionAdd(cmd *cobra.Command, args []string) error {
	sel, err := buildSelection(args[0])
	if err != nil {
		return err
	}

	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(service)

	registry := service.Registry()
	if addReplace {
		if _, err := registry.Get(sel.Platform, sel.ID); err == nil {
			if err := registry.Remove(sel.Platform, sel.ID); err != nil {
				return err
			}
		}
	}
	if err := registry.Add(sel); err != nil {
		return fmt.Errorf("%w (use --replace to overwrite)", err)
	}
	if err := service.SaveSelections(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Added %s [%s] in %s\n", sel.Name, sel.Key(), sel.RootDirectory)
	if verbose {
		for _, d := range sel.ExecutableDirectories {
			fmt.Fprintf(out, "  executable directory: %s (%s-bit)\n", d.Path, d.Arch)
		}
		for _, d := range sel.DllDirectories {
			fmt.Fprintf(out, "  dll directory: %s\n", d)
		}
	}
	if len(sel.ApplicableShims()) == 0 {
		fmt.Fprintln(out, colorYellow("No DLC selected; install will only clean up existing unlockers."))
	}
	return nil
}

// lookupSelection finds a single selection by id, narrowed by --platform when given
func lookupSelection(service *core.Service, id, platform string) (*domain.ProgramSelection, error) {
	if platform != "" {
		p, err := domain.ParsePlatform(platform)
		if err != nil {
			return nil, err
		}
		return service.Registry().Get(p, id)
	}
	found := service.Registry().Find(id)
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", domain.ErrSelectionNotFound, id)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("selection %s exists on several platforms; use --platform", id)
	}
}

func runSelectionRemove(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(service)

	sel, err := lookupSelection(service, args[0], removePlatform)
	if err != nil {
		return err
	}
	if err := service.Registry().Remove(sel.Platform, sel.ID); err != nil {
		return err
	}
	if err := service.SaveSelections(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s [%s]\n", sel.Name, sel.Key())
	return nil
}

func setSelectionEnabled(cmd *cobra.Command, id string, enabled bool) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(service)

	sel, err := lookupSelection(service, id, "")
	if err != nil {
		return err
	}
	sel.Enabled = enabled
	if err := service.SaveSelections(); err != nil {
		return err
	}

	state := "Enabled"
	if !enabled {
		state = "Disabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s [%s]\n", state, sel.Name, sel.Key())
	return nil
}

func runSelectionSteamApps(cmd *cobra.Command, args []string) error {
	apps := steam.InstalledApps(steam.Roots())
	out := cmd.OutOrStdout()

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(apps)
	}

	if len(apps) == 0 {
		fmt.Fprintln(out, "No Steam libraries found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "APP ID\tNAME\tPATH")
	for _, app := range apps {
		fmt.Fprintf(w, "%s\t%s\t%s\n", app.ID, app.Name, app.InstallPath)
	}
	return w.Flush()
}
