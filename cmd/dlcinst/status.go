package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"dlcinst/internal/core"
	"dlcinst/internal/domain"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [selection-id...]",
	Short: "Show unlocker state of each selection",
	Long: `Show which unlocker files are present in the directories of each
selection, without changing anything.

Examples:
  dlcinst status
  dlcinst status 413150 --json`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// componentStatusJSON is the JSON shape of one component in one directory
type componentStatusJSON struct {
	Component string   `json:"component"`
	Active    bool     `json:"active"`
	Backup    bool     `json:"backup"`
	Residual  bool     `json:"residual"`
	Files     []string `json:"files"`
}

// directoryStatusJSON is the JSON shape of one probed directory
type directoryStatusJSON struct {
	Path       string                `json:"path"`
	Components []componentStatusJSON `json:"components"`
}

// selectionStatusJSON is the JSON shape of one selection
type selectionStatusJSON struct {
	Key         string                `json:"key"`
	Name        string                `json:"name"`
	Enabled     bool                  `json:"enabled"`
	Koaloader   bool                  `json:"koaloader"`
	Directories []directoryStatusJSON `json:"directories"`
	Stale       []string              `json:"stale_loader_directories,omitempty"`
	LastResult  *lastResultJSON       `json:"last_result,omitempty"`
}

type lastResultJSON struct {
	RunID     int64  `json:"run_id"`
	Succeeded bool   `json:"succeeded"`
	Error     string `json:"error,omitempty"`
	When      string `json:"when"`
}

// statusOutputJSON is the top-level JSON for dlcinst status
type statusOutputJSON struct {
	Selections []selectionStatusJSON `json:"selections"`
	CacheBytes int64                 `json:"cache_bytes"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(service)

	if err := service.Restrict(args); err != nil {
		return err
	}

	var sels []*domain.ProgramSelection
	if len(args) > 0 {
		sels = service.Registry().Enabled()
	} else {
		sels = service.Registry().All()
	}

	out := statusOutputJSON{Selections: make([]selectionStatusJSON, 0, len(sels))}
	for _, sel := range sels {
		out.Selections = append(out.Selections, selectionStatus(service, sel))
	}
	if size, err := service.Cache().Size(); err == nil {
		out.CacheBytes = size
	}

	w := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(sels) == 0 {
		fmt.Fprintln(w, "No selections configured. Add one with 'dlcinst selection add'.")
		return nil
	}
	printStatus(w, out)
	return nil
}

func selectionStatus(service *core.Service, sel *domain.ProgramSelection) selectionStatusJSON {
	st := selectionStatusJSON{
		Key:       sel.Key().String(),
		Name:      sel.Name,
		Enabled:   sel.Enabled,
		Koaloader: sel.Koaloader,
	}

	for _, dir := range selectionDirs(sel) {
		presence := service.Prober().Probe(dir)
		ds := directoryStatusJSON{Path: dir, Components: []componentStatusJSON{}}
		for _, kind := range append([]domain.ComponentKind{domain.KindKoaloader}, domain.ShimKinds...) {
			state := presence[kind]
			if !state.Any() {
				continue
			}
			ds.Components = append(ds.Components, componentStatusJSON{
				Component: kind.String(),
				Active:    state.Active,
				Backup:    state.Backup,
				Residual:  state.Residual,
				Files:     state.Files,
			})
		}
		st.Directories = append(st.Directories, ds)
	}

	if stale, err := service.Orchestrator().StaleDirectories(sel); err == nil {
		st.Stale = stale
	} else if verbose {
		fmt.Fprintf(os.Stderr, "warning: scanning %s: %v\n", sel.Name, err)
	}

	if database := service.DB(); database != nil {
		if last, err := database.LastResult(sel.Platform, sel.ID); err == nil && last != nil {
			st.LastResult = &lastResultJSON{
				RunID:     last.RunID,
				Succeeded: last.Succeeded,
				Error:     last.Error,
				When:      humanize.Time(last.RecordedAt),
			}
		}
	}

	return st
}

// selectionDirs returns the executable and DLL directories of sel, sorted and unique
func selectionDirs(sel *domain.ProgramSelection) []string {
	var dirs []string
	for _, d := range sel.ExecutableDirectories {
		dirs = append(dirs, d.Path)
	}
	dirs = append(dirs, sel.DllDirectories...)
	slices.Sort(dirs)
	return slices.Compact(dirs)
}

func describeState(c componentStatusJSON) string {
	var parts []string
	if c.Active {
		parts = append(parts, colorGreen("installed"))
	}
	if c.Backup {
		parts = append(parts, "original backed up")
	}
	if c.Residual {
		parts = append(parts, colorYellow("leftovers"))
	}
	return strings.Join(parts, ", ")
}

func printStatus(out io.Writer, status statusOutputJSON) {
	for i, sel := range status.Selections {
		if i > 0 {
			fmt.Fprintln(out)
		}
		enabled := ""
		if !sel.Enabled {
			enabled = " (disabled)"
		}
		fmt.Fprintf(out, "%s [%s]%s\n", sel.Name, sel.Key, enabled)
		if sel.LastResult != nil {
			result := colorGreen("succeeded")
			if !sel.LastResult.Succeeded {
				result = colorRed("failed: " + sel.LastResult.Error)
			}
			fmt.Fprintf(out, "  Last run: %s %s\n", result, sel.LastResult.When)
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  DIRECTORY\tCOMPONENT\tSTATE\tFILES")
		for _, dir := range sel.Directories {
			if len(dir.Components) == 0 {
				fmt.Fprintf(w, "  %s\t-\tclean\t\n", dir.Path)
				continue
			}
			for _, c := range dir.Components {
				fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", dir.Path, c.Component, describeState(c), strings.Join(c.Files, " "))
			}
		}
		w.Flush()

		for _, dir := range sel.Stale {
			fmt.Fprintf(out, "  %s Koaloader in %s\n", colorYellow("stale:"), dir)
		}
	}

	fmt.Fprintf(out, "\nPayload cache: %s\n", humanize.Bytes(uint64(max(status.CacheBytes, 0))))
}
