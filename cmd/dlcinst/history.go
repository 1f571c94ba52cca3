package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"dlcinst/internal/storage/db"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyKeep  int
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show past install and uninstall runs",
	Long: `Show recorded runs, newest first. With a run id, show the result of
every selection in that run.

Examples:
  dlcinst history
  dlcinst history --limit 5
  dlcinst history 12`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old runs",
	Args:  cobra.NoArgs,
	RunE:  runHistoryPrune,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show")
	historyPruneCmd.Flags().IntVar(&historyKeep, "keep", 50, "number of newest runs to keep")

	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

var errHistoryDisabled = errors.New("history is disabled; set 'history: true' in config.yaml")

func runHistory(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(service)

	database := service.DB()
	if database == nil {
		return errHistoryDisabled
	}

	if len(args) == 1 {
		runID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run id %q", args[0])
		}
		return showRun(cmd, database, runID)
	}

	runs, err := database.Runs(historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		if runs == nil {
			runs = []db.Run{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODE\tSTARTED\tPROGRAMS\tFAILED\tSTATE")
	fmt.Fprintln(w, "--\t----\t-------\t--------\t------\t-----")
	for _, r := range runs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.Mode, humanize.Time(r.StartedAt), r.Total, r.Failed, styleRunState(r.State))
	}
	return w.Flush()
}

func styleRunState(state string) string {
	switch state {
	case "succeeded":
		return colorGreen(state)
	case "canceled", "running":
		return colorYellow(state)
	default:
		return colorRed(state)
	}
}

func showRun(cmd *cobra.Command, database *db.DB, runID int64) error {
	results, err := database.RunSelections(runID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		if results == nil {
			results = []db.SelectionResult{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintf(out, "No results recorded for run %d.\n", runID)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SELECTION\tNAME\tRESULT\tERROR")
	for _, r := range results {
		result := colorGreen("ok")
		if !r.Succeeded {
			result = colorRed(r.ErrorClass)
		}
		fmt.Fprintf(w, "%s/%s\t%s\t%s\t%s\n", r.Platform, r.SelectionID, r.Name, result, r.Error)
	}
	return w.Flush()
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	if historyKeep < 0 {
		return fmt.Errorf("--keep must not be negative")
	}

	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(service)

	database := service.DB()
	if database == nil {
		return errHistoryDisabled
	}

	n, err := database.Prune(historyKeep)
	if err != nil {
		return err
	}
	noun := "runs"
	if n == 1 {
		noun = "run"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d %s.\n", n, noun)
	return nil
}
