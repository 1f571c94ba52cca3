package main

import (
	"errors"
	"fmt"

	"dlcinst/internal/core"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var uninstallYes bool

var uninstallCmd = &cobra.Command{
	Use:   "uninstall [selection-id...]",
	Short: "Remove DLC unlockers",
	Long: `Remove every DLC unlocker from the enabled selections, or only from the
selections named on the command line. Original libraries that were renamed
aside during install are restored.

Examples:
  dlcinst uninstall
  dlcinst uninstall 413150 --yes`,
	RunE: runUninstall,
}

func init() {
	uninstallCmd.Flags().BoolVarP(&uninstallYes, "yes", "y", false, "do not ask for confirmation")
	uninstallCmd.Flags().BoolVar(&installPlain, "plain", false, "print plain log lines instead of the interactive view")
	uninstallCmd.Flags().BoolVar(&installNoProcess, "skip-process-check", false, "do not refuse games that are currently running")

	rootCmd.AddCommand(uninstallCmd)
}

// confirmFunc asks a yes/no question; replaced in tests
var confirmFunc = func(title string) (bool, error) {
	ok := false
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Affirmative("Uninstall").
			Negative("Cancel").
			Value(&ok),
	)).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

func runUninstall(cmd *cobra.Command, args []string) error {
	if !uninstallYes {
		if !interactive() {
			return fmt.Errorf("refusing to uninstall without confirmation; use --yes")
		}
		ok, err := confirmFunc("Remove DLC unlockers from the selected games?")
		if err != nil {
			return fmt.Errorf("confirming: %w", err)
		}
		if !ok {
			return ErrCancelled
		}
	}
	return runReconcile(cmd, args, core.ModeUninstall)
}
