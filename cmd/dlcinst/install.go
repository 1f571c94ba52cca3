package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dlcinst/internal/core"
	"dlcinst/internal/process"
	"dlcinst/internal/tui"

	"github.com/spf13/cobra"
)

var (
	installPlain     bool
	installNoProcess bool
)

var installCmd = &cobra.Command{
	Use:   "install [selection-id...]",
	Short: "Install DLC unlockers",
	Long: `Install or repair DLC unlockers for every enabled selection, or only for
the selections named on the command line (by id or platform/id).

Each selection is brought in line with its DLC choices: missing unlockers are
installed, unlockers that no longer apply are removed, and configurations are
rewritten.

Examples:
  dlcinst install
  dlcinst install 413150
  dlcinst install steam/413150 --plain`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReconcile(cmd, args, core.ModeInstall)
	},
}

func init() {
	installCmd.Flags().BoolVar(&installPlain, "plain", false, "print plain log lines instead of the interactive view")
	installCmd.Flags().BoolVar(&installNoProcess, "skip-process-check", false, "do not refuse games that are currently running")

	rootCmd.AddCommand(installCmd)
}

// interactive reports whether the run view can be shown
func interactive() bool {
	if installPlain || jsonOutput {
		return false
	}
	return stdoutIsTerminal()
}

func runReconcile(cmd *cobra.Command, args []string, mode core.Mode) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(service)

	if err := service.Restrict(args); err != nil {
		return err
	}

	if len(service.Registry().Enabled()) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No enabled selections. Add one with 'dlcinst selection add'.")
		return nil
	}

	opts := core.RunnerOptions{Mode: mode}
	if !installNoProcess {
		opts.Checker = process.NewChecker(newLogger())
	}

	if interactive() {
		return runInteractive(cmd.Context(), service, opts)
	}
	return runPlain(cmd, service, opts)
}

func runPlain(cmd *cobra.Command, service *core.Service, opts core.RunnerOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts.Reporter = newLineReporter(cmd.OutOrStdout(), verbose)
	runner := service.NewRunner(opts)

	_, err := runner.Start(ctx)
	if acceptErr := runner.Accept(); acceptErr != nil && err == nil {
		return acceptErr
	}
	return err
}

func runInteractive(ctx context.Context, service *core.Service, opts core.RunnerOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	reporter := tui.NewChanReporter()
	opts.Reporter = reporter
	runner := service.NewRunner(opts)

	title := "Installing DLC unlockers"
	if opts.Mode == core.ModeUninstall {
		title = "Uninstalling DLC unlockers"
	}

	app, err := tui.Run(ctx, title, runner, reporter, tui.NewKeyMap(service.Config().Keybindings))
	if err != nil {
		return err
	}

	if app.Reselected() {
		fmt.Printf("Selections left unchanged. Edit them with 'dlcinst selection' and run %s again.\n", opts.Mode)
		return nil
	}

	result := app.Outcome()
	if result == nil {
		return ErrCancelled
	}
	fmt.Println(styleOutcome(result.Outcome))
	return result.Err
}

func styleOutcome(o core.Outcome) string {
	msg := o.Message()
	switch o.State {
	case core.StateSucceeded:
		return colorGreen(msg)
	case core.StateCanceled:
		return colorYellow(msg)
	default:
		return colorRed(msg)
	}
}
