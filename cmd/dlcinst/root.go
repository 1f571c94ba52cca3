package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"dlcinst/internal/core"
	"dlcinst/internal/domain"
	"dlcinst/internal/storage/config"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// ErrCancelled is returned when the user cancels an operation (e.g. prompt declined).
// When returned from a command, Execute exits with code 2.
var ErrCancelled = errors.New("cancelled")

var (
	version = "0.4.0"

	// Global flags
	configDir      string
	dataDir        string
	selectionsFile string
	verbose        bool
	noHooks        bool
	jsonOutput     bool
	noColor        bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dlcinst",
	Short: "Install and remove DLC unlockers for Steam, Epic and Ubisoft games",
	Long: `dlcinst installs, repairs and removes DLC unlocker libraries
(SmokeAPI, ScreamAPI, Uplay R1/R2 and the Koaloader proxy) in game directories.

Games are described in a selections file. Run 'dlcinst selection add' to add
one, then 'dlcinst install' to bring every enabled game in line with it.`,
	Version:       version,
	SilenceUsage:  true, // Runtime errors should not print usage
	SilenceErrors: true, // We handle error output in Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default: ~/.config/dlcinst)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default: ~/.local/share/dlcinst)")
	rootCmd.PersistentFlags().StringVar(&selectionsFile, "selections", "", "selections file (default: <config>/selections.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noHooks, "no-hooks", false, "disable all hooks")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format (status, selection list, history)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// stdoutIsTerminal reports whether stdout is attached to a terminal
var stdoutIsTerminal = func() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// colorEnabled returns true if colored output should be used (respects --no-color and NO_COLOR env).
// NO_COLOR: if set (any value), color is disabled per https://no-color.org
// Output piped to a file or another program is never colored.
func colorEnabled() bool {
	if noColor {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return stdoutIsTerminal()
}

func colorize(attr color.Attribute, s string) string {
	if !colorEnabled() {
		return s
	}
	c := color.New(attr)
	c.EnableColor()
	return c.Sprint(s)
}

// colorGreen returns s in green when color is enabled, otherwise s.
func colorGreen(s string) string { return colorize(color.FgGreen, s) }

// colorRed returns s in red when color is enabled, otherwise s.
func colorRed(s string) string { return colorize(color.FgRed, s) }

// colorYellow returns s in yellow when color is enabled, otherwise s.
func colorYellow(s string) string { return colorize(color.FgYellow, s) }

// colorCyan returns s in cyan when color is enabled, otherwise s.
func colorCyan(s string) string { return colorize(color.FgCyan, s) }

// exitCode maps a command error to the process exit status.
// 0 = success, 1 = error, 2 = user cancelled.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrCancelled), errors.Is(err, domain.ErrCanceled):
		return 2
	default:
		return 1
	}
}

// Execute runs the root command. Exit codes: 0 = success, 1 = error, 2 = user cancelled.
// When --json is set and an error occurs, prints {"error":"..."} to stdout before exiting.
// Cancellation exits with code 2 without printing JSON, since it is a user action, not an error.
func Execute() {
	err := rootCmd.Execute()
	code := exitCode(err)
	if code == 1 {
		if jsonOutput {
			fmt.Printf(`{"error":%q}`+"\n", err.Error())
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	if code != 0 {
		os.Exit(code)
	}
}

// newLogger returns the diagnostic logger. Debug output is only shown with --verbose.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// initService creates and initializes the core service
func initService() (*core.Service, error) {
	cfg, err := getServiceConfig()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.ConfigDir, 0755); err != nil {
		return nil, fmt.Errorf("creating config dir: %w", err)
	}

	return core.NewService(cfg)
}

// getServiceConfig returns the service configuration with defaults applied
func getServiceConfig() (core.ServiceConfig, error) {
	dirs, err := config.DefaultDirs(config.Dirs{Config: configDir, Data: dataDir})
	if err != nil {
		return core.ServiceConfig{}, err
	}

	cfg := core.ServiceConfig{
		ConfigDir: dirs.Config,
		DataDir:   dirs.Data,
		Logger:    newLogger(),
		NoHooks:   noHooks,
	}

	if selectionsFile != "" {
		path, err := config.ParseSelectionsPath(selectionsFile)
		if err != nil {
			return core.ServiceConfig{}, err
		}
		cfg.SelectionsPath = path
	}

	return cfg, nil
}

// closeService closes svc, reporting failures as a warning
func closeService(svc *core.Service) {
	if err := svc.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing service: %v\n", err)
	}
}
