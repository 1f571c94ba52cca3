package main

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"dlcinst/internal/core"
	"dlcinst/internal/domain"
	"dlcinst/internal/fetch"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	payloadDest  string
	payloadForce bool
)

var payloadCmd = &cobra.Command{
	Use:   "payload",
	Short: "Payload library commands",
	Long:  `Commands for the unlocker libraries that installs deploy.`,
}

var payloadFetchCmd = &cobra.Command{
	Use:   "fetch <component> <url|archive|directory>",
	Short: "Import unlocker libraries from a release",
	Long: `Import the 32-bit and 64-bit libraries of a component from a release
archive (.zip or .7z), a URL to one, or an unpacked directory.

The libraries are written to the payload directory and used by the next
install. Files installed from the previous libraries are no longer recognized
afterwards, so the command refuses while the component is installed anywhere
unless --force is given.

Components: koaloader, smokeapi, screamapi, uplayr1, uplayr2.

Examples:
  dlcinst payload fetch smokeapi ~/Downloads/SmokeAPI-v2.0.5.zip
  dlcinst payload fetch koaloader https://example.org/Koaloader-v3.0.4.zip`,
	Args: cobra.ExactArgs(2),
	RunE: runPayloadFetch,
}

func init() {
	payloadFetchCmd.Flags().StringVar(&payloadDest, "dest", "", "payload directory (default: payload_dir from config, or <data>/payloads)")
	payloadFetchCmd.Flags().BoolVarP(&payloadForce, "force", "f", false, "import even while the component is installed")

	payloadCmd.AddCommand(payloadFetchCmd)
	rootCmd.AddCommand(payloadCmd)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// installedIn returns the directories of any selection holding an installer-owned binary of kind
func installedIn(service *core.Service, kind domain.ComponentKind) []string {
	var dirs []string
	for _, sel := range service.Registry().All() {
		candidates := selectionDirs(sel)
		// Koaloader modules can linger in directories that are no longer executable directories.
		if stale, err := service.Orchestrator().StaleDirectories(sel); err == nil {
			candidates = append(candidates, stale...)
		}
		for _, dir := range candidates {
			if service.Prober().Deployed(dir, kind) {
				dirs = append(dirs, dir)
			}
		}
	}
	return dirs
}

func runPayloadFetch(cmd *cobra.Command, args []string) error {
	kind, err := fetch.ParseKind(args[0])
	if err != nil {
		return err
	}
	source := args[1]

	svcCfg, err := getServiceConfig()
	if err != nil {
		return err
	}
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(service)

	if dirs := installedIn(service, kind); len(dirs) > 0 && !payloadForce {
		return fmt.Errorf("%s is installed in %s; uninstall it first or use --force", kind, strings.Join(dirs, ", "))
	}

	appConfig := service.Config()
	dest := payloadDest
	if dest == "" {
		dest = appConfig.PayloadDir
	}
	if dest == "" {
		dest = filepath.Join(svcCfg.DataDir, "payloads")
	}

	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	var imported []fetch.Imported
	switch {
	case isURL(source):
		u, err := url.Parse(source)
		if err != nil {
			return fmt.Errorf("invalid url: %w", err)
		}
		name := path.Base(u.Path)
		if fetch.DetectFormat(name) == "" {
			return fmt.Errorf("%w: %s", fetch.ErrUnsupportedArchive, name)
		}
		tmp, err := os.MkdirTemp("", "dlcinst-download-")
		if err != nil {
			return fmt.Errorf("creating temp dir: %w", err)
		}
		defer os.RemoveAll(tmp)

		result, err := fetch.NewDownloader(nil, "dlcinst/"+version).Download(ctx, source, filepath.Join(tmp, name), nil)
		if err != nil {
			return fmt.Errorf("downloading %s: %w", name, err)
		}
		fmt.Fprintf(out, "Downloaded %s (%s, sha256 %s)\n", name, humanize.Bytes(uint64(result.Size)), result.Checksum[:12])
		imported, err = fetch.ImportArchive(ctx, result.Path, kind, dest)
		if err != nil {
			return err
		}
	default:
		info, err := os.Stat(source)
		if err != nil {
			return fmt.Errorf("reading %s: %w", source, err)
		}
		if info.IsDir() {
			imported, err = fetch.Import(source, kind, dest)
		} else {
			imported, err = fetch.ImportArchive(ctx, source, kind, dest)
		}
		if err != nil {
			return err
		}
	}

	for _, imp := range imported {
		fmt.Fprintf(out, "Imported %s %s-bit from %s\n", imp.Kind, imp.Arch, filepath.Base(imp.Source))
	}
	if len(imported) == 1 {
		fmt.Fprintln(out, colorYellow(fmt.Sprintf("Only the %s-bit library was found; the other falls back to the built-in one.", imported[0].Arch)))
	}

	if appConfig.PayloadDir != dest {
		appConfig.PayloadDir = dest
		if err := appConfig.Save(svcCfg.ConfigDir); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Fprintf(out, "Payload directory set to %s\n", dest)
	}
	return nil
}
