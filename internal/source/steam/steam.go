// Package steam locates games installed through Steam libraries.
package steam

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrAppNotInstalled is returned when no library holds the requested app
var ErrAppNotInstalled = errors.New("steam app not installed")

// App is an installed Steam app
type App struct {
	ID          string
	Name        string
	InstallPath string // .../steamapps/common/<installdir>
	Library     string
}

// Roots returns candidate Steam installation roots in search order.
// STEAM_ROOT, when set, comes first.
func Roots() []string {
	home, _ := os.UserHomeDir()
	candidates := []string{
		os.Getenv("STEAM_ROOT"),
		filepath.Join(home, ".steam", "steam"),
		filepath.Join(home, ".local", "share", "Steam"),
		filepath.Join(home, ".var", "app", "com.valvesoftware.Steam", ".local", "share", "Steam"),
	}

	seen := map[string]bool{}
	var out []string
	for _, p := range candidates {
		if p == "" {
			continue
		}
		resolved, err := filepath.EvalSymlinks(p)
		if err != nil {
			continue
		}
		if info, err := os.Stat(resolved); err != nil || !info.IsDir() || seen[resolved] {
			continue
		}
		seen[resolved] = true
		out = append(out, resolved)
	}
	return out
}

// Libraries returns the library folders listed in a Steam root's
// libraryfolders.vdf. A root without the file is its own only library.
func Libraries(root string) ([]string, error) {
	path := filepath.Join(root, "steamapps", "libraryfolders.vdf")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{root}, nil
		}
		return nil, fmt.Errorf("reading libraryfolders: %w", err)
	}
	defer f.Close()

	kv, err := ParseKeyValues(f)
	if err != nil {
		return nil, fmt.Errorf("parsing libraryfolders: %w", err)
	}
	folders, ok := kv.Block("libraryfolders")
	if !ok {
		return []string{root}, nil
	}

	var libs []string
	for i := 0; ; i++ {
		entry, ok := folders.Block(fmt.Sprint(i))
		if !ok {
			break
		}
		if p := entry.String("path"); p != "" {
			libs = append(libs, p)
		}
	}
	if len(libs) == 0 {
		return []string{root}, nil
	}
	return libs, nil
}

// ReadManifest parses an appmanifest_<id>.acf file
func ReadManifest(path string) (App, error) {
	f, err := os.Open(path)
	if err != nil {
		return App{}, err
	}
	defer f.Close()

	kv, err := ParseKeyValues(f)
	if err != nil {
		return App{}, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	state, ok := kv.Block("AppState")
	if !ok {
		return App{}, fmt.Errorf("parsing %s: missing AppState", filepath.Base(path))
	}
	app := App{
		ID:   state.String("appid"),
		Name: state.String("name"),
	}
	if dir := state.String("installdir"); dir != "" {
		library := filepath.Dir(filepath.Dir(path))
		app.Library = library
		app.InstallPath = filepath.Join(library, "steamapps", "common", dir)
	}
	return app, nil
}

// FindApp searches every library of every root for appID
func FindApp(roots []string, appID string) (App, error) {
	for _, root := range roots {
		libs, err := Libraries(root)
		if err != nil {
			continue
		}
		for _, lib := range libs {
			app, err := ReadManifest(filepath.Join(lib, "steamapps", "appmanifest_"+appID+".acf"))
			if err != nil || app.InstallPath == "" {
				continue
			}
			if info, err := os.Stat(app.InstallPath); err != nil || !info.IsDir() {
				continue
			}
			return app, nil
		}
	}
	return App{}, fmt.Errorf("%w: %s", ErrAppNotInstalled, appID)
}

// InstalledApps lists every app with an existing install directory
func InstalledApps(roots []string) []App {
	seen := map[string]bool{}
	var apps []App
	for _, root := range roots {
		libs, err := Libraries(root)
		if err != nil {
			continue
		}
		for _, lib := range libs {
			entries, err := os.ReadDir(filepath.Join(lib, "steamapps"))
			if err != nil {
				continue
			}
			for _, e := range entries {
				name := e.Name()
				if e.IsDir() || !strings.HasPrefix(name, "appmanifest_") || !strings.HasSuffix(name, ".acf") {
					continue
				}
				app, err := ReadManifest(filepath.Join(lib, "steamapps", name))
				if err != nil || app.ID == "" || app.InstallPath == "" || seen[app.ID] {
					continue
				}
				if _, err := os.Stat(app.InstallPath); err != nil {
					continue
				}
				seen[app.ID] = true
				apps = append(apps, app)
			}
		}
	}
	return apps
}
