package core_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"dlcinst/internal/component"
	"dlcinst/internal/core"
	"dlcinst/internal/domain"
	"dlcinst/internal/linker"
	"dlcinst/internal/payload"
	"dlcinst/internal/probe"
	"dlcinst/internal/storage/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	orch     *core.Orchestrator
	prober   *probe.Prober
	payloads *payload.Set
}

func newFixture(t *testing.T, method domain.LinkMethod) fixture {
	t.Helper()
	set, err := payload.Embedded()
	require.NoError(t, err)
	prober := probe.New(set)
	inst := component.NewInstaller(set, cache.New(t.TempDir()), linker.New(method), nil)
	return fixture{
		orch:     core.NewOrchestrator(prober, inst, "", nil),
		prober:   prober,
		payloads: set,
	}
}

// steamGame lays out root/bin as the single executable and DLL directory
func steamGame(t *testing.T) (*domain.ProgramSelection, string) {
	t.Helper()
	root := t.TempDir()
	bin := filepath.Join(root, "bin")
	require.NoError(t, os.MkdirAll(bin, 0755))
	return &domain.ProgramSelection{
		ID:                    "1000",
		Name:                  "Test Game",
		Platform:              domain.PlatformSteam,
		RootDirectory:         root,
		ExecutableDirectories: []domain.ExecutableDirectory{{Path: bin, Arch: domain.Arch64}},
		DllDirectories:        []string{bin},
		SelectedDlc:           map[string]domain.Dlc{"1001": {Name: "Soundtrack", Type: domain.DlcSteam}},
		Enabled:               true,
	}, bin
}

// tree returns relative path -> content for every file under root
func tree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		out[rel] = string(data)
		return nil
	})
	require.NoError(t, err)
	return out
}

func names(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func TestReconcile_DirectInstall(t *testing.T) {
	f := newFixture(t, domain.LinkCopy)
	sel, bin := steamGame(t)

	require.NoError(t, f.orch.Reconcile(sel, false, nil))

	assert.Equal(t, []string{"SmokeAPI.config.json", "steam_api64.dll"}, names(t, bin))
	assert.True(t, f.prober.Shim(bin, domain.KindSmokeAPI).Active)
	assert.False(t, f.prober.Loader(bin).Any())

	data, err := os.ReadFile(filepath.Join(bin, "SmokeAPI.config.json"))
	require.NoError(t, err)
	var cfg struct {
		OverrideDlcStatus map[string]string `json:"override_dlc_status"`
	}
	require.NoError(t, json.Unmarshal(data, &cfg))
	assert.Equal(t, map[string]string{"1001": "unlocked"}, cfg.OverrideDlcStatus)
}

func TestReconcile_LoaderInstall(t *testing.T) {
	f := newFixture(t, domain.LinkCopy)
	sel, bin := steamGame(t)
	sel.Koaloader = true
	sel.KoaloaderProxy = "version"

	require.NoError(t, f.orch.Reconcile(sel, false, nil))

	assert.Equal(t, []string{"Koaloader.json", "SmokeAPI64.dll", "version.dll"}, names(t, bin))
	assert.True(t, f.prober.Loader(bin).Active)
	smoke := f.prober.Shim(bin, domain.KindSmokeAPI)
	assert.False(t, smoke.Active)
	assert.False(t, smoke.Residual)
}

func TestReconcile_Idempotent(t *testing.T) {
	for _, method := range []domain.LinkMethod{domain.LinkCopy, domain.LinkHardlink, domain.LinkSymlink} {
		for _, koaloader := range []bool{false, true} {
			t.Run(method.String(), func(t *testing.T) {
				f := newFixture(t, method)
				sel, _ := steamGame(t)
				sel.Koaloader = koaloader

				require.NoError(t, f.orch.Reconcile(sel, false, nil))
				first := tree(t, sel.RootDirectory)

				rep := &core.RecordingReporter{}
				require.NoError(t, f.orch.Reconcile(sel, false, core.NewTracker(rep, 1)))
				assert.Equal(t, first, tree(t, sel.RootDirectory))

				if !koaloader {
					for _, e := range rep.Events() {
						assert.NotEqual(t, core.SeverityAction, e.Severity, e.Text)
					}
				}
			})
		}
	}
}

func TestReconcile_RoundTripRestoresOriginal(t *testing.T) {
	for _, koaloader := range []bool{false, true} {
		f := newFixture(t, domain.LinkCopy)
		sel, bin := steamGame(t)
		sel.Koaloader = koaloader
		require.NoError(t, os.WriteFile(filepath.Join(bin, "steam_api64.dll"), []byte("valve original"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(bin, "game.exe"), []byte("MZ"), 0644))
		before := tree(t, sel.RootDirectory)

		require.NoError(t, f.orch.Reconcile(sel, false, nil))
		require.NotEqual(t, before, tree(t, sel.RootDirectory))

		require.NoError(t, f.orch.Reconcile(sel, true, nil))
		assert.Equal(t, before, tree(t, sel.RootDirectory), "koaloader=%v", koaloader)
	}
}

func TestReconcile_LoaderTakesPrecedence(t *testing.T) {
	f := newFixture(t, domain.LinkCopy)
	sel, bin := steamGame(t)
	require.NoError(t, os.WriteFile(filepath.Join(bin, "steam_api64.dll"), []byte("valve original"), 0644))

	require.NoError(t, f.orch.Reconcile(sel, false, nil))
	require.True(t, f.prober.Shim(bin, domain.KindSmokeAPI).Active)

	sel.Koaloader = true
	require.NoError(t, f.orch.Reconcile(sel, false, nil))

	assert.False(t, f.prober.Shim(bin, domain.KindSmokeAPI).Any())
	assert.True(t, f.prober.Loader(bin).Active)
	original, err := os.ReadFile(filepath.Join(bin, "steam_api64.dll"))
	require.NoError(t, err)
	assert.Equal(t, "valve original", string(original))

	// And back again
	sel.Koaloader = false
	require.NoError(t, f.orch.Reconcile(sel, false, nil))
	assert.False(t, f.prober.Loader(bin).Any())
	assert.True(t, f.prober.Shim(bin, domain.KindSmokeAPI).Active)
}

func TestReconcile_ConflictLeavesDirectoryUntouched(t *testing.T) {
	f := newFixture(t, domain.LinkCopy)
	sel, bin := steamGame(t)
	require.NoError(t, os.WriteFile(filepath.Join(bin, "steam_api64.dll"), []byte("updated by the store"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(bin, "steam_api64_o.dll"), []byte("older original"), 0644))
	before := tree(t, sel.RootDirectory)

	err := f.orch.Reconcile(sel, false, nil)

	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, before, tree(t, sel.RootDirectory))
}

func TestReconcile_RepairsDrift(t *testing.T) {
	f := newFixture(t, domain.LinkCopy)
	sel, bin := steamGame(t)
	require.NoError(t, f.orch.Reconcile(sel, false, nil))
	want := tree(t, sel.RootDirectory)

	require.NoError(t, os.Remove(filepath.Join(bin, "SmokeAPI.config.json")))
	require.NoError(t, f.orch.Reconcile(sel, false, nil))
	assert.Equal(t, want, tree(t, sel.RootDirectory))

	require.NoError(t, os.Remove(filepath.Join(bin, "steam_api64.dll")))
	require.NoError(t, f.orch.Reconcile(sel, false, nil))
	assert.Equal(t, want, tree(t, sel.RootDirectory))
}

func TestReconcile_RefreshesConfigAfterSelectionChange(t *testing.T) {
	f := newFixture(t, domain.LinkCopy)
	sel, bin := steamGame(t)
	require.NoError(t, f.orch.Reconcile(sel, false, nil))

	sel.SelectedDlc["1003"] = domain.Dlc{Name: "Expansion", Type: domain.DlcSteam}
	rep := &core.RecordingReporter{}
	require.NoError(t, f.orch.Reconcile(sel, false, core.NewTracker(rep, 1)))

	data, err := os.ReadFile(filepath.Join(bin, "SmokeAPI.config.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"1003"`)

	var actions int
	for _, e := range rep.Events() {
		if e.Severity == core.SeverityAction {
			actions++
		}
	}
	assert.Equal(t, 1, actions)
}

func TestReconcile_RemovesLoaderFromStaleDirectory(t *testing.T) {
	f := newFixture(t, domain.LinkCopy)
	sel, bin := steamGame(t)
	sel.Koaloader = true
	require.NoError(t, f.orch.Reconcile(sel, false, nil))

	// The executable moved to a new directory
	moved := filepath.Join(sel.RootDirectory, "binaries", "win64")
	require.NoError(t, os.MkdirAll(moved, 0755))
	sel.ExecutableDirectories = []domain.ExecutableDirectory{{Path: moved, Arch: domain.Arch64}}
	sel.DllDirectories = []string{moved}

	stale, err := f.orch.StaleDirectories(sel)
	require.NoError(t, err)
	assert.Equal(t, []string{bin}, stale)

	require.NoError(t, f.orch.Reconcile(sel, false, nil))
	assert.Empty(t, names(t, bin))
	assert.True(t, f.prober.Loader(moved).Active)
}

func TestReconcile_MissingRootIsFilesystemError(t *testing.T) {
	f := newFixture(t, domain.LinkCopy)
	sel, _ := steamGame(t)
	sel.RootDirectory = filepath.Join(sel.RootDirectory, "gone")

	err := f.orch.Reconcile(sel, false, nil)
	assert.ErrorIs(t, err, domain.ErrFilesystem)
}

func TestReconcile_SkipsShimsThatDoNotApply(t *testing.T) {
	f := newFixture(t, domain.LinkCopy)
	sel, bin := steamGame(t)
	sel.SelectedDlc = nil

	require.NoError(t, f.orch.Reconcile(sel, false, nil))
	assert.Empty(t, names(t, bin))
}

func TestReconcile_ReportsSelectionProgress(t *testing.T) {
	f := newFixture(t, domain.LinkCopy)
	sel, bin := steamGame(t)
	second := filepath.Join(sel.RootDirectory, "plugins")
	require.NoError(t, os.MkdirAll(second, 0755))
	sel.DllDirectories = []string{bin, second}

	rep := &core.RecordingReporter{}
	require.NoError(t, f.orch.Reconcile(sel, false, core.NewTracker(rep, 1)))

	var percents []int
	for _, p := range rep.Updates() {
		percents = append(percents, p.Selection)
	}
	assert.Equal(t, []int{50, 100, 100}, percents)
}
