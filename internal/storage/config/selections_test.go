package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"dlcinst/internal/domain"
	"dlcinst/internal/storage/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSelections_MissingFile(t *testing.T) {
	sels, err := config.LoadSelections(filepath.Join(t.TempDir(), "selections.yaml"))
	require.NoError(t, err)
	assert.Empty(t, sels)
}

func TestLoadSelections_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selections.yaml")
	content := `
selections:
  - id: "1000"
    name: Test Game
    platform: steam
    root: /games/test
    executables:
      - path: Binaries/Win64
        arch: x64
      - path: /games/test/Launcher
    dll_directories:
      - Binaries/Win64
    dlc:
      "1001": {name: Soundtrack, type: steam}
      "1002": {name: Secret Pack, type: steam_hidden}
    extra_dlc:
      - id: "2000"
        name: Companion
        dlc:
          "2001": {type: steam}
    koaloader: true
    koaloader_proxy: WinHTTP
  - id: epicgame
    platform: epic
    root: /games/epic
    enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	sels, err := config.LoadSelections(path)
	require.NoError(t, err)
	require.Len(t, sels, 2)

	s := sels[0]
	assert.Equal(t, domain.PlatformSteam, s.Platform)
	assert.Equal(t, []domain.ExecutableDirectory{
		{Path: "/games/test/Binaries/Win64", Arch: domain.Arch64},
		{Path: "/games/test/Launcher", Arch: domain.ArchUnknown},
	}, s.ExecutableDirectories)
	assert.Equal(t, []string{"/games/test/Binaries/Win64"}, s.DllDirectories)
	assert.Equal(t, domain.Dlc{Name: "Secret Pack", Type: domain.DlcSteamHidden}, s.SelectedDlc["1002"])
	require.Len(t, s.ExtraSelectedDlc, 1)
	assert.Equal(t, domain.DlcSteam, s.ExtraSelectedDlc[0].Dlc["2001"].Type)
	assert.True(t, s.Koaloader)
	assert.Equal(t, "winhttp", s.KoaloaderProxy)
	assert.True(t, s.Enabled)

	assert.Equal(t, "epicgame", sels[1].Name)
	assert.False(t, sels[1].Enabled)
}

func TestLoadSelections_Invalid(t *testing.T) {
	tests := map[string]string{
		"platform": "selections:\n  - {id: a, platform: gog, root: /g}\n",
		"root":     "selections:\n  - {id: a, platform: steam, root: relative}\n",
		"dlc type": "selections:\n  - {id: a, platform: steam, root: /g, dlc: {'1': {type: bogus}}}\n",
		"proxy":    "selections:\n  - {id: a, platform: steam, root: /g, koaloader_proxy: ntdll}\n",
		"id":       "selections:\n  - {platform: steam, root: /g}\n",
		"arch":     "selections:\n  - {id: a, platform: steam, root: /g, executables: [{path: bin, arch: 64bit}]}\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "selections.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))

			_, err := config.LoadSelections(path)
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
		})
	}
}

func TestSaveSelections_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "selections.yaml")
	want := []*domain.ProgramSelection{
		{
			ID:                    "1000",
			Name:                  "Test Game",
			Platform:              domain.PlatformParadox,
			RootDirectory:         "/games/test",
			ExecutableDirectories: []domain.ExecutableDirectory{{Path: "/games/test/bin", Arch: domain.Arch32}},
			DllDirectories:        []string{"/games/test/bin"},
			SelectedDlc: map[string]domain.Dlc{
				"1001":  {Name: "Soundtrack", Type: domain.DlcSteam},
				"offer": {Name: "Skin", Type: domain.DlcEpicCatalogItem},
			},
			ExtraSelectedDlc: []domain.ExtraDlc{{ID: "2000", Name: "Companion", Dlc: map[string]domain.Dlc{"2001": {Type: domain.DlcSteam}}}},
			Koaloader:        true,
			KoaloaderProxy:   "dinput8",
			Enabled:          false,
		},
	}

	require.NoError(t, config.SaveSelections(path, want))
	got, err := config.LoadSelections(path)

	require.NoError(t, err)
	assert.Equal(t, want, got)
}
