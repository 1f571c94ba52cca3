package main

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"dlcinst/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDlcFlag(t *testing.T) {
	tests := []struct {
		in      string
		id      string
		want    domain.Dlc
		wantErr bool
	}{
		{in: "1001:steam", id: "1001", want: domain.Dlc{Name: "1001", Type: domain.DlcSteam}},
		{in: "1001:steam_hidden:Hidden Pack", id: "1001", want: domain.Dlc{Name: "Hidden Pack", Type: domain.DlcSteamHidden}},
		{in: "abc:epic_catalog_item:Skin: Gold", id: "abc", want: domain.Dlc{Name: "Skin: Gold", Type: domain.DlcEpicCatalogItem}},
		{in: "1001", wantErr: true},
		{in: ":steam", wantErr: true},
		{in: "1001:origin", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			id, dlc, err := parseDlcFlag(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.want, dlc)
		})
	}
}

func TestParseExeFlag(t *testing.T) {
	root := filepath.FromSlash("/games/g")

	tests := []struct {
		in   string
		want domain.ExecutableDirectory
	}{
		{"bin:64", domain.ExecutableDirectory{Path: filepath.Join(root, "bin"), Arch: domain.Arch64}},
		{"bin/x86:x86", domain.ExecutableDirectory{Path: filepath.Join(root, "bin", "x86"), Arch: domain.Arch32}},
		{"bin", domain.ExecutableDirectory{Path: filepath.Join(root, "bin"), Arch: domain.ArchUnknown}},
		{"/opt/game", domain.ExecutableDirectory{Path: filepath.Clean("/opt/game"), Arch: domain.ArchUnknown}},
	}
	for _, tt := range tests {
		got, err := parseExeFlag(root, tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := parseExeFlag(root, "bin:64bit")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func listSelections(t *testing.T, env testEnv) []selectionJSON {
	t.Helper()
	out, err := env.execute(t, "--json", "selection", "list")
	require.NoError(t, err)
	var list []selectionJSON
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	return list
}

func TestSelectionCmd_AddListRemove(t *testing.T) {
	env := newTestEnv(t)
	assert.Empty(t, listSelections(t, env))

	env.addGame(t, "--koaloader", "--proxy", "WinMM.dll")

	list := listSelections(t, env)
	require.Len(t, list, 1)
	assert.Equal(t, "steam/1000", list[0].Key)
	assert.Equal(t, "Test Game", list[0].Name)
	assert.Equal(t, env.game, list[0].Root)
	assert.True(t, list[0].Enabled)
	assert.True(t, list[0].Koaloader)
	assert.Equal(t, "winmm", list[0].Proxy)
	assert.Equal(t, 1, list[0].Dlc)
	assert.Equal(t, []string{"SmokeAPI", "Koaloader"}, list[0].Shims)

	out, err := env.execute(t, "selection", "remove", "1000")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed Test Game [steam/1000]")
	assert.Empty(t, listSelections(t, env))
}

func TestSelectionCmd_AddDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.addGame(t)

	_, err := env.execute(t, "selection", "add", "1000", "--root", env.game, "--no-scan")
	assert.ErrorIs(t, err, domain.ErrDuplicateSelection)

	_, err = env.execute(t, "selection", "add", "1000", "--root", env.game, "--no-scan", "--replace", "--name", "Renamed")
	require.NoError(t, err)

	list := listSelections(t, env)
	require.Len(t, list, 1)
	assert.Equal(t, "Renamed", list[0].Name)
	assert.Equal(t, 0, list[0].Dlc)
}

func TestSelectionCmd_AddValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.execute(t, "selection", "add", "1000", "--no-scan")
	assert.ErrorContains(t, err, "no root directory")

	_, err = env.execute(t, "selection", "add", "1000", "--root", env.game, "--platform", "gog")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = env.execute(t, "selection", "add", "1000", "--root", env.game, "--proxy", "kernel32")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = env.execute(t, "selection", "add", "1000", "--root", env.game, "--dlc", "1001")
	assert.ErrorContains(t, err, "invalid --dlc")
}

func TestSelectionCmd_EnableDisable(t *testing.T) {
	env := newTestEnv(t)
	env.addGame(t)

	out, err := env.execute(t, "selection", "disable", "1000")
	require.NoError(t, err)
	assert.Contains(t, out, "Disabled Test Game")
	assert.False(t, listSelections(t, env)[0].Enabled)

	_, err = env.execute(t, "selection", "enable", "steam/1000")
	assert.ErrorIs(t, err, domain.ErrSelectionNotFound)

	_, err = env.execute(t, "selection", "enable", "1000")
	require.NoError(t, err)
	assert.True(t, listSelections(t, env)[0].Enabled)
}

func TestSelectionCmd_RemoveUnknown(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.execute(t, "selection", "remove", "404")
	assert.ErrorIs(t, err, domain.ErrSelectionNotFound)

	_, err = env.execute(t, "selection", "remove", "404", "--platform", "epic")
	assert.ErrorIs(t, err, domain.ErrSelectionNotFound)
}
