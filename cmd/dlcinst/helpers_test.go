package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// testEnv holds the directories a command test runs against
type testEnv struct {
	config string
	data   string
	game   string // Game root with an empty bin directory
	bin    string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	game := t.TempDir()
	bin := filepath.Join(game, "bin")
	require.NoError(t, os.MkdirAll(bin, 0755))
	return testEnv{config: t.TempDir(), data: t.TempDir(), game: game, bin: bin}
}

// resetFlags restores every flag variable to its default; cobra keeps values between Execute calls
func resetFlags() {
	configDir, dataDir, selectionsFile = "", "", ""
	verbose, noHooks, jsonOutput, noColor = false, false, false, true

	installPlain, installNoProcess, uninstallYes = false, false, false

	addPlatform, addName, addRoot, addProxy = "steam", "", "", ""
	addSteam, addKoaloader, addNoScan, addDisabled, addReplace = false, false, false, false, false
	addDlc, addExes, addDllDirs = nil, nil, nil
	removePlatform = ""

	historyLimit, historyKeep = 20, 50
	payloadDest, payloadForce = "", false
}

// execute runs the root command with the env's directories and returns its output
func (e testEnv) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(append([]string{"--config", e.config, "--data", e.data}, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

// addGame registers the env's game as steam/1000 with one Steam DLC
func (e testEnv) addGame(t *testing.T, extra ...string) {
	t.Helper()
	args := append([]string{"selection", "add", "1000",
		"--name", "Test Game",
		"--root", e.game,
		"--exe", "bin:64",
		"--dll-dir", "bin",
		"--dlc", "1001:steam:Soundtrack",
		"--no-scan",
	}, extra...)
	_, err := e.execute(t, args...)
	require.NoError(t, err)
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
