package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"dlcinst/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"prompt declined", ErrCancelled, 2},
		{"run canceled", fmt.Errorf("running: %w", domain.ErrCanceled), 2},
		{"partial failure", fmt.Errorf("%w for Game", domain.ErrPartialFailure), 1},
		{"other", errors.New("boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestInitService_UsesFlagDirectories(t *testing.T) {
	resetFlags()
	t.Cleanup(resetFlags)
	configDir = t.TempDir()
	dataDir = t.TempDir()

	svc, err := initService()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, svc.Close())
	})

	assert.Equal(t, filepath.Join(configDir, "selections.yaml"), svc.SelectionsPath())
	assert.NotNil(t, svc.DB())
}

func TestInitService_SelectionsFlag(t *testing.T) {
	resetFlags()
	t.Cleanup(resetFlags)
	configDir = t.TempDir()
	dataDir = t.TempDir()
	selectionsFile = filepath.Join(t.TempDir(), "games.yml")

	svc, err := initService()
	require.NoError(t, err)
	defer svc.Close()

	assert.Equal(t, selectionsFile, svc.SelectionsPath())
}

func TestInitService_RejectsBadSelectionsPath(t *testing.T) {
	resetFlags()
	t.Cleanup(resetFlags)
	configDir = t.TempDir()
	dataDir = t.TempDir()
	selectionsFile = filepath.Join(t.TempDir(), "games.txt")

	_, err := initService()
	assert.Error(t, err)
}

func TestColorHelpers(t *testing.T) {
	resetFlags()
	t.Cleanup(resetFlags)

	noColor = true
	assert.Equal(t, "ok", colorGreen("ok"))

	noColor = false
	t.Setenv("NO_COLOR", "1")
	assert.Equal(t, "ok", colorRed("ok"))

	t.Setenv("NO_COLOR", "")
	restore := stdoutIsTerminal
	t.Cleanup(func() { stdoutIsTerminal = restore })

	stdoutIsTerminal = func() bool { return true }
	assert.Contains(t, colorYellow("ok"), "\x1b[")
	assert.Contains(t, colorYellow("ok"), "ok")

	stdoutIsTerminal = func() bool { return false }
	assert.Equal(t, "ok", colorGreen("ok"), "piped output stays plain")
}

func TestRootCmd_Structure(t *testing.T) {
	assert.Equal(t, "dlcinst", rootCmd.Use)
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"install", "uninstall", "status", "selection", "history", "cache"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}
