package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryCmd_EmptyAndPrune(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.execute(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")

	env.addGame(t)
	for i := 0; i < 3; i++ {
		_, err = env.execute(t, "install", "--plain", "--skip-process-check")
		require.NoError(t, err)
	}

	out, err = env.execute(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "install")
	assert.Contains(t, out, "succeeded")

	out, err = env.execute(t, "history", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "steam/1000")
	assert.Contains(t, out, "Test Game")

	out, err = env.execute(t, "history", "prune", "--keep", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 2 runs.")
}

func TestHistoryCmd_InvalidRunID(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.execute(t, "history", "latest")
	assert.ErrorContains(t, err, "invalid run id")
}

func TestHistoryCmd_Disabled(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.config, "config.yaml"), []byte("history: false\n"), 0644))

	_, err := env.execute(t, "history")
	assert.ErrorIs(t, err, errHistoryDisabled)
}

func TestCacheCmd_Clear(t *testing.T) {
	env := newTestEnv(t)
	env.addGame(t)
	_, err := env.execute(t, "install", "--plain", "--skip-process-check")
	require.NoError(t, err)

	out, err := env.execute(t, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Freed")

	_, err = os.Stat(filepath.Join(env.data, "cache"))
	assert.True(t, os.IsNotExist(err))
}
