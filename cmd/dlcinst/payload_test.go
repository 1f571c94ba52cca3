package main

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"dlcinst/internal/storage/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLibrary(t *testing.T, path string, machine uint16) []byte {
	t.Helper()
	var buf bytes.Buffer
	dos := make([]byte, 0x40)
	copy(dos, "MZ")
	binary.LittleEndian.PutUint32(dos[0x3c:], 0x40)
	buf.Write(dos)
	buf.WriteString("PE\x00\x00")
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, pe.FileHeader{Machine: machine}))
	buf.Write(make([]byte, 32))
	buf.WriteString("release build")

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return buf.Bytes()
}

func TestPayloadFetch_FromDirectory(t *testing.T) {
	env := newTestEnv(t)
	release := t.TempDir()
	lib64 := writeLibrary(t, filepath.Join(release, "steam_api64.dll"), pe.IMAGE_FILE_MACHINE_AMD64)

	out, err := env.execute(t, "payload", "fetch", "smokeapi", release)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported SmokeAPI 64-bit from steam_api64.dll")
	assert.Contains(t, out, "Only the 64-bit library was found")

	dest := filepath.Join(env.data, "payloads")
	cfg, err := config.Load(env.config)
	require.NoError(t, err)
	assert.Equal(t, dest, cfg.PayloadDir)

	env.addGame(t)
	_, err = env.execute(t, "install", "--plain", "--skip-process-check")
	require.NoError(t, err)

	installed, err := os.ReadFile(filepath.Join(env.bin, "steam_api64.dll"))
	require.NoError(t, err)
	assert.Equal(t, lib64, installed)

	_, err = env.execute(t, "payload", "fetch", "smokeapi", release)
	assert.ErrorContains(t, err, "uninstall it first")

	_, err = env.execute(t, "payload", "fetch", "smokeapi", release, "--force")
	assert.NoError(t, err)
}

func TestPayloadFetch_RefusesWhileDeployedAsModule(t *testing.T) {
	env := newTestEnv(t)
	release := t.TempDir()
	writeLibrary(t, filepath.Join(release, "steam_api64.dll"), pe.IMAGE_FILE_MACHINE_AMD64)

	_, err := env.execute(t, "payload", "fetch", "smokeapi", release)
	require.NoError(t, err)

	env.addGame(t, "--koaloader")
	_, err = env.execute(t, "install", "--plain", "--skip-process-check")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Koaloader.json", "SmokeAPI64.dll", "version.dll"}, dirNames(t, env.bin))

	_, err = env.execute(t, "payload", "fetch", "smokeapi", release)
	assert.ErrorContains(t, err, "uninstall it first")

	_, err = env.execute(t, "uninstall", "--plain", "--skip-process-check", "--yes")
	require.NoError(t, err)
	assert.Empty(t, dirNames(t, env.bin))

	_, err = env.execute(t, "payload", "fetch", "smokeapi", release)
	assert.NoError(t, err)
}

func TestPayloadFetch_Errors(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.execute(t, "payload", "fetch", "creamapi", t.TempDir())
	assert.ErrorContains(t, err, "unknown component")

	_, err = env.execute(t, "payload", "fetch", "smokeapi", filepath.Join(t.TempDir(), "missing.zip"))
	assert.Error(t, err)

	_, err = env.execute(t, "payload", "fetch", "smokeapi", "https://example.org/SmokeAPI.tar.gz")
	assert.ErrorContains(t, err, "unsupported archive format")
}
