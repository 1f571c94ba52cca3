package payload_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dlcinst/internal/domain"
	"dlcinst/internal/payload"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedded_HasEveryKindAndArch(t *testing.T) {
	set, err := payload.Embedded()
	require.NoError(t, err)

	for _, kind := range append([]domain.ComponentKind{domain.KindKoaloader}, domain.ShimKinds...) {
		for _, arch := range []domain.Arch{domain.Arch32, domain.Arch64} {
			data, err := set.Payload(kind, arch)
			require.NoError(t, err, "%s %s", kind, arch)
			assert.NotEmpty(t, data)
		}
	}
}

func TestEmbedded_UnknownArchFallsBackTo64(t *testing.T) {
	set, err := payload.Embedded()
	require.NoError(t, err)

	unknown, err := set.Payload(domain.KindSmokeAPI, domain.ArchUnknown)
	require.NoError(t, err)
	x64, err := set.Payload(domain.KindSmokeAPI, domain.Arch64)
	require.NoError(t, err)
	assert.Equal(t, x64, unknown)
}

func TestIsOwnFile(t *testing.T) {
	set, err := payload.Embedded()
	require.NoError(t, err)
	dir := t.TempDir()

	data, err := set.Payload(domain.KindSmokeAPI, domain.Arch32)
	require.NoError(t, err)
	own := filepath.Join(dir, "steam_api.dll")
	require.NoError(t, os.WriteFile(own, data, 0644))

	foreign := filepath.Join(dir, "steam_api64.dll")
	require.NoError(t, os.WriteFile(foreign, []byte("the real steam api"), 0644))

	assert.True(t, set.IsOwnFile(own, domain.KindSmokeAPI))
	assert.False(t, set.IsOwnFile(own, domain.KindScreamAPI), "fingerprints are per kind")
	assert.False(t, set.IsOwnFile(foreign, domain.KindSmokeAPI))
	assert.False(t, set.IsOwnFile(filepath.Join(dir, "missing.dll"), domain.KindSmokeAPI))
	assert.False(t, set.IsOwnFile(dir, domain.KindSmokeAPI))
}

func TestFromDir_OverridesAndFallsBack(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "smokeapi"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "smokeapi", "64.dll"), []byte("real smokeapi"), 0644))

	set, err := payload.FromDir(dir)
	require.NoError(t, err)

	data, err := set.Payload(domain.KindSmokeAPI, domain.Arch64)
	require.NoError(t, err)
	assert.Equal(t, []byte("real smokeapi"), data)

	embedded, err := payload.Embedded()
	require.NoError(t, err)
	want, err := embedded.Payload(domain.KindKoaloader, domain.Arch32)
	require.NoError(t, err)
	got, err := set.Payload(domain.KindKoaloader, domain.Arch32)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFromDir_StillRecognizesEmbeddedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "smokeapi"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "smokeapi", "64.dll"), []byte("real smokeapi"), 0644))

	embedded, err := payload.Embedded()
	require.NoError(t, err)
	placeholder, err := embedded.Payload(domain.KindSmokeAPI, domain.Arch64)
	require.NoError(t, err)
	installed := filepath.Join(t.TempDir(), "steam_api64.dll")
	require.NoError(t, os.WriteFile(installed, placeholder, 0644))

	set, err := payload.FromDir(dir)
	require.NoError(t, err)
	assert.True(t, set.IsOwnFile(installed, domain.KindSmokeAPI))
}

func TestPayload_MissingReturnsErrPayloadNotFound(t *testing.T) {
	set, err := payload.FromDir(t.TempDir())
	require.NoError(t, err)

	_, err = set.Payload(domain.ComponentKind(99), domain.Arch64)
	assert.True(t, errors.Is(err, domain.ErrPayloadNotFound))
}

func TestSameContent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	c := filepath.Join(dir, "c")
	require.NoError(t, os.WriteFile(a, []byte("one"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("one"), 0644))
	require.NoError(t, os.WriteFile(c, []byte("two"), 0644))

	same, err := payload.SameContent(a, b)
	require.NoError(t, err)
	assert.True(t, same)

	same, err = payload.SameContent(a, c)
	require.NoError(t, err)
	assert.False(t, same)
}
