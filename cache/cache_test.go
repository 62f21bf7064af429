package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestKeyIsPureFunction(t *testing.T) {
	manifest := []byte("from setuptools import setup\nsetup(name='framework')\n")

	k1 := Key("ubuntu-latest", manifest)
	k2 := Key("ubuntu-latest", manifest)
	assert.Equal(t, k1, k2, "identical inputs must produce identical keys")

	// A different OS or a different manifest must change the key
	assert.NotEqual(t, k1, Key("macos-latest", manifest))
	assert.NotEqual(t, k1, Key("ubuntu-latest", append(manifest, '\n')))
}

func TestKeyFormat(t *testing.T) {
	manifest := []byte("setup contents")
	sum := sha256.Sum256(manifest)

	want := fmt.Sprintf("ubuntu-latest-pip-%s", hex.EncodeToString(sum[:]))
	assert.Equal(t, want, Key("ubuntu-latest", manifest))
}

func TestKeyFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	manifestPath := filepath.Join(tmpDir, "setup.py")
	require.NoError(t, os.WriteFile(manifestPath, []byte("setup contents"), 0644))

	key, err := KeyFromFile("ubuntu-latest", manifestPath)
	require.NoError(t, err)
	assert.Equal(t, Key("ubuntu-latest", []byte("setup contents")), key)

	_, err = KeyFromFile("ubuntu-latest", filepath.Join(tmpDir, "missing.py"))
	require.Error(t, err)
}

func TestResolveMissThenHit(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	store := NewStore(t.TempDir(), log)
	key := Key("ubuntu-latest", []byte("manifest"))

	// First resolution is a miss and creates the entry directory
	res, err := store.Resolve(key, false)
	require.NoError(t, err)
	assert.False(t, res.Hit)
	assert.Equal(t, OutcomeMiss, res.Outcome)
	assert.DirExists(t, res.Dir)

	// An empty entry from an aborted run still counts as a miss
	res, err = store.Resolve(key, false)
	require.NoError(t, err)
	assert.False(t, res.Hit)

	// Once pip has populated the entry, the same key resolves to a hit
	require.NoError(t, os.WriteFile(filepath.Join(res.Dir, "wheel.whl"), []byte("pkg"), 0644))
	res, err = store.Resolve(key, false)
	require.NoError(t, err)
	assert.True(t, res.Hit)
	assert.Equal(t, OutcomeHit, res.Outcome)
}

func TestResolveBypassLeavesEntryUntouched(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	baseDir := t.TempDir()
	store := NewStore(baseDir, log)
	key := Key("ubuntu-latest", []byte("manifest"))

	populatedDir := filepath.Join(baseDir, key)
	require.NoError(t, os.MkdirAll(populatedDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(populatedDir, "wheel.whl"), []byte("pkg"), 0644))

	res, err := store.Resolve(key, true)
	require.NoError(t, err)
	defer os.RemoveAll(res.Dir)

	assert.False(t, res.Hit)
	assert.Equal(t, OutcomeBypass, res.Outcome)
	assert.NotEqual(t, populatedDir, res.Dir)
	assert.FileExists(t, filepath.Join(populatedDir, "wheel.whl"))
}

func TestResolveEphemeralStore(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	store := NewStore("", log)

	res, err := store.Resolve(Key("ubuntu-latest", []byte("manifest")), false)
	require.NoError(t, err)
	defer os.RemoveAll(res.Dir)

	assert.False(t, res.Hit)
	assert.DirExists(t, res.Dir)
}
