package lockstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)
	entries, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoadMalformedFileIsConfigurationError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, lockFileName), []byte("{not json"), 0o644))
	s := New(dir, nil)
	_, err := s.Load()
	assert.Error(t, err)
}

func TestFlushWritesAtomicallyAndRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)

	entries := map[string]Entry{
		"prod-a-x": {Env: "prod", Org: "a", App: "x", Version: "1", Status: StatusSuccess},
	}
	_, err := s.Flush(nil, entries)
	require.NoError(t, err)

	// no .tmp files left behind
	matches, _ := filepath.Glob(filepath.Join(dir, ".apps.lock.*.tmp"))
	assert.Empty(t, matches)

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, entries, loaded)
}

func TestReconciliationScenario(t *testing.T) {
	// Concrete scenario 1 from spec.md §8.
	previous := map[string]Entry{
		"prod-a-x": {Status: StatusSuccess, Version: "1"},
		"prod-a-y": {Status: StatusFailed, Version: "1"},
	}
	next := map[string]Entry{
		"prod-a-x": {Status: StatusSuccess, Version: "1"},
		"prod-a-z": {Status: StatusSuccess, Version: "2"},
	}
	removed := Reconcile(previous, next)
	assert.ElementsMatch(t, []string{"prod-a-y"}, removed)
}

func TestFlushReturnsRemovedKeys(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)

	previous := map[string]Entry{
		"prod-a-x": {Status: StatusSuccess},
		"prod-a-y": {Status: StatusFailed},
	}
	next := map[string]Entry{
		"prod-a-x": {Status: StatusSuccess},
	}
	removed, err := s.Flush(previous, next)
	require.NoError(t, err)
	assert.Equal(t, []string{"prod-a-y"}, removed)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "prod-altinn-app", Key("prod", "altinn", "app"))
}

func TestArchivePath(t *testing.T) {
	s := New("/tmp/cache", nil)
	assert.Equal(t, "/tmp/cache/prod-a-x.zip", s.ArchivePath("prod-a-x"))
}
