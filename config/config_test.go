package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKeyFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keys.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadKeysReturnsConfiguredTokens(t *testing.T) {
	path := writeKeyFile(t, `{"prod": "p-token", "dev": "d-token"}`)
	tokens, err := LoadKeys(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"prod": "p-token", "dev": "d-token"}, tokens)
}

func TestLoadKeysAcceptsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.yaml")
	require.NoError(t, os.WriteFile(path, []byte("prod: p-token\nstaging: s-token\n"), 0o644))
	tokens, err := LoadKeys(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"prod": "p-token", "staging": "s-token"}, tokens)
}

func TestLoadKeysFailsWhenAllAbsent(t *testing.T) {
	path := writeKeyFile(t, `{}`)
	_, err := LoadKeys(path)
	assert.Error(t, err)
}

func TestLoadKeysFailsWhenFileMissing(t *testing.T) {
	_, err := LoadKeys(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestRunConfigValidate(t *testing.T) {
	valid := RunConfig{CacheDir: "./data", KeyPath: "./keys.json", PerHostConcurrency: 4}
	assert.NoError(t, valid.Validate())

	invalid := RunConfig{}
	assert.Error(t, invalid.Validate())
}
