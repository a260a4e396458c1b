package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/car"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "car.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())

	h, err := cfg.HashAlgorithm()
	require.NoError(t, err)
	assert.Equal(t, car.HashSHA256, h)
	assert.True(t, cfg.Verify)

	l, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, l)
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
hash: blake3
verify: false
log_level: debug
catalog_dir: /var/lib/car
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "blake3", cfg.Hash)
	assert.False(t, cfg.Verify)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/var/lib/car", cfg.CatalogDir)
	assert.Equal(t, 4, cfg.Concurrency, "unset keys keep defaults")
}

func TestLoadEmptyFile(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"unknown key":  "colour: blue\n",
		"bad hash":     "hash: md5\n",
		"bad level":    "log_level: loud\n",
		"negative":     "concurrency: -1\n",
		"invalid yaml": "hash: [unterminated\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
