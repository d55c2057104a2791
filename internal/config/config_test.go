package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lattice.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 10, cfg.IndexThreshold)
	assert.Equal(t, RepairModeAny, cfg.RepairMode)
	assert.Equal(t, 0, cfg.MaxNodes)
	assert.Equal(t, 0, cfg.MaxEdges)
	assert.Equal(t, 16, cfg.AllPathsMaxLength)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("empty path yields defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := writeConfig(t, "index_threshold: 5\nrepair_mode: strict\nlog_level: debug\n")
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.IndexThreshold)
		assert.Equal(t, RepairModeStrict, cfg.RepairMode)
		assert.Equal(t, "debug", cfg.LogLevel)
		// Untouched fields keep their defaults.
		assert.Equal(t, 16, cfg.AllPathsMaxLength)
	})

	t.Run("environment outranks the file", func(t *testing.T) {
		path := writeConfig(t, "index_threshold: 5\n")
		t.Setenv("LATTICE_INDEX_THRESHOLD", "3")
		t.Setenv("LATTICE_REPAIR_MODE", "strict")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.IndexThreshold)
		assert.Equal(t, RepairModeStrict, cfg.RepairMode)
	})

	t.Run("malformed yaml fails", func(t *testing.T) {
		path := writeConfig(t, "index_threshold: [not a number\n")
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("invalid values fail validation", func(t *testing.T) {
		tests := []struct {
			name    string
			content string
		}{
			{"zero threshold", "index_threshold: 0\n"},
			{"unknown repair mode", "repair_mode: maybe\n"},
			{"negative max nodes", "max_nodes: -1\n"},
			{"unknown log level", "log_level: loud\n"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := Load(writeConfig(t, tt.content))
				assert.Error(t, err)
			})
		}
	})

	t.Run("non-numeric env value is ignored", func(t *testing.T) {
		t.Setenv("LATTICE_INDEX_THRESHOLD", "many")
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 10, cfg.IndexThreshold)
	})
}
