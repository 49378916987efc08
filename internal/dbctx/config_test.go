package dbctx

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvusdb/corvusdb/internal/dberr"
	"github.com/corvusdb/corvusdb/internal/prng"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, "buffer_pool_frames: 128\nreplacement_strategy: lfu\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 128, cfg.BufferPoolFrames)
	require.Equal(t, "lfu", cfg.ReplacementStrategy)
	// Untouched keys keep their built-in default.
	require.Equal(t, 32, cfg.MaxClients)
}

func TestLoadConfigRejectsUnknownKey(t *testing.T) {
	path := writeConfigFile(t, "buffer_pool_frames: 128\nnonexistent_knob: 1\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
	require.True(t, errors.Is(err, dberr.ErrConfig))
}

func TestStrategyRejectsUnknownName(t *testing.T) {
	cfg := defaults()
	cfg.ReplacementStrategy = "not-a-real-strategy"
	_, err := cfg.Strategy(prng.New(1))
	require.Error(t, err)
	require.True(t, errors.Is(err, dberr.ErrConfig))
}

func TestStrategyBuildsEachKnownKind(t *testing.T) {
	src := prng.New(1)
	for _, name := range []string{"", "lru", "lfu", "fifo", "random", "lruk"} {
		cfg := defaults()
		cfg.ReplacementStrategy = name
		strat, err := cfg.Strategy(src)
		require.NoError(t, err, name)
		require.NotNil(t, strat, name)
	}
}
