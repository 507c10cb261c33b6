package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))
	return path
}

func TestLoadRespectsExplicitFalseToggle(t *testing.T) {
	path := writeConfig(t, `
analytics:
  exclude_bots: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// An explicit false in the file must survive loading; the other
	// toggles keep their defaults.
	assert.False(t, cfg.Analytics.ExcludeBots)
	assert.True(t, cfg.Analytics.ExcludeForks)
	assert.True(t, cfg.Analytics.ExcludeArchived)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, ":8080", cfg.HTTPServer.Address)
	assert.Equal(t, 180, cfg.Analytics.LookbackDays)
	assert.True(t, cfg.Analytics.ExcludeForks)
	assert.True(t, cfg.Analytics.ExcludeArchived)
	assert.True(t, cfg.Analytics.ExcludeBots)
	assert.Equal(t, 50, cfg.Analytics.SmallMaxAdditions)
	assert.Equal(t, 300, cfg.Analytics.LargeMinAdditions)
	assert.Equal(t, "data/prs.json", cfg.Data.PRsPath)
}

func TestLoadEnvOverridesToggle(t *testing.T) {
	t.Setenv("EXCLUDE_FORKS", "false")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.False(t, cfg.Analytics.ExcludeForks)
	assert.True(t, cfg.Analytics.ExcludeBots)
}

func TestEngineConfigMapping(t *testing.T) {
	path := writeConfig(t, `
analytics:
  lookback_days: 90
  exclude_archived: false
  small_max_additions: 25
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	engCfg := cfg.Engine()
	assert.Equal(t, 90, engCfg.LookbackDays)
	assert.False(t, engCfg.ExcludeArchived)
	assert.True(t, engCfg.ExcludeForks)
	assert.Equal(t, 25, engCfg.SmallMaxAdditions)
	assert.Equal(t, 300, engCfg.LargeMinAdditions)
}
