package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"faction-intel/internal/constants"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv isolates a test from the developer's environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TORN_API_KEY", "FFSCOUTER_API_KEY", "FACTION_ID",
		"REFRESH_INTERVAL_SECONDS", "METADATA_INTERVAL_SECONDS",
		"STORE_DRIVER", "DB_PATH", "INTEL_CONFIG_FILE", "FF_DEFAULTS_PATH",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Chdir(t.TempDir())
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TORN_API_KEY", "abc")
	t.Setenv("FACTION_ID", "5")
	t.Setenv("REFRESH_INTERVAL_SECONDS", "45")
	t.Setenv("STORE_DRIVER", DriverMemory)

	cfg, err := Load(zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.TornAPIKey)
	assert.Equal(t, 5, cfg.FactionID)
	assert.Equal(t, 45*time.Second, cfg.RefreshInterval())
	assert.Equal(t, constants.DefaultMetadataInterval, cfg.MetadataInterval())
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, "https://api.torn.com/v2", cfg.TornBaseURL)
}

func TestLoadRequiresKey(t *testing.T) {
	clearEnv(t)
	_, err := Load(zerolog.Nop())
	assert.ErrorContains(t, err, "TORN_API_KEY")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.TornAPIKey = "abc"
	require.NoError(t, cfg.Validate())

	cfg.RefreshSeconds = 0
	cfg.StoreDriver = "etcd"
	cfg.FactionID = -1
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "REFRESH_INTERVAL_SECONDS")
	assert.ErrorContains(t, err, "STORE_DRIVER")
	assert.ErrorContains(t, err, "FACTION_ID")
}

func TestIntervalFloor(t *testing.T) {
	cfg := Default()
	cfg.RefreshSeconds = 0
	assert.Equal(t, constants.MinRefreshInterval, cfg.RefreshInterval())
	cfg.RefreshSeconds = 30
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval())
}

func TestYAMLFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "intel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
torn_api_key: from-file
faction_id: 7
refresh_interval_seconds: 15
store_driver: leveldb
`), 0o644))
	t.Setenv("INTEL_CONFIG_FILE", path)
	t.Setenv("REFRESH_INTERVAL_SECONDS", "20")

	cfg, err := Load(zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.TornAPIKey)
	assert.Equal(t, 7, cfg.FactionID)
	assert.Equal(t, 20*time.Second, cfg.RefreshInterval(), "env wins over the file")
	assert.Equal(t, DriverLevelDB, cfg.StoreDriver)
}

func TestFactionFromDefaultsFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "ffscouter_defaults.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"faction_id": 42, "data": {}}`), 0o644))
	t.Setenv("TORN_API_KEY", "abc")
	t.Setenv("FF_DEFAULTS_PATH", path)

	cfg, err := Load(zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.FactionID)
}

func TestMissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("INTEL_CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load(zerolog.Nop())
	assert.Error(t, err)
}
