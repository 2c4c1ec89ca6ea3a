package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"counter-desk/library"
	"counter-desk/market"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "desk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, library.DefaultPolicy(), cfg.Library)
	assert.Equal(t, market.DefaultPolicy(), cfg.Market)
	assert.True(t, cfg.Seed)
	assert.Equal(t, filepath.Join("data", "market.db"), cfg.Store.MarketPath())
}

func TestLoadFileKeepsUnsetDefaults(t *testing.T) {
	path := writeFile(t, `
store:
  backend: sqlite
  data_dir: /var/lib/desk
library:
  grace_days: 10
market:
  top_customers: 3
seed: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "/var/lib/desk/library.db", cfg.Store.LibraryPath())
	assert.Equal(t, 10, cfg.Library.GraceDays)
	assert.Equal(t, 3, cfg.Library.MaxLoans)
	assert.Equal(t, 3, cfg.Market.TopCustomers)
	assert.InDelta(t, 1000.0, cfg.Market.InitialCredit, 1e-9)
	assert.False(t, cfg.Seed)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "store:\n  backend: memory\n")
	t.Setenv("DESK_STORE", "sqlite")
	t.Setenv("DESK_DATA_DIR", "/tmp/desk")
	t.Setenv("DESK_LOG_LEVEL", "debug")
	t.Setenv("DESK_SEED", "0")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "/tmp/desk", cfg.Store.DataDir)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.False(t, cfg.Seed)
}

func TestOverridesApplyAfterEnv(t *testing.T) {
	t.Setenv("DESK_STORE", "bogus")
	_, err := Load("")
	require.Error(t, err)

	cfg, err := Load("", func(c *Config) { c.Store.Backend = BackendSQLite })
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"unknown backend":  "store:\n  backend: redis\n",
		"fine cap":         "library:\n  fine_cap_percent: 120\n",
		"zero loans":       "library:\n  max_loans: 0\n",
		"points threshold": "market:\n  points_threshold: 0\n",
		"log level":        "logger:\n  level: loud\n",
		"sqlite needs dir": "store:\n  backend: sqlite\n  data_dir: \"\"\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsBadSeedEnv(t *testing.T) {
	t.Setenv("DESK_SEED", "maybe")
	_, err := Load("")
	assert.ErrorContains(t, err, "DESK_SEED")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
