package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Handler.ServerAddr)
	assert.Equal(t, "info", cfg.Logger.LogLevel)
	assert.Equal(t, "sheets", cfg.Ledger.Source)
	assert.Equal(t, "Orders!A:D", cfg.Ledger.Range)
	assert.True(t, cfg.Ledger.FallbackAmount.IsZero())
	assert.Equal(t, 10*time.Second, cfg.Notify.Timeout)
	assert.Equal(t, 720*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 3, cfg.Tracker.Attempts)
	assert.Equal(t, time.Second, cfg.Tracker.Delay)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("LEDGER_SOURCE", "csv")
	t.Setenv("LEDGER_FALLBACK_AMOUNT", "100.50")
	t.Setenv("AUTH_TOKEN_TTL", "1h")

	v := viper.New()
	v.AutomaticEnv()
	cfg, err := load(v)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Handler.ServerAddr)
	assert.Equal(t, "csv", cfg.Ledger.Source)
	assert.Equal(t, "100.5", cfg.Ledger.FallbackAmount.String())
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
}

func TestInvalidFallbackAmount(t *testing.T) {
	t.Setenv("LEDGER_FALLBACK_AMOUNT", "lots")

	v := viper.New()
	v.AutomaticEnv()
	_, err := load(v)
	require.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "affiliated.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ledger_source: csv\nledger_csv_path: /data/orders.csv\nlog_level: debug\n"), 0o600))
	t.Setenv("CONFIG", path)

	cfg, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, "csv", cfg.Ledger.Source)
	assert.Equal(t, "/data/orders.csv", cfg.Ledger.CSVPath)
	assert.Equal(t, "debug", cfg.Logger.LogLevel)

	t.Setenv("CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = GetConfig()
	require.Error(t, err)
}
