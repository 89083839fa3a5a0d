package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "kraken", cfg.DataSource.Provider)
	assert.Equal(t, []Watch{{Symbol: "XXBTZUSD", Interval: 15}}, cfg.Watch)
	assert.Equal(t, "fixed", cfg.Projection.Policy)
	assert.Equal(t, 6, cfg.Projection.PatternLength)
	assert.Equal(t, 10, cfg.Projection.Horizon)
	assert.Equal(t, 3, cfg.Projection.Lines)
	assert.Equal(t, 5, cfg.History.KeepBatches)
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
data_source:
  provider: yahoo
watch:
  - symbol: BTC-USD
    interval: 60
  - symbol: ETH-USD
projection:
  policy: variable
  horizon: 20
telegram:
  bot_token: abc
  chat_id: "42"
`)
	t.Setenv("PROJECTION_HORIZON", "12")
	t.Setenv("SERVER_ADDR", ":9999")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "yahoo", cfg.DataSource.Provider)
	assert.Equal(t, []Watch{{Symbol: "BTC-USD", Interval: 60}, {Symbol: "ETH-USD", Interval: 15}}, cfg.Watch)
	assert.Equal(t, "variable", cfg.Projection.Policy)
	assert.Equal(t, 12, cfg.Projection.Horizon)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.True(t, cfg.TelegramEnabled())
}

func TestLoad_MaxRetries(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"unset defaults to 3", "data_source:\n  provider: kraken\n", 3},
		{"explicit zero disables retries", "data_source:\n  max_retries: 0\n", 0},
		{"explicit value kept", "data_source:\n  max_retries: 7\n", 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.body))
			require.NoError(t, err)
			require.NoError(t, cfg.Validate())
			require.NotNil(t, cfg.DataSource.MaxRetries)
			assert.Equal(t, tt.want, *cfg.DataSource.MaxRetries)
		})
	}

	cfg, err := Load(writeConfig(t, "data_source:\n  max_retries: 11\n"))
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
}

func TestValidate_Rejects(t *testing.T) {
	tests := map[string]string{
		"bad provider": "data_source:\n  provider: bloomberg\n",
		"bad interval": "watch:\n  - symbol: X\n    interval: 7\n",
		"bad policy":   "projection:\n  policy: fuzzy\n",
		"min > max":    "projection:\n  max_length: 5\n  min_length: 6\n",
		"chat missing": "telegram:\n  bot_token: abc\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, body))
			require.NoError(t, err)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "watch: [\n"))
	assert.Error(t, err)
}
