package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/channel-memory/internal/model"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 600, cfg.Summary.PeriodSize)
	assert.Equal(t, 400, cfg.Search.RowsPerCluster)
	assert.Equal(t, 20, cfg.Search.PadRows)
	assert.Equal(t, 5, cfg.Search.TokenWindow)
	assert.Equal(t, 800, cfg.Search.MaxOutputLines)
	assert.Equal(t, 1, cfg.Search.MinCoverage)
	assert.Equal(t, 45, cfg.Search.EventGapMinutes)
	assert.Equal(t, 0, cfg.Search.MaxTimelinePeriods)
	assert.Equal(t, 2, cfg.Search.PartialPromotion)
	assert.Equal(t, 48, cfg.Search.MaxGroups)
	assert.True(t, cfg.Search.CollapseCode)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
db_path: /tmp/cm.db
summary:
  period_size: 3
llm:
  provider: ollama
  timeout: 15s
search:
  pad_rows: 2
  collapse_code: false
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/cm.db", cfg.DBPath)
	assert.Equal(t, 3, cfg.Summary.PeriodSize)
	assert.True(t, cfg.Summary.Enabled)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 2, cfg.Search.PadRows)
	assert.False(t, cfg.Search.CollapseCode)
	assert.Equal(t, 400, cfg.Search.RowsPerCluster)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search: [1, 2"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvDB, "/data/x.db")
	t.Setenv(EnvPeriodSize, "50")
	t.Setenv(EnvLLMProvider, "openai")
	t.Setenv(EnvOpenAIKey, "sk-env")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "/data/x.db", cfg.DBPath)
	assert.Equal(t, 50, cfg.Summary.PeriodSize)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)

	cfg.LLM.APIKey = "sk-file"
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "sk-file", cfg.LLM.APIKey)

	t.Setenv(EnvPeriodSize, "many")
	var cfgErr *model.ConfigError
	require.True(t, errors.As(cfg.ApplyEnv(), &cfgErr))
	assert.Equal(t, "summary.period_size", cfgErr.Field)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*Config)
		field string
	}{
		{"empty db path", func(c *Config) { c.DBPath = "" }, "db_path"},
		{"zero period", func(c *Config) { c.Summary.PeriodSize = 0 }, "summary.period_size"},
		{"zero cluster", func(c *Config) { c.Search.RowsPerCluster = 0 }, "search.rows_per_cluster"},
		{"negative pad", func(c *Config) { c.Search.PadRows = -1 }, "search.pad_rows"},
		{"bad provider", func(c *Config) { c.LLM.Provider = "x" }, "llm.provider"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mod(cfg)
			var cfgErr *model.ConfigError
			require.True(t, errors.As(cfg.Validate(), &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}
