// Package config loads channel-memory settings from a YAML file, the
// environment and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/channel-memory/internal/model"
)

// Environment variables read by ApplyEnv.
const (
	EnvDB          = "CHANNEL_MEMORY_DB"
	EnvConfig      = "CHANNEL_MEMORY_CONFIG"
	EnvLogLevel    = "CHANNEL_MEMORY_LOG_LEVEL"
	EnvPeriodSize  = "CHANNEL_MEMORY_PERIOD_SIZE"
	EnvLLMProvider = "CHANNEL_MEMORY_LLM_PROVIDER"
	EnvLLMModel    = "CHANNEL_MEMORY_LLM_MODEL"
	EnvLLMURL      = "CHANNEL_MEMORY_LLM_URL"
	EnvOpenAIKey   = "OPENAI_API_KEY"
)

// Config is the full set of settings.
type Config struct {
	DBPath   string  `yaml:"db_path"`
	LogLevel string  `yaml:"log_level"`
	Summary  Summary `yaml:"summary"`
	LLM      LLM     `yaml:"llm"`
	Search   Search  `yaml:"search"`
}

// Summary configures rolling period summaries.
type Summary struct {
	Enabled    bool `yaml:"enabled"`
	PeriodSize int  `yaml:"period_size"`
}

// LLM configures the summary provider. An empty provider disables it.
type LLM struct {
	Provider          string        `yaml:"provider"`
	Model             string        `yaml:"model"`
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"api_key"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout"`
}

// Search configures keyword cluster search.
type Search struct {
	RowsPerCluster     int  `yaml:"rows_per_cluster"`
	PadRows            int  `yaml:"pad_rows"`
	TokenWindow        int  `yaml:"token_window"`
	MaxOutputLines     int  `yaml:"max_output_lines"`
	MinCoverage        int  `yaml:"min_coverage"`
	EventGapMinutes    int  `yaml:"event_gap_minutes"`
	MaxTimelinePeriods int  `yaml:"max_timeline_periods"` // 0 means unbounded
	PartialPromotion   int  `yaml:"partial_promotion"`
	CollapseCode       bool `yaml:"collapse_code"`
	MaxGroups          int  `yaml:"max_groups"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		DBPath:   defaultDBPath(),
		LogLevel: "info",
		Summary: Summary{
			Enabled:    true,
			PeriodSize: 600,
		},
		LLM: LLM{
			RequestsPerMinute: 60,
			Timeout:           60 * time.Second,
		},
		Search: Search{
			RowsPerCluster:   400,
			PadRows:          20,
			TokenWindow:      5,
			MaxOutputLines:   800,
			MinCoverage:      1,
			EventGapMinutes:  45,
			PartialPromotion: 2,
			CollapseCode:     true,
			MaxGroups:        48,
		},
	}
}

func defaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".channel-memory", "memory.db")
}

// DefaultPath is the config file read when no path is given.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".channel-memory", "config.yaml")
}

// Load reads the YAML file at path over the defaults. An empty path reads
// DefaultPath when it exists.
func Load(path string) (*Config, error) {
	cfg := Default()
	optional := path == ""
	if optional {
		path = DefaultPath()
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvDB); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvPeriodSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &model.ConfigError{Field: "summary.period_size", Err: fmt.Errorf("%s: %w", EnvPeriodSize, err)}
		}
		c.Summary.PeriodSize = n
	}
	if v := os.Getenv(EnvLLMProvider); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv(EnvLLMModel); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv(EnvLLMURL); v != "" {
		c.LLM.BaseURL = v
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv(EnvOpenAIKey)
	}
	return nil
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return &model.ConfigError{Field: "db_path"}
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return &model.ConfigError{Field: "log_level", Err: err}
	}
	switch c.LLM.Provider {
	case "", "openai", "ollama":
	default:
		return &model.ConfigError{Field: "llm.provider", Err: fmt.Errorf("unknown provider %q", c.LLM.Provider)}
	}

	positive := []struct {
		field string
		value int
	}{
		{"summary.period_size", c.Summary.PeriodSize},
		{"search.rows_per_cluster", c.Search.RowsPerCluster},
		{"search.token_window", c.Search.TokenWindow},
		{"search.max_output_lines", c.Search.MaxOutputLines},
		{"search.partial_promotion", c.Search.PartialPromotion},
		{"search.max_groups", c.Search.MaxGroups},
	}
	for _, p := range positive {
		if p.value < 1 {
			return &model.ConfigError{Field: p.field, Err: fmt.Errorf("must be at least 1, got %d", p.value)}
		}
	}

	nonNegative := []struct {
		field string
		value int
	}{
		{"search.pad_rows", c.Search.PadRows},
		{"search.min_coverage", c.Search.MinCoverage},
		{"search.event_gap_minutes", c.Search.EventGapMinutes},
		{"search.max_timeline_periods", c.Search.MaxTimelinePeriods},
		{"llm.requests_per_minute", c.LLM.RequestsPerMinute},
	}
	for _, p := range nonNegative {
		if p.value < 0 {
			return &model.ConfigError{Field: p.field, Err: fmt.Errorf("must not be negative, got %d", p.value)}
		}
	}
	return nil
}
