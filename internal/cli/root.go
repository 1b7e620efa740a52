// Package cli implements the channel-memory CLI commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/channel-memory/internal/config"
	"github.com/rcliao/channel-memory/internal/llm"
	"github.com/rcliao/channel-memory/internal/logging"
	"github.com/rcliao/channel-memory/internal/service"
	"github.com/rcliao/channel-memory/internal/store"
)

var (
	dbPath     string
	configPath string
	formatFlag string
	verbose    bool
)

var stores = store.NewRegistry()

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "channel-memory",
	Short: "Compacted, searchable history for chat channels",
	Long: "A CLI for per-channel conversation logs. Appends records, keeps rolling " +
		"period summaries, serves token-budgeted history and searches by keyword clusters.",
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		stores.Close()
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $CHANNEL_MEMORY_DB or ~/.channel-memory/memory.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $CHANNEL_MEMORY_CONFIG or ~/.channel-memory/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

// loadConfig layers the config file, the environment and flags.
func loadConfig() *config.Config {
	path := configPath
	if path == "" {
		path = os.Getenv(config.EnvConfig)
	}
	cfg, err := config.Load(path)
	if err != nil {
		exitErr("load config", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		exitErr("load config", err)
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		exitErr("load config", err)
	}
	return cfg
}

func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := config.ParseLevel(cfg.LogLevel)
	return logging.New(level)
}

func openStore(cfg *config.Config) *store.SQLiteStore {
	s, err := stores.Open(cfg.DBPath)
	if err != nil {
		exitErr("open store", err)
	}
	return s
}

// openService builds the full stack: config, logger, store and summarizer.
func openService() (*service.Service, *config.Config, *slog.Logger) {
	cfg := loadConfig()
	logger := newLogger(cfg)
	st := openStore(cfg)

	sum, err := llm.New(cfg.LLM)
	if err != nil {
		exitErr("configure llm", err)
	}
	return service.New(st, sum, cfg, logger), cfg, logger
}

func exitErr(msg string, err error) {
	stores.Close()
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
