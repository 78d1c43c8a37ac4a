// Package cmd implements the plexfw CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/plexsphere/plexfw/internal/agent"
	"github.com/plexsphere/plexfw/internal/backend"
)

// defaultConfigFile is read when present; a missing default file means
// built-in defaults.
const defaultConfigFile = "/etc/plexfw/config.yaml"

var (
	cfgFile   string
	logLevel  string
	rulesFile string
	engine    string
)

// Build info set from main.
var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

// Seams replaced in tests.
var (
	newRunner      = func() backend.CommandRunner { return backend.ExecRunner{} }
	selectBackends = backend.Select
)

// SetVersionInfo sets the version info from build-time ldflags.
func SetVersionInfo(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	rootCmd.Version = buildVersion
	rootCmd.SetVersionTemplate(fmt.Sprintf("plexfw version {{.Version}}\ncommit: %s\nbuilt: %s\n", buildCommit, buildDate))
}

var rootCmd = &cobra.Command{
	Use:   "plexfw",
	Short: "plexfw manages packet-filter rules declaratively",
	Long: "plexfw converges the host's iptables rules on a declared rule set.\n" +
		"Rules it manages are named \"<priority> <description>\" and kept in priority\n" +
		"order; rules it does not manage are left in place.",
	SilenceUsage: true,
	// No Run function; prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigFile, "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error; overrides config)")
	rootCmd.PersistentFlags().StringVar(&rulesFile, "rules", "", "declared rules file (overrides config)")
	rootCmd.PersistentFlags().StringVar(&engine, "engine", "", "packet-filter engine: auto, legacy or nft (overrides config)")

	rootCmd.Version = buildVersion
	rootCmd.SetVersionTemplate(fmt.Sprintf("plexfw version {{.Version}}\ncommit: %s\nbuilt: %s\n", buildCommit, buildDate))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the config file, applies CLI flag overrides and
// validates the result.
func loadConfig() (*agent.AgentConfig, error) {
	cfg, err := agent.ParseConfig(cfgFile)
	if err != nil {
		if cfgFile != defaultConfigFile || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg = &agent.AgentConfig{}
	}

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if rulesFile != "" {
		cfg.RulesFile = rulesFile
	}
	if engine != "" {
		cfg.Backend.Engine = backend.Engine(engine)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
