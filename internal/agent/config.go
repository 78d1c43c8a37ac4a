// Package agent holds the top-level configuration of plexfw.
package agent

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/plexsphere/plexfw/internal/backend"
	"github.com/plexsphere/plexfw/internal/metrics"
	"github.com/plexsphere/plexfw/internal/reconcile"
)

const (
	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"

	// DefaultRulesFile is the default path of the declared-rules manifest.
	DefaultRulesFile = "/etc/plexfw/rules.yaml"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// AgentConfig is the top-level configuration for plexfw.
// It aggregates all subsystem configurations and is populated from
// a YAML configuration file via ParseConfig.
type AgentConfig struct {
	// LogLevel is the log level: "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// RulesFile is the manifest of declared rules.
	// Default: /etc/plexfw/rules.yaml
	RulesFile string `yaml:"rules_file"`

	Backend   backend.Config   `yaml:"backend"`
	Reconcile reconcile.Config `yaml:"reconcile"`
	Metrics   metrics.Config   `yaml:"metrics"`
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *AgentConfig) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.RulesFile == "" {
		c.RulesFile = DefaultRulesFile
	}
	c.Backend.ApplyDefaults()
	c.Reconcile.ApplyDefaults()
	c.Metrics.ApplyDefaults()
}

// Validate checks that required fields are set and values are acceptable.
func (c *AgentConfig) Validate() error {
	if !slices.Contains(logLevels, c.LogLevel) {
		return fmt.Errorf("agent: config: invalid log_level %q", c.LogLevel)
	}
	if err := c.Backend.Validate(); err != nil {
		return err
	}
	if err := c.Reconcile.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	return nil
}

// ParseConfig reads a YAML configuration file and returns an AgentConfig.
// It applies defaults and validates the configuration.
func ParseConfig(path string) (*AgentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("agent: config: read %s: %w", path, err)
	}
	var cfg AgentConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("agent: config: parse %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
