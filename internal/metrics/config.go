// Package metrics exposes reconciliation counters in the Prometheus format.
package metrics

import (
	"errors"
	"net"
)

// DefaultListen is the default address of the metrics endpoint.
const DefaultListen = "127.0.0.1:9469"

// Config holds the configuration of the metrics endpoint.
type Config struct {
	// Enabled controls whether watch serves /metrics.
	// Default: false.
	Enabled bool `yaml:"enabled"`

	// Listen is the host:port the endpoint binds to.
	// Default: 127.0.0.1:9469
	Listen string `yaml:"listen"`
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
}

// Validate checks that configuration values are acceptable.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return errors.New("metrics: config: Listen must be host:port")
	}
	return nil
}
