package backend

import "fmt"

// Engine selects which rule engine family of executables is used.
type Engine string

// Engines.
const (
	// EngineAuto prefers the nf_tables based tools and falls back to the
	// legacy ones.
	EngineAuto   Engine = "auto"
	EngineLegacy Engine = "legacy"
	EngineNFT    Engine = "nft"
)

// Config holds the configuration for backend selection.
// Config is passed as a constructor argument; no file I/O in this package.
type Config struct {
	// Engine is one of auto, legacy or nft.
	// Default: auto
	Engine Engine `yaml:"engine"`

	// Wait makes every mutation wait for the xtables lock instead of
	// failing when another process holds it.
	Wait bool `yaml:"wait"`

	// IPv6 enables the IPv6 engine.
	// Default: true (set by ApplyDefaults on a zero-valued Config).
	IPv6 *bool `yaml:"ipv6"`
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Engine == "" {
		c.Engine = EngineAuto
	}
	if c.IPv6 == nil {
		enabled := true
		c.IPv6 = &enabled
	}
}

// Validate checks that configuration values are acceptable.
func (c *Config) Validate() error {
	switch c.Engine {
	case EngineAuto, EngineLegacy, EngineNFT:
		return nil
	default:
		return fmt.Errorf("backend: config: invalid engine %q (must be auto, legacy or nft)", c.Engine)
	}
}

// IPv6Enabled reports whether the IPv6 engine should be selected.
func (c *Config) IPv6Enabled() bool {
	return c.IPv6 == nil || *c.IPv6
}
