package backend

import (
	"fmt"
	"log/slog"

	"github.com/plexsphere/plexfw/internal/rule"
)

// Set holds the backend chosen for each enabled family. It is selected once
// per run and passed explicitly to whoever needs it.
type Set map[rule.Family]Backend

// For returns the backend of family.
func (s Set) For(family rule.Family) (Backend, error) {
	b, ok := s[family]
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNoBackend, family)
	}
	return b, nil
}

// Select probes the host and picks one backend per enabled family. The IPv4
// engine is required; a missing IPv6 engine is logged and left out.
func Select(cfg Config, logger *slog.Logger, opts ...Option) (Set, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts = append([]Option{WithWait(cfg.Wait)}, opts...)

	families := []rule.Family{rule.FamilyIPv4}
	if cfg.IPv6Enabled() {
		families = append(families, rule.FamilyIPv6)
	}

	set := make(Set, len(families))
	for _, family := range families {
		b, err := probe(cfg.Engine, family, opts)
		if err != nil {
			return nil, err
		}
		if b == nil {
			if family == rule.FamilyIPv4 {
				return nil, fmt.Errorf("%w for %s (engine %s)", ErrNoBackend, family, cfg.Engine)
			}
			logger.Warn("no packet-filter engine available, rules of this family will fail",
				"component", "backend",
				"family", family,
				"engine", cfg.Engine,
			)
			continue
		}
		logger.Debug("selected packet-filter engine",
			"component", "backend",
			"family", family,
			"backend", b.Name(),
		)
		set[family] = b
	}
	return set, nil
}

// Probe returns every backend detected on this host, nf_tables engines
// first.
func Probe(opts ...Option) []Backend {
	var found []Backend
	for _, engine := range []Engine{EngineNFT, EngineLegacy} {
		for _, family := range []rule.Family{rule.FamilyIPv4, rule.FamilyIPv6} {
			b, err := New(engine, family, opts...)
			if err == nil && b.Detect() {
				found = append(found, b)
			}
		}
	}
	return found
}

func probe(engine Engine, family rule.Family, opts []Option) (Backend, error) {
	candidates := []Engine{engine}
	if engine == EngineAuto {
		candidates = []Engine{EngineNFT, EngineLegacy}
	}
	for _, e := range candidates {
		b, err := New(e, family, opts...)
		if err != nil {
			return nil, err
		}
		if b.Detect() {
			return b, nil
		}
	}
	return nil, nil
}
