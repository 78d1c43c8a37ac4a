package manifest

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/plexsphere/plexfw/internal/fsutil"
	"github.com/plexsphere/plexfw/internal/rule"
	"github.com/plexsphere/plexfw/internal/state"
)

// FromSnapshot returns the declared form of every managed rule in snap, in
// table and chain order and physical order within a chain.
func FromSnapshot(family rule.Family, snap state.Snapshot) []rule.DeclaredRule {
	var out []rule.DeclaredRule
	for _, key := range snap.Keys() {
		for _, r := range snap.Chain(key.Table, key.Chain) {
			if r.Managed() {
				out = append(out, rule.Declare(r, family))
			}
		}
	}
	return out
}

// Marshal encodes rules as a rules document.
func Marshal(rules []rule.DeclaredRule) ([]byte, error) {
	data, err := yaml.Marshal(Manifest{Rules: rules})
	if err != nil {
		return nil, fmt.Errorf("manifest: marshal: %w", err)
	}
	return data, nil
}

// Save writes rules to path atomically.
func Save(path string, rules []rule.DeclaredRule) error {
	data, err := Marshal(rules)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data, 0o644)
}
