// Package state reads the live rule set from the packet-filter tool.
package state

import (
	"slices"
	"sort"

	"github.com/plexsphere/plexfw/internal/rule"
)

// Key identifies one chain of one table.
type Key struct {
	Table string
	Chain string
}

// RuleSet is the ordered list of rules of one (table, chain) in physical
// order.
type RuleSet struct {
	Table string
	Chain string
	Rules []rule.Rule
}

// Snapshot is the rule set of every chain as fetched in one cycle. A
// Snapshot is never modified after it is built; Apply derives a new one.
type Snapshot struct {
	sets map[Key]RuleSet
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() Snapshot {
	return Snapshot{sets: make(map[Key]RuleSet)}
}

// Chain returns the rules of (table, chain) in physical order. An unknown
// chain yields no rules.
func (s Snapshot) Chain(table, chain string) []rule.Rule {
	return s.sets[Key{Table: table, Chain: chain}].Rules
}

// Keys returns every (table, chain) of the snapshot, sorted.
func (s Snapshot) Keys() []Key {
	keys := make([]Key, 0, len(s.sets))
	for k := range s.sets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Table != keys[j].Table {
			return keys[i].Table < keys[j].Table
		}
		return keys[i].Chain < keys[j].Chain
	})
	return keys
}

// Len returns the total number of rules in the snapshot.
func (s Snapshot) Len() int {
	n := 0
	for _, set := range s.sets {
		n += len(set.Rules)
	}
	return n
}

// FindByName returns the first rule called name in any chain of table.
// Chains are searched in sorted order so the result is deterministic.
func (s Snapshot) FindByName(table, name string) (rule.Rule, bool) {
	for _, k := range s.Keys() {
		if k.Table != table {
			continue
		}
		for _, r := range s.sets[k].Rules {
			if r.Name == name {
				return r, true
			}
		}
	}
	return rule.Rule{}, false
}

// Mutation describes a change applied to a chain at a 1-indexed position.
type Mutation struct {
	Intent   rule.Intent
	Rule     rule.Rule
	Position int
}

// Apply returns a snapshot with m applied to the affected chain. The
// receiver and its rule slices are left untouched.
func (s Snapshot) Apply(m Mutation) Snapshot {
	out := Snapshot{sets: make(map[Key]RuleSet, len(s.sets)+1)}
	for k, v := range s.sets {
		out.sets[k] = v
	}

	key := Key{Table: m.Rule.Table, Chain: m.Rule.Chain}
	set := s.sets[key]
	set.Table, set.Chain = key.Table, key.Chain
	rules := slices.Clone(set.Rules)

	idx := m.Position - 1
	switch m.Intent {
	case rule.IntentInsert:
		idx = max(0, min(idx, len(rules)))
		rules = slices.Insert(rules, idx, m.Rule)
	case rule.IntentUpdate:
		if idx >= 0 && idx < len(rules) {
			rules[idx] = m.Rule
		}
	case rule.IntentDelete:
		if i := slices.IndexFunc(rules, func(r rule.Rule) bool { return r.Name == m.Rule.Name }); i >= 0 {
			rules = slices.Delete(rules, i, i+1)
		}
	}
	set.Rules = rules
	out.sets[key] = set
	return out
}

// add appends r to its chain while the snapshot is being built.
func (s Snapshot) add(r rule.Rule) {
	key := Key{Table: r.Table, Chain: r.Chain}
	set := s.sets[key]
	set.Table, set.Chain = key.Table, key.Chain
	set.Rules = append(set.Rules, r)
	s.sets[key] = set
}

// declare registers an empty chain while the snapshot is being built.
func (s Snapshot) declare(table, chain string) {
	key := Key{Table: table, Chain: chain}
	if _, ok := s.sets[key]; !ok {
		s.sets[key] = RuleSet{Table: table, Chain: chain}
	}
}

// dropTable removes every chain of table while the snapshot is being built.
func (s Snapshot) dropTable(table string) {
	for k := range s.sets {
		if k.Table == table {
			delete(s.sets, k)
		}
	}
}
