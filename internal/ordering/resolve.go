// Package ordering computes where a rule belongs within a chain.
package ordering

import (
	"github.com/plexsphere/plexfw/internal/rule"
)

// Resolve returns the 1-indexed chain position for the rule called name,
// given the chain's rules in physical order.
//
// A rule already present keeps its own slot. A new rule is placed
// immediately after its predecessor: the rule with the greatest sort key
// that precedes it, the physically last one on ties. Unmanaged rules keep
// their physical place and sort with the 9000 sentinel, so a new rule never
// jumps ahead of a managed rule of lower priority but is placed before any
// unmanaged rules that follow its predecessor. Without a predecessor the
// rule goes first.
//
// Priorities compare as integers, so "950 test" sorts before "1000 test"
// and before unmanaged rules, although it is greater than both as a string.
func Resolve(name string, rules []rule.Rule) int {
	for i, r := range rules {
		if r.Name == name {
			return i + 1
		}
	}

	target, managed := rule.ParseName(name)
	if !managed {
		target = rule.UnmanagedPriority
	}

	pred, predKey := -1, -1
	for i, r := range rules {
		key, ok := precedes(r, name, target)
		if !ok {
			continue
		}
		if key >= predKey {
			pred, predKey = i, key
		}
	}
	return pred + 2
}

// precedes reports whether r sorts before a rule with the given name and
// priority, returning r's sort key.
func precedes(r rule.Rule, name string, target int) (int, bool) {
	p, managed := r.Priority()
	if !managed {
		return rule.UnmanagedPriority, rule.UnmanagedPriority < target
	}
	if p < target {
		return p, true
	}
	// Equal priorities keep their physical order, so an existing rule of
	// the same priority stays ahead of the newcomer.
	return p, p == target && r.Name != name
}
