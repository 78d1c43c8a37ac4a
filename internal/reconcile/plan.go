package reconcile

import (
	"fmt"

	"github.com/plexsphere/plexfw/internal/ordering"
	"github.com/plexsphere/plexfw/internal/rule"
	"github.com/plexsphere/plexfw/internal/state"
)

// Kind is the decision taken for one declared rule.
type Kind string

const (
	KindNoop   Kind = "noop"
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Change is the decision for one declared rule against a snapshot.
type Change struct {
	Kind Kind

	// Desired is the declared rule; Current the live rule of the same name,
	// if one exists.
	Desired rule.Rule
	Current *rule.Rule

	// Position is the 1-indexed chain slot of an insert or update.
	Position int

	// Args are the mutation arguments without the tool name.
	Args []string

	// Fields lists the attributes that differ for an update.
	Fields []string
}

// Intent maps the change to the mutation intent. It must not be called for
// a no-op.
func (c Change) Intent() rule.Intent {
	switch c.Kind {
	case KindInsert:
		return rule.IntentInsert
	case KindUpdate:
		return rule.IntentUpdate
	default:
		return rule.IntentDelete
	}
}

// mutation returns the snapshot change a successful run of c amounts to.
func (c Change) mutation() state.Mutation {
	if c.Kind == KindDelete {
		return state.Mutation{Intent: rule.IntentDelete, Rule: *c.Current}
	}
	return state.Mutation{Intent: c.Intent(), Rule: c.Desired, Position: c.Position}
}

// Plan decides what to do with d given the live rules in snap. d must have
// had its defaults applied.
func Plan(d rule.DeclaredRule, snap state.Snapshot) (Change, error) {
	desired, err := d.Rule()
	if err != nil {
		return Change{}, err
	}
	change := Change{Kind: KindNoop, Desired: desired}

	current, found := snap.FindByName(desired.Table, desired.Name)
	if found {
		change.Current = &current
	}

	if d.Ensure == rule.EnsureAbsent {
		if !found {
			return change, nil
		}
		args, err := rule.Serialize(current, rule.IntentDelete, 0)
		if err != nil {
			return Change{}, fmt.Errorf("reconcile: plan %q: %w", desired.Name, err)
		}
		change.Kind = KindDelete
		change.Args = args
		return change, nil
	}

	if found && current.Chain != desired.Chain {
		return Change{}, &rule.UnsupportedMutationError{
			Name:   desired.Name,
			Field:  "chain",
			From:   current.Chain,
			To:     desired.Chain,
			Reason: "delete the rule and declare it again in the new chain",
		}
	}
	if found && current.Equal(desired) {
		return change, nil
	}

	change.Kind = KindInsert
	if found {
		change.Kind = KindUpdate
		change.Fields = current.Diff(desired)
	}
	change.Position = ordering.Resolve(desired.Name, snap.Chain(desired.Table, desired.Chain))

	args, err := rule.Serialize(desired, change.Intent(), change.Position)
	if err != nil {
		return Change{}, fmt.Errorf("reconcile: plan %q: %w", desired.Name, err)
	}
	change.Args = args
	return change, nil
}
