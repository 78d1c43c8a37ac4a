// Package rule implements the structured packet-filter rule model and the
// codec between it and the iptables-save text representation.
package rule

import (
	"maps"
	"slices"
	"strings"
)

// Tables known to the packet-filter tool.
const (
	TableFilter   = "filter"
	TableNAT      = "nat"
	TableMangle   = "mangle"
	TableRaw      = "raw"
	TableSecurity = "security"
)

// KnownTables lists the tables a rule may be declared in.
var KnownTables = []string{TableFilter, TableNAT, TableMangle, TableRaw, TableSecurity}

// Actions that map directly onto the built-in verdict targets.
const (
	ActionAccept = "accept"
	ActionDrop   = "drop"
	ActionReject = "reject"
)

// Param names a match or target attribute of a rule.
type Param string

// Supported attributes.
const (
	ParamSource      Param = "source"
	ParamDestination Param = "destination"
	ParamInIface     Param = "iniface"
	ParamOutIface    Param = "outiface"
	ParamProto       Param = "proto"
	ParamSport       Param = "sport"
	ParamDport       Param = "dport"
	ParamPort        Param = "port"
	ParamComment     Param = "comment"
	ParamState       Param = "state"
	ParamCtState     Param = "ctstate"
	ParamICMP        Param = "icmp"
	ParamRejectWith  Param = "reject"
	ParamLogPrefix   Param = "log_prefix"
	ParamLogLevel    Param = "log_level"
	ParamToDest      Param = "todest"
	ParamToSource    Param = "tosource"
	ParamToPorts     Param = "toports"
)

// Term is one value of a match attribute.
type Term struct {
	Value   string
	Negated bool
}

// String renders the term the way a declared rule spells it ("! 80").
func (t Term) String() string {
	if t.Negated {
		return "! " + t.Value
	}
	return t.Value
}

// ParseTerm reads a declared value, honouring a leading "!" negation prefix.
func ParseTerm(s string) Term {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "!"); ok {
		return Term{Value: strings.TrimSpace(rest), Negated: true}
	}
	return Term{Value: s}
}

// Match is the ordered list of values given for one attribute.
type Match []Term

// Values returns the bare values without negation.
func (m Match) Values() []string {
	out := make([]string, len(m))
	for i, t := range m {
		out[i] = t.Value
	}
	return out
}

// Negated reports whether any term of the match is negated.
func (m Match) Negated() bool {
	return slices.ContainsFunc(m, func(t Term) bool { return t.Negated })
}

// Rule is the structured representation of one packet-filter rule.
type Rule struct {
	Table string
	Chain string
	Name  string

	// Line is the textual form as emitted by the dump, empty for rules that
	// were never fetched.
	Line string

	// Index is the zero-based position of the rule within its table dump,
	// or -1 when unknown.
	Index int

	// Action is one of accept, drop or reject. Jump holds any other target
	// and is mutually exclusive with Action.
	Action string
	Jump   string

	Params map[Param]Match
}

// Set stores m under p, deleting the attribute when m is empty.
func (r *Rule) Set(p Param, m Match) {
	if len(m) == 0 {
		delete(r.Params, p)
		return
	}
	if r.Params == nil {
		r.Params = make(map[Param]Match)
	}
	r.Params[p] = m
}

// Get returns the match stored for p.
func (r Rule) Get(p Param) Match {
	return r.Params[p]
}

// Target returns the -j target as the tool spells it.
func (r Rule) Target() string {
	if r.Action != "" {
		return strings.ToUpper(r.Action)
	}
	return r.Jump
}

// Priority returns the rule's priority and whether the rule is managed.
func (r Rule) Priority() (int, bool) {
	return ParseName(r.Name)
}

// Managed reports whether the rule's name follows the priority convention.
func (r Rule) Managed() bool {
	_, ok := ParseName(r.Name)
	return ok
}

// Clone returns a deep copy of r.
func (r Rule) Clone() Rule {
	out := r
	if r.Params != nil {
		out.Params = make(map[Param]Match, len(r.Params))
		for p, m := range r.Params {
			out.Params[p] = slices.Clone(m)
		}
	}
	return out
}

// DefaultRejectWith lists the reject types the tool fills in when a REJECT
// rule names none.
var DefaultRejectWith = []string{"icmp-port-unreachable", "icmp6-port-unreachable"}

// Equal reports whether two rules describe the same packet filter. Line and
// Index are identity details of a fetched rule and are not compared. State
// lists compare as sets and a default reject type equals an unset one.
func (r Rule) Equal(o Rule) bool {
	if r.Table != o.Table || r.Chain != o.Chain || r.Name != o.Name {
		return false
	}
	if r.Target() != o.Target() {
		return false
	}
	a, b := r.significant(), o.significant()
	if len(a) != len(b) {
		return false
	}
	for p, m := range a {
		om, ok := b[p]
		if !ok || !sameMatch(p, m, om) {
			return false
		}
	}
	return true
}

// Diff lists the attributes whose values differ between r and o.
func (r Rule) Diff(o Rule) []string {
	var out []string
	if r.Target() != o.Target() {
		out = append(out, "action")
	}
	a, b := r.significant(), o.significant()
	for _, spec := range canonical {
		if !sameMatch(spec.param, a[spec.param], b[spec.param]) {
			out = append(out, string(spec.param))
		}
	}
	return out
}

// significant returns the params that take part in comparison.
func (r Rule) significant() map[Param]Match {
	m, ok := r.Params[ParamRejectWith]
	if !ok || r.Target() != "REJECT" || len(m) != 1 || m[0].Negated ||
		!slices.Contains(DefaultRejectWith, m[0].Value) {
		return r.Params
	}
	out := maps.Clone(r.Params)
	delete(out, ParamRejectWith)
	return out
}

func sameMatch(p Param, a, b Match) bool {
	if slices.Equal(a, b) {
		return true
	}
	if p != ParamState && p != ParamCtState {
		return false
	}
	return slices.Equal(sortedTerms(a), sortedTerms(b))
}

func sortedTerms(m Match) Match {
	out := slices.Clone(m)
	slices.SortFunc(out, func(a, b Term) int {
		if c := strings.Compare(a.Value, b.Value); c != 0 {
			return c
		}
		switch {
		case a.Negated == b.Negated:
			return 0
		case a.Negated:
			return 1
		}
		return -1
	})
	return slices.Compact(out)
}
