package rule

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Ensure is the desired presence of a declared rule.
type Ensure string

// Ensure values.
const (
	EnsurePresent Ensure = "present"
	EnsureAbsent  Ensure = "absent"
)

// Family selects the address family, and with it the engine, of a rule.
type Family string

// Families.
const (
	FamilyIPv4 Family = "ipv4"
	FamilyIPv6 Family = "ipv6"
)

// Defaults applied to zero-valued DeclaredRule fields.
const (
	DefaultTable = TableFilter
	DefaultChain = "INPUT"
)

// Values is a list of attribute values. In YAML it may be written either
// as a scalar or as a sequence.
type Values []string

// UnmarshalYAML accepts a scalar or a sequence of scalars.
func (v *Values) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*v = Values{node.Value}
		return nil
	case yaml.SequenceNode:
		out := make(Values, 0, len(node.Content))
		for _, n := range node.Content {
			if n.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: expected a scalar value", n.Line)
			}
			out = append(out, n.Value)
		}
		*v = out
		return nil
	default:
		return fmt.Errorf("line %d: expected a scalar or a list", node.Line)
	}
}

// DeclaredRule is the desired state of one rule as supplied by the caller.
type DeclaredRule struct {
	Name   string `yaml:"name"`
	Ensure Ensure `yaml:"ensure,omitempty"`
	Family Family `yaml:"family,omitempty"`
	Table  string `yaml:"table,omitempty"`
	Chain  string `yaml:"chain,omitempty"`

	Source      string `yaml:"source,omitempty"`
	Destination string `yaml:"destination,omitempty"`
	InIface     string `yaml:"iniface,omitempty"`
	OutIface    string `yaml:"outiface,omitempty"`
	Proto       string `yaml:"proto,omitempty"`
	Sport       Values `yaml:"sport,omitempty"`
	Dport       Values `yaml:"dport,omitempty"`
	Port        Values `yaml:"port,omitempty"`
	State       Values `yaml:"state,omitempty"`
	CtState     Values `yaml:"ctstate,omitempty"`
	ICMP        string `yaml:"icmp,omitempty"`

	Action     string `yaml:"action,omitempty"`
	Jump       string `yaml:"jump,omitempty"`
	RejectWith string `yaml:"reject,omitempty"`
	LogPrefix  string `yaml:"log_prefix,omitempty"`
	LogLevel   string `yaml:"log_level,omitempty"`
	ToDest     string `yaml:"todest,omitempty"`
	ToSource   string `yaml:"tosource,omitempty"`
	ToPorts    string `yaml:"toports,omitempty"`
}

// ApplyDefaults sets default values for zero-valued fields.
func (d *DeclaredRule) ApplyDefaults() {
	if d.Ensure == "" {
		d.Ensure = EnsurePresent
	}
	if d.Family == "" {
		d.Family = FamilyIPv4
	}
	if d.Table == "" {
		d.Table = DefaultTable
	}
	if d.Chain == "" {
		d.Chain = DefaultChain
	}
	d.Action = strings.ToLower(d.Action)
}

// Validate checks the declared rule for semantic correctness.
func (d *DeclaredRule) Validate() error {
	if _, ok := ParseName(d.Name); !ok {
		return fmt.Errorf("rule: declared %q: name must be \"<priority 0-%d> <description>\"", d.Name, MaxPriority)
	}
	if d.Ensure != EnsurePresent && d.Ensure != EnsureAbsent {
		return fmt.Errorf("rule: declared %q: invalid ensure %q", d.Name, d.Ensure)
	}
	if d.Family != FamilyIPv4 && d.Family != FamilyIPv6 {
		return fmt.Errorf("rule: declared %q: invalid family %q", d.Name, d.Family)
	}
	if !slices.Contains(KnownTables, d.Table) {
		return fmt.Errorf("rule: declared %q: invalid table %q", d.Name, d.Table)
	}
	if d.Chain == "" {
		return fmt.Errorf("rule: declared %q: chain must not be empty", d.Name)
	}
	if d.Action != "" && d.Jump != "" {
		return fmt.Errorf("rule: declared %q: action and jump are mutually exclusive", d.Name)
	}
	switch d.Action {
	case "", ActionAccept, ActionDrop, ActionReject:
	default:
		return fmt.Errorf("rule: declared %q: invalid action %q", d.Name, d.Action)
	}
	if d.Ensure == EnsurePresent && d.Action == "" && d.Jump == "" {
		return fmt.Errorf("rule: declared %q: one of action or jump is required", d.Name)
	}
	if _, err := d.Rule(); err != nil {
		return err
	}
	return nil
}

// Priority returns the priority encoded in the rule name.
func (d *DeclaredRule) Priority() int {
	p, _ := ParseName(d.Name)
	return p
}

// Rule converts the declared rule into the structured model with every
// value normalized. Negation uniformity is not checked here; Serialize
// rejects mixed negation.
func (d *DeclaredRule) Rule() (Rule, error) {
	r := Rule{
		Table:  d.Table,
		Chain:  d.Chain,
		Name:   d.Name,
		Index:  -1,
		Action: strings.ToLower(d.Action),
		Jump:   d.Jump,
	}
	fields := []struct {
		param  Param
		values []string
	}{
		{ParamSource, scalar(d.Source)},
		{ParamDestination, scalar(d.Destination)},
		{ParamInIface, scalar(d.InIface)},
		{ParamOutIface, scalar(d.OutIface)},
		{ParamProto, scalar(d.Proto)},
		{ParamSport, d.Sport},
		{ParamDport, d.Dport},
		{ParamPort, d.Port},
		{ParamState, d.State},
		{ParamCtState, d.CtState},
		{ParamICMP, scalar(d.ICMP)},
		{ParamRejectWith, scalar(d.RejectWith)},
		{ParamLogPrefix, scalar(d.LogPrefix)},
		{ParamLogLevel, scalar(d.LogLevel)},
		{ParamToDest, scalar(d.ToDest)},
		{ParamToSource, scalar(d.ToSource)},
		{ParamToPorts, scalar(d.ToPorts)},
	}
	for _, f := range fields {
		if len(f.values) == 0 {
			continue
		}
		spec, _ := specFor(f.param)
		m := make(Match, 0, len(f.values))
		for _, v := range f.values {
			if spec.target {
				m = append(m, Term{Value: v})
				continue
			}
			m = append(m, ParseTerm(v))
		}
		norm, err := normalizeMatch(f.param, m)
		if err != nil {
			return Rule{}, fmt.Errorf("rule: declared %q: %s: %w", d.Name, f.param, err)
		}
		r.Set(f.param, norm)
	}
	if r.Table == "" || r.Chain == "" {
		return Rule{}, errors.New("rule: declared: table and chain are required")
	}
	return r, nil
}

func scalar(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

// Declare converts a live rule into the declared form that reproduces it.
func Declare(r Rule, family Family) DeclaredRule {
	d := DeclaredRule{
		Name:   r.Name,
		Family: family,
		Table:  r.Table,
		Chain:  r.Chain,
		Action: r.Action,
		Jump:   r.Jump,
	}
	single := func(p Param) string {
		m := r.Get(p)
		if len(m) == 0 {
			return ""
		}
		return m[0].String()
	}
	multi := func(p Param) Values {
		var out Values
		for _, t := range r.Get(p) {
			out = append(out, t.String())
		}
		return out
	}
	d.Source = single(ParamSource)
	d.Destination = single(ParamDestination)
	d.InIface = single(ParamInIface)
	d.OutIface = single(ParamOutIface)
	d.Proto = single(ParamProto)
	d.Sport = multi(ParamSport)
	d.Dport = multi(ParamDport)
	d.Port = multi(ParamPort)
	d.State = multi(ParamState)
	d.CtState = multi(ParamCtState)
	d.ICMP = single(ParamICMP)
	d.RejectWith = single(ParamRejectWith)
	d.LogPrefix = single(ParamLogPrefix)
	d.LogLevel = single(ParamLogLevel)
	d.ToDest = single(ParamToDest)
	d.ToSource = single(ParamToSource)
	d.ToPorts = single(ParamToPorts)
	return d
}
