package rule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Intent selects the mutation Serialize builds arguments for.
type Intent int

// Mutation intents.
const (
	IntentInsert Intent = iota
	IntentUpdate
	IntentDelete
)

// String returns the intent name.
func (i Intent) String() string {
	switch i {
	case IntentInsert:
		return "insert"
	case IntentUpdate:
		return "update"
	case IntentDelete:
		return "delete"
	default:
		return "intent(" + strconv.Itoa(int(i)) + ")"
	}
}

// Serialize builds the argument vector the tool expects to insert, replace
// or delete r. position is 1-indexed and ignored for deletes. A rule that
// was fetched from the dump is deleted by its own line so attributes the
// codec does not model still match.
func Serialize(r Rule, intent Intent, position int) ([]string, error) {
	if r.Table == "" || r.Chain == "" {
		return nil, errors.New("rule: serialize: table and chain are required")
	}

	var args []string
	switch intent {
	case IntentInsert, IntentUpdate:
		if position < 1 {
			return nil, fmt.Errorf("rule: serialize: %s %q: invalid position %d", intent, r.Name, position)
		}
		verb := "-I"
		if intent == IntentUpdate {
			verb = "-R"
		}
		args = []string{"-t", r.Table, verb, r.Chain, strconv.Itoa(position)}
	case IntentDelete:
		args = []string{"-t", r.Table, "-D", r.Chain}
		if r.Line != "" {
			spec, err := lineSpec(r.Line)
			if err != nil {
				return nil, err
			}
			return append(args, spec...), nil
		}
	default:
		return nil, fmt.Errorf("rule: serialize: unknown intent %d", intent)
	}

	spec, err := Spec(r)
	if err != nil {
		return nil, err
	}
	return append(args, spec...), nil
}

// lineSpec returns the tokens of a dump line following "-A <chain>".
func lineSpec(line string) ([]string, error) {
	tokens, err := tokenize(line)
	if err != nil {
		return nil, fmt.Errorf("rule: serialize: %q: %w", line, err)
	}
	if len(tokens) < 2 || (tokens[0] != "-A" && tokens[0] != "--append") {
		return nil, fmt.Errorf("rule: serialize: %q is not an append rule", line)
	}
	return tokens[2:], nil
}

// Spec builds the match specification of r: attribute flags in canonical
// order, the name comment, the jump target and target options.
func Spec(r Rule) ([]string, error) {
	var args []string
	for _, spec := range canonical {
		if spec.target {
			continue
		}
		if spec.param == ParamComment {
			if r.Managed() {
				args = append(args, "-m", "comment", "--comment", r.Name)
				continue
			}
		}
		next, err := specArgs(r, spec)
		if err != nil {
			return nil, err
		}
		args = append(args, next...)
	}

	if target := r.Target(); target != "" {
		args = append(args, "-j", target)
	}
	for _, spec := range canonical {
		if !spec.target {
			continue
		}
		next, err := specArgs(r, spec)
		if err != nil {
			return nil, err
		}
		args = append(args, next...)
	}
	return args, nil
}

// specArgs renders one attribute of r.
func specArgs(r Rule, spec paramSpec) ([]string, error) {
	m := r.Params[spec.param]
	if len(m) == 0 {
		return nil, nil
	}
	negated, err := checkNegation(spec, m)
	if err != nil {
		return nil, err
	}
	if !spec.multi && len(m) > 1 {
		return nil, fmt.Errorf("rule: serialize: %s accepts a single value, got %d", spec.param, len(m))
	}

	module, flag := spec.module, spec.flag
	if spec.param == ParamICMP && isICMPv6(r) {
		module, flag = "icmp6", "--icmpv6-type"
	}

	var args []string
	if module != "" {
		args = append(args, "-m", module)
	}
	if negated {
		args = append(args, "!")
	}
	values := m.Values()
	if isPortParam(spec.param) {
		for i, v := range values {
			values[i] = strings.ReplaceAll(v, "-", ":")
		}
	}
	return append(args, flag, strings.Join(values, ",")), nil
}

// checkNegation enforces that either every term of m is negated or none is.
func checkNegation(spec paramSpec, m Match) (bool, error) {
	if !m.Negated() {
		return false, nil
	}
	if !spec.negatable {
		return false, fmt.Errorf("rule: serialize: %s cannot be negated", spec.param)
	}
	var plain []string
	for _, t := range m {
		if !t.Negated {
			plain = append(plain, t.Value)
		}
	}
	if len(plain) > 0 {
		return false, &InvalidNegationError{Param: spec.param, Values: plain}
	}
	return true, nil
}

func isPortParam(p Param) bool {
	return p == ParamSport || p == ParamDport || p == ParamPort
}

func isICMPv6(r Rule) bool {
	for _, t := range r.Params[ParamProto] {
		if t.Value == "ipv6-icmp" {
			return true
		}
	}
	return false
}

// FormatLine renders r as a dump line ("-A <chain> ..."), quoting values
// the way the dump does.
func FormatLine(r Rule) (string, error) {
	spec, err := Spec(r)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(spec)+2)
	parts = append(parts, "-A", r.Chain)
	for _, a := range spec {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " "), nil
}

// JoinArgs renders an argument vector as a single shell-style string.
func JoinArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = quote(a)
	}
	return strings.Join(quoted, " ")
}
