package rule

import (
	"fmt"
	"strings"
)

// ParseWarning reports a token of a dump line that could not be mapped to a
// known attribute. The rule is still produced with that token's effect
// omitted.
type ParseWarning struct {
	Line   string
	Token  string
	Reason string
}

// Error returns the formatted warning.
func (w *ParseWarning) Error() string {
	return fmt.Sprintf("rule: parse: skipping %q (%s) in %q", w.Token, w.Reason, w.Line)
}

// InvalidNegationError is returned by Serialize when a multi-value attribute
// mixes negated and plain values.
type InvalidNegationError struct {
	Param Param
	// Values are the terms lacking the negation prefix.
	Values []string
}

// Error returns the formatted error string.
func (e *InvalidNegationError) Error() string {
	quoted := make([]string, len(e.Values))
	for i, v := range e.Values {
		quoted[i] = "'" + v + "'"
	}
	return fmt.Sprintf("rule: invalid negation: %s: when negating, all values must be prefixed with '!', but %s %s not prefixed",
		e.Param, strings.Join(quoted, ", "), verb(len(e.Values)))
}

func verb(n int) string {
	if n == 1 {
		return "is"
	}
	return "are"
}

// UnsupportedMutationError is returned when a declared change cannot be
// applied in place, such as moving a rule to another chain.
type UnsupportedMutationError struct {
	Name   string
	Field  string
	From   string
	To     string
	Reason string
}

// Error returns the formatted error string.
func (e *UnsupportedMutationError) Error() string {
	return fmt.Sprintf("rule: %q: changing %s from %q to %q is not supported: %s", e.Name, e.Field, e.From, e.To, e.Reason)
}
