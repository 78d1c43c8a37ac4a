package rule

import (
	"errors"
	"regexp"
	"strings"
)

var errUnterminatedQuote = errors.New("unterminated quote")

var counterPattern = regexp.MustCompile(`^\[\d+:\d+\]$`)

// tokenize splits a dump line on whitespace. Double-quoted sections form a
// single token with the quotes removed; a backslash inside quotes escapes
// the next character. On an unterminated quote the tokens read so far are
// returned together with errUnterminatedQuote.
func tokenize(line string) ([]string, error) {
	var (
		tokens  []string
		cur     strings.Builder
		inQuote bool
		escaped bool
		started bool
	)
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case inQuote && r == '\\':
			escaped = true
		case r == '"':
			inQuote = !inQuote
			started = true
		case !inQuote && (r == ' ' || r == '\t'):
			if started {
				tokens = append(tokens, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if started {
		tokens = append(tokens, cur.String())
	}
	if inQuote {
		return tokens, errUnterminatedQuote
	}
	// iptables-save -c prefixes each rule with its counters.
	if len(tokens) > 0 && counterPattern.MatchString(tokens[0]) {
		tokens = tokens[1:]
	}
	return tokens, nil
}

// quote renders an argument the way iptables-save does, quoting values
// that contain whitespace or quotes.
func quote(arg string) string {
	if arg != "" && !strings.ContainsAny(arg, " \t\"\\") {
		return arg
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(arg) + `"`
}
