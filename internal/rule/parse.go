package rule

import (
	"strings"
)

// Parse converts one rule line of a dump into a Rule. table is the section
// the line was found under and index its zero-based position among the
// table's rules. Tokens that cannot be mapped to an attribute are reported
// as warnings and otherwise ignored; Parse never fails as a whole.
func Parse(line, table string, index int) (Rule, []*ParseWarning) {
	line = strings.TrimSpace(line)
	r := Rule{
		Table: table,
		Line:  line,
		Index: index,
	}
	p := parser{line: line, rule: &r}

	tokens, err := tokenize(line)
	if err != nil {
		p.warn(line, err.Error())
	}
	p.tokens = tokens
	p.run()

	if p.comment != "" {
		if _, ok := ParseName(p.comment); ok {
			r.Name = p.comment
		} else {
			r.Set(ParamComment, Match{{Value: p.comment}})
		}
	}
	if r.Name == "" {
		r.Name = FallbackName(line)
	}
	return r, p.warnings
}

// parser holds the state of one Parse call.
type parser struct {
	line     string
	tokens   []string
	pos      int
	rule     *Rule
	comment  string
	warnings []*ParseWarning
}

func (p *parser) warn(token, reason string) {
	p.warnings = append(p.warnings, &ParseWarning{Line: p.line, Token: token, Reason: reason})
}

// next returns the token after the current one and advances past both.
func (p *parser) next() (string, bool) {
	if p.pos+1 >= len(p.tokens) {
		p.pos = len(p.tokens)
		return "", false
	}
	v := p.tokens[p.pos+1]
	p.pos += 2
	return v, true
}

func (p *parser) run() {
	negate := false
	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		if tok == "!" {
			negate = true
			p.pos++
			continue
		}

		switch tok {
		case "-A", "--append":
			chain, ok := p.next()
			if !ok {
				p.warn(tok, "missing chain")
				break
			}
			p.rule.Chain = chain
		case "-m", "--match":
			mod, ok := p.next()
			if !ok {
				p.warn(tok, "missing module")
				break
			}
			if !knownModules[mod] {
				p.warn(tok+" "+mod, "unknown match module")
			}
		case "--comment":
			v, ok := p.next()
			if !ok {
				p.warn(tok, "missing value")
				break
			}
			p.comment = v
		case "-j", "--jump":
			target, ok := p.next()
			if !ok {
				p.warn(tok, "missing target")
				break
			}
			p.setTarget(target)
		default:
			param, known := flagParams[tok]
			if !known {
				p.skipUnknown(tok)
				break
			}
			p.parseValue(tok, param, negate)
		}
		negate = false
	}
}

// parseValue consumes the value of an attribute flag at the current
// position. A "!" between flag and value negates it as well.
func (p *parser) parseValue(flag string, param Param, negate bool) {
	p.pos++
	if p.pos < len(p.tokens) && p.tokens[p.pos] == "!" {
		negate = true
		p.pos++
	}
	if p.pos >= len(p.tokens) {
		p.warn(flag, "missing value")
		return
	}
	value := p.tokens[p.pos]
	p.pos++

	m, err := normalizeMatch(param, Match{{Value: value, Negated: negate}})
	if err != nil {
		p.warn(flag+" "+value, err.Error())
		return
	}
	if len(m) == 0 {
		return
	}
	spec, _ := specFor(param)
	if existing := p.rule.Get(param); len(existing) > 0 && spec.multi {
		m = append(existing, m...)
	}
	p.rule.Set(param, m)
}

// skipUnknown drops an unrecognized flag together with the value tokens
// that follow it.
func (p *parser) skipUnknown(tok string) {
	p.warn(tok, "unknown option")
	p.pos++
	for p.pos < len(p.tokens) {
		t := p.tokens[p.pos]
		if t == "!" || strings.HasPrefix(t, "-") {
			return
		}
		p.pos++
	}
}

func (p *parser) setTarget(target string) {
	switch lower := strings.ToLower(target); lower {
	case ActionAccept, ActionDrop, ActionReject:
		p.rule.Action = lower
		p.rule.Jump = ""
	default:
		p.rule.Action = ""
		p.rule.Jump = target
	}
}
