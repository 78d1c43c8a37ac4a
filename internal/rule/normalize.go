package rule

import (
	"fmt"
	"net/netip"
	"regexp"
	"strconv"
	"strings"
)

var portPattern = regexp.MustCompile(`^\d{1,5}(?:[-:]\d{1,5})?$`)

// normalizeValue brings one attribute value into the form the dump uses.
// The boolean result is false when the value carries no filtering meaning
// (such as "proto all" or a 0.0.0.0/0 source) and the attribute should be
// dropped.
func normalizeValue(p Param, v string) (string, bool, error) {
	switch p {
	case ParamSource, ParamDestination:
		return normalizeAddr(v)
	case ParamProto:
		proto := strings.ToLower(v)
		if n, err := strconv.Atoi(proto); err == nil {
			if name, ok := protoNames[n]; ok {
				proto = name
			}
		}
		if proto == "all" || proto == "0" {
			return "", false, nil
		}
		if proto == "icmpv6" {
			proto = "ipv6-icmp"
		}
		return proto, true, nil
	case ParamSport, ParamDport, ParamPort, ParamToPorts:
		if !portPattern.MatchString(v) {
			return "", false, fmt.Errorf("invalid port %q", v)
		}
		return strings.ReplaceAll(v, ":", "-"), true, nil
	case ParamState, ParamCtState:
		return strings.ToUpper(v), true, nil
	}
	return v, true, nil
}

// normalizeAddr renders an address or network in CIDR form, defaulting to a
// host mask.
func normalizeAddr(v string) (string, bool, error) {
	var prefix netip.Prefix
	if strings.Contains(v, "/") {
		p, err := netip.ParsePrefix(v)
		if err != nil {
			return "", false, fmt.Errorf("invalid address %q: %w", v, err)
		}
		prefix = p.Masked()
	} else {
		a, err := netip.ParseAddr(v)
		if err != nil {
			return "", false, fmt.Errorf("invalid address %q: %w", v, err)
		}
		prefix = netip.PrefixFrom(a, a.BitLen())
	}
	if prefix.Bits() == 0 {
		return "", false, nil
	}
	return prefix.String(), true, nil
}

// normalizeMatch normalizes every term of m for attribute p, splitting
// comma-separated lists for multi-value attributes.
func normalizeMatch(p Param, m Match) (Match, error) {
	spec, _ := specFor(p)
	var out Match
	for _, t := range m {
		values := []string{t.Value}
		if spec.multi {
			values = strings.Split(t.Value, ",")
		}
		for _, v := range values {
			if spec.multi {
				v = strings.TrimSpace(v)
			}
			if v == "" {
				continue
			}
			nv, keep, err := normalizeValue(p, v)
			if err != nil {
				return nil, err
			}
			if !keep && !t.Negated {
				continue
			}
			if !keep {
				nv = v
			}
			out = append(out, Term{Value: nv, Negated: t.Negated})
		}
	}
	return out, nil
}
