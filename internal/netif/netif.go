// Package netif checks whether network interfaces named by rules exist.
package netif

import (
	"fmt"
	"strings"
)

// Checker reports whether an interface exists on the host.
type Checker struct {
	lookup func(name string) (bool, error)
}

// NewChecker creates a Checker backed by the host's link table.
func NewChecker() *Checker {
	return &Checker{lookup: linkExists}
}

// NewCheckerFunc creates a Checker backed by lookup.
func NewCheckerFunc(lookup func(name string) (bool, error)) *Checker {
	return &Checker{lookup: lookup}
}

// Exists reports whether name is present. Wildcard names ending in "+"
// match interfaces that may appear later and are always reported present.
func (c *Checker) Exists(name string) (bool, error) {
	if name == "" || strings.HasSuffix(name, "+") {
		return true, nil
	}
	ok, err := c.lookup(name)
	if err != nil {
		return false, fmt.Errorf("netif: lookup %s: %w", name, err)
	}
	return ok, nil
}

// Missing returns the names in names that do not exist, in order.
func (c *Checker) Missing(names ...string) ([]string, error) {
	var out []string
	for _, n := range names {
		ok, err := c.Exists(n)
		if err != nil {
			return out, err
		}
		if !ok {
			out = append(out, n)
		}
	}
	return out, nil
}
