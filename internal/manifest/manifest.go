// Package manifest loads declared rules from a YAML file.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/plexsphere/plexfw/internal/rule"
)

// Manifest is the document layout of a rules file.
type Manifest struct {
	Rules []rule.DeclaredRule `yaml:"rules"`
}

// Load reads the rules file at path. Defaults are applied to every rule but
// rules are not validated; invalid rules are reported per rule by the
// reconciler.
func Load(path string) ([]rule.DeclaredRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	rules, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("manifest: %s: %w", path, err)
	}
	return rules, nil
}

// Parse decodes a rules document. Unknown keys are rejected so typos in
// attribute names do not silently widen a rule.
func Parse(data []byte) ([]rule.DeclaredRule, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse: %w", err)
	}
	for i := range m.Rules {
		m.Rules[i].ApplyDefaults()
	}
	return m.Rules, nil
}

// Validate checks every rule and returns all failures joined.
func Validate(rules []rule.DeclaredRule) error {
	var errs []error
	for i := range rules {
		if err := rules[i].Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
