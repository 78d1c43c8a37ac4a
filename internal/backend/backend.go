// Package backend selects the packet-filter engine and runs its commands.
package backend

import (
	"errors"
	"fmt"
	"os/exec"

	"github.com/plexsphere/plexfw/internal/rule"
)

// ErrNoBackend is returned by Select when no engine is usable for a family.
var ErrNoBackend = errors.New("backend: no usable packet-filter engine found")

// Backend is one packet-filter engine: the tool that dumps the current rules
// and the tool that applies mutations to them.
type Backend interface {
	// Name returns the engine's executable name, e.g. "iptables-nft".
	Name() string
	// Family returns the address family the engine manages.
	Family() rule.Family
	// Detect reports whether the engine is usable on this host.
	Detect() bool
	// DumpCommand returns the command line printing the current rules.
	DumpCommand() (string, []string)
	// MutationCommand wraps serialized rule arguments into a command line.
	MutationCommand(args []string) (string, []string)
}

// tool implements Backend for the iptables family of executables.
type tool struct {
	engine  Engine
	family  rule.Family
	command string
	save    string
	wait    bool

	lookPath func(string) (string, error)
	nftProbe func() bool
}

// Option customizes a backend created by New.
type Option func(*tool)

// WithWait makes mutations pass --wait.
func WithWait(wait bool) Option {
	return func(t *tool) { t.wait = wait }
}

// WithLookPath replaces exec.LookPath for executable probing.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(t *tool) { t.lookPath = fn }
}

// WithNFTProbe replaces the nf_tables availability probe.
func WithNFTProbe(fn func() bool) Option {
	return func(t *tool) { t.nftProbe = fn }
}

// New returns the backend of the given engine and family. engine must be
// EngineLegacy or EngineNFT.
func New(engine Engine, family rule.Family, opts ...Option) (Backend, error) {
	var prefix string
	switch family {
	case rule.FamilyIPv4:
		prefix = "iptables"
	case rule.FamilyIPv6:
		prefix = "ip6tables"
	default:
		return nil, fmt.Errorf("backend: unknown family %q", family)
	}

	t := &tool{
		engine:   engine,
		family:   family,
		lookPath: exec.LookPath,
		nftProbe: nfTablesAvailable,
	}
	switch engine {
	case EngineLegacy:
		t.command, t.save = prefix, prefix+"-save"
	case EngineNFT:
		t.command, t.save = prefix+"-nft", prefix+"-nft-save"
	default:
		return nil, fmt.Errorf("backend: engine %q has no executables", engine)
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *tool) Name() string        { return t.command }
func (t *tool) Family() rule.Family { return t.family }

// Detect checks that both executables are on PATH and, for the nf_tables
// engine, that the kernel subsystem answers.
func (t *tool) Detect() bool {
	if _, err := t.lookPath(t.command); err != nil {
		return false
	}
	if _, err := t.lookPath(t.save); err != nil {
		return false
	}
	if t.engine == EngineNFT && !t.nftProbe() {
		return false
	}
	return true
}

func (t *tool) DumpCommand() (string, []string) {
	return t.save, nil
}

func (t *tool) MutationCommand(args []string) (string, []string) {
	argv := make([]string, 0, len(args)+1)
	if t.wait {
		argv = append(argv, "--wait")
	}
	return t.command, append(argv, args...)
}
