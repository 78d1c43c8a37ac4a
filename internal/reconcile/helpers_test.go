package reconcile

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/plexsphere/plexfw/internal/backend"
	"github.com/plexsphere/plexfw/internal/rule"
	"github.com/plexsphere/plexfw/internal/state"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// liveDump holds three managed rules "100 test", "200 test" and "300 test"
// in filter/INPUT.
const liveDump = `*filter
:INPUT ACCEPT [0:0]
:FORWARD ACCEPT [0:0]
:OUTPUT ACCEPT [0:0]
-A INPUT -p tcp -m multiport --dports 100 -m comment --comment "100 test" -j ACCEPT
-A INPUT -p tcp -m multiport --dports 200 -m comment --comment "200 test" -j ACCEPT
-A INPUT -p tcp -m multiport --dports 300 -m comment --comment "300 test" -j ACCEPT
COMMIT
`

func ipv4Set(t *testing.T) backend.Set {
	t.Helper()
	b, err := backend.New(backend.EngineLegacy, rule.FamilyIPv4)
	require.NoError(t, err)
	return backend.Set{rule.FamilyIPv4: b}
}

func liveSnapshot(t *testing.T) state.Snapshot {
	t.Helper()
	res, err := state.ParseDump(strings.NewReader(liveDump))
	require.NoError(t, err)
	return res.Snapshot
}

// tcpRule declares a present ACCEPT rule for a single destination port.
func tcpRule(name, port string) rule.DeclaredRule {
	return rule.DeclaredRule{
		Name:   name,
		Proto:  "tcp",
		Dport:  rule.Values{port},
		Action: "accept",
	}
}

func withDefaults(d rule.DeclaredRule) rule.DeclaredRule {
	d.ApplyDefaults()
	return d
}

// expectRun registers an expectation for one command invocation.
func expectRun(m *backend.MockCommandRunner, name string, args ...string) *mock.Call {
	callArgs := make([]interface{}, 0, len(args)+1)
	callArgs = append(callArgs, name)
	for _, a := range args {
		callArgs = append(callArgs, a)
	}
	return m.On("Run", callArgs...)
}

// mutationArgs is the argument vector of op on tcpRule(name, port).
func mutationArgs(op, pos, name, port string) []string {
	args := []string{"-t", "filter", op, "INPUT"}
	if pos != "" {
		args = append(args, pos)
	}
	return append(args, "-p", "tcp", "-m", "multiport", "--dports", port,
		"-m", "comment", "--comment", name, "-j", "ACCEPT")
}
