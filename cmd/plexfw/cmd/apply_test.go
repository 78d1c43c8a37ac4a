package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plexsphere/plexfw/internal/backend"
)

const liveDump = `*filter
:INPUT ACCEPT [0:0]
-A INPUT -p tcp -m multiport --dports 100 -m comment --comment "100 test" -j ACCEPT
-A INPUT -i lo -j ACCEPT
-A INPUT -p tcp -m multiport --dports 300 -m comment --comment "300 test" -j ACCEPT
COMMIT
`

const declaredRules = `
rules:
  - name: "200 test"
    proto: tcp
    dport: 200
    action: accept
`

var insertArgs = []interface{}{"iptables", "-t", "filter", "-I", "INPUT", "2", "-p", "tcp",
	"-m", "multiport", "--dports", "200", "-m", "comment", "--comment", "200 test", "-j", "ACCEPT"}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func configArgs(t *testing.T, cmd string) []string {
	t.Helper()
	return []string{cmd,
		"--config", writeFile(t, "config.yaml", "log_level: error\n"),
		"--rules", writeFile(t, "rules.yaml", declaredRules),
	}
}

func TestApply(t *testing.T) {
	resetFlags(t)
	runner := new(backend.MockCommandRunner)
	runner.On("Run", "iptables-save").Return([]byte(liveDump), nil)
	runner.On("Run", insertArgs...).Return([]byte{}, nil)
	useRunner(t, runner)

	out, err := execute(t, configArgs(t, "apply")...)
	require.NoError(t, err)
	assert.Contains(t, out, `+ [ipv4] filter/INPUT #2 "200 test"`)
	assert.Contains(t, out, "applied: 1 to insert")
	runner.AssertExpectations(t)
}

func TestApply_FailedRuleIsError(t *testing.T) {
	resetFlags(t)
	runner := new(backend.MockCommandRunner)
	runner.On("Run", "iptables-save").Return([]byte(liveDump), nil)
	runner.On("Run", insertArgs...).Return(nil, &backend.ExternalCommandError{
		Command:  "iptables",
		ExitCode: 4,
		Output:   "iptables: Resource temporarily unavailable.",
		Err:      errors.New("exit status 4"),
	})
	useRunner(t, runner)

	out, err := execute(t, configArgs(t, "apply")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 rules failed")
	assert.Contains(t, out, "Resource temporarily unavailable")
}

func TestPlan_DoesNotMutate(t *testing.T) {
	resetFlags(t)
	runner := new(backend.MockCommandRunner)
	runner.On("Run", "iptables-save").Return([]byte(liveDump), nil)
	useRunner(t, runner)

	out, err := execute(t, configArgs(t, "plan")...)
	require.NoError(t, err)
	assert.Contains(t, out, "planned: 1 to insert, 0 to update, 0 to delete, 0 failed")
	runner.AssertNumberOfCalls(t, "Run", 1)
}

func TestList(t *testing.T) {
	resetFlags(t)
	runner := new(backend.MockCommandRunner)
	runner.On("Run", "iptables-save").Return([]byte(liveDump), nil)
	useRunner(t, runner)

	out, err := execute(t, configArgs(t, "list")...)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "100 test")
	assert.Contains(t, lines[2], "-A INPUT -i lo -j ACCEPT")
	assert.Contains(t, lines[3], "300 test")
}

func TestList_ManagedOnly(t *testing.T) {
	resetFlags(t)
	runner := new(backend.MockCommandRunner)
	runner.On("Run", "iptables-save").Return([]byte(liveDump), nil)
	useRunner(t, runner)

	out, err := execute(t, append(configArgs(t, "list"), "--managed")...)
	require.NoError(t, err)
	assert.NotContains(t, out, "-i lo")
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 3)
}
