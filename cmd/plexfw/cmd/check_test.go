package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_ValidRules(t *testing.T) {
	resetFlags(t)

	out, err := execute(t, configArgs(t, "check")...)
	require.NoError(t, err)
	assert.Contains(t, out, "1 rules ok")
}

func TestCheck_ListsInvalidRules(t *testing.T) {
	resetFlags(t)
	rules := writeFile(t, "rules.yaml", `
rules:
  - name: "no priority"
    action: accept
  - name: "100 ok"
    action: accept
  - name: "200 bad port"
    proto: tcp
    dport: http
    action: accept
`)

	_, err := execute(t, "check", "--config", writeFile(t, "config.yaml", "log_level: error\n"), "--rules", rules)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"no priority"`)
	assert.Contains(t, err.Error(), `"200 bad port"`)
	assert.NotContains(t, err.Error(), `"100 ok"`)
}
