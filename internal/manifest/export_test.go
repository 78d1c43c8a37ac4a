package manifest

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plexsphere/plexfw/internal/rule"
	"github.com/plexsphere/plexfw/internal/state"
)

const dump = `*nat
:PREROUTING ACCEPT [0:0]
-A PREROUTING -i eth0 -p tcp -m tcp --dport 80 -m comment --comment "050 dnat web" -j DNAT --to-destination 10.0.0.5:8080
COMMIT
*filter
:INPUT ACCEPT [0:0]
-A INPUT -i lo -j ACCEPT
-A INPUT -p tcp -m multiport --dports 22 -m comment --comment "100 ssh" -j ACCEPT
-A INPUT -p udp -m multiport ! --dports 53,123 -m comment --comment "200 no dns" -j DROP
COMMIT
`

func snapshot(t *testing.T) state.Snapshot {
	t.Helper()
	res, err := state.ParseDump(strings.NewReader(dump))
	require.NoError(t, err)
	return res.Snapshot
}

func TestFromSnapshot_SkipsUnmanaged(t *testing.T) {
	rules := FromSnapshot(rule.FamilyIPv4, snapshot(t))

	require.Len(t, rules, 3)
	assert.Equal(t, "100 ssh", rules[0].Name)
	assert.Equal(t, "200 no dns", rules[1].Name)
	assert.Equal(t, rule.Values{"! 53", "! 123"}, rules[1].Dport)
	assert.Equal(t, "050 dnat web", rules[2].Name)
	assert.Equal(t, "10.0.0.5:8080", rules[2].ToDest)
}

func TestSave_LoadsBack(t *testing.T) {
	snap := snapshot(t)
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, Save(path, FromSnapshot(rule.FamilyIPv4, snap)))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, Validate(loaded))
	require.Len(t, loaded, 3)

	for _, d := range loaded {
		live, ok := snap.FindByName(d.Table, d.Name)
		require.True(t, ok, d.Name)
		declared, err := d.Rule()
		require.NoError(t, err)
		assert.True(t, live.Equal(declared), "%s: %v", d.Name, live.Diff(declared))
	}
}
