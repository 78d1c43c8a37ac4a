package reconcile

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plexsphere/plexfw/internal/rule"
	"github.com/plexsphere/plexfw/internal/state"
)

func TestPlan_InsertPositions(t *testing.T) {
	snap := liveSnapshot(t)

	tests := []struct {
		name string
		want int
	}{
		{"001 test", 1},
		{"101 test", 2},
		{"201 test", 3},
		{"301 test", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change, err := Plan(withDefaults(tcpRule(tt.name, "9")), snap)
			require.NoError(t, err)
			assert.Equal(t, KindInsert, change.Kind)
			assert.Equal(t, tt.want, change.Position)
			assert.Nil(t, change.Current)
		})
	}
}

func TestPlan_UpdateKeepsSlot(t *testing.T) {
	change, err := Plan(withDefaults(tcpRule("300 test", "301")), liveSnapshot(t))
	require.NoError(t, err)

	assert.Equal(t, KindUpdate, change.Kind)
	assert.Equal(t, 3, change.Position)
	assert.Equal(t, []string{"dport"}, change.Fields)
	assert.Equal(t, mutationArgs("-R", "3", "300 test", "301"), change.Args)
}

func TestPlan_EqualIsNoop(t *testing.T) {
	change, err := Plan(withDefaults(tcpRule("200 test", "200")), liveSnapshot(t))
	require.NoError(t, err)

	assert.Equal(t, KindNoop, change.Kind)
	assert.Empty(t, change.Args)
	require.NotNil(t, change.Current)
	assert.Equal(t, 1, change.Current.Index)
}

func TestPlan_ChainChangeUnsupported(t *testing.T) {
	d := tcpRule("200 test", "200")
	d.Chain = "OUTPUT"

	_, err := Plan(withDefaults(d), liveSnapshot(t))
	require.Error(t, err)

	var unsupported *rule.UnsupportedMutationError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "chain", unsupported.Field)
	assert.Equal(t, "INPUT", unsupported.From)
	assert.Equal(t, "OUTPUT", unsupported.To)
}

func TestPlan_AbsentDeletesByLine(t *testing.T) {
	d := rule.DeclaredRule{Name: "300 test", Ensure: rule.EnsureAbsent}

	change, err := Plan(withDefaults(d), liveSnapshot(t))
	require.NoError(t, err)

	assert.Equal(t, KindDelete, change.Kind)
	assert.Equal(t, mutationArgs("-D", "", "300 test", "300"), change.Args)
}

func TestPlan_AbsentMissingIsNoop(t *testing.T) {
	d := rule.DeclaredRule{Name: "400 test", Ensure: rule.EnsureAbsent}

	change, err := Plan(withDefaults(d), liveSnapshot(t))
	require.NoError(t, err)
	assert.Equal(t, KindNoop, change.Kind)
}

func TestPlan_MixedNegationFails(t *testing.T) {
	d := tcpRule("150 test", "79")
	d.Sport = rule.Values{"! 78", "79"}

	_, err := Plan(withDefaults(d), liveSnapshot(t))

	var negation *rule.InvalidNegationError
	require.True(t, errors.As(err, &negation))
	assert.Equal(t, []string{"79"}, negation.Values)
}

func dumpSnapshot(t *testing.T, rules ...string) state.Snapshot {
	t.Helper()
	dump := "*filter\n:INPUT ACCEPT [0:0]\n" + strings.Join(rules, "\n") + "\nCOMMIT\n"
	res, err := state.ParseDump(strings.NewReader(dump))
	require.NoError(t, err)
	return res.Snapshot
}

func TestPlan_StateOrderIsNoop(t *testing.T) {
	snap := dumpSnapshot(t,
		`-A INPUT -m state --state RELATED,ESTABLISHED -m comment --comment "010 related" -j ACCEPT`,
		`-A INPUT -m conntrack --ctstate RELATED,ESTABLISHED -m comment --comment "011 related" -j ACCEPT`,
	)

	d := rule.DeclaredRule{Name: "010 related", State: rule.Values{"ESTABLISHED", "RELATED"}, Action: "accept"}
	change, err := Plan(withDefaults(d), snap)
	require.NoError(t, err)
	assert.Equal(t, KindNoop, change.Kind)

	d = rule.DeclaredRule{Name: "011 related", CtState: rule.Values{"established", "related"}, Action: "accept"}
	change, err = Plan(withDefaults(d), snap)
	require.NoError(t, err)
	assert.Equal(t, KindNoop, change.Kind)

	d = rule.DeclaredRule{Name: "010 related", State: rule.Values{"ESTABLISHED"}, Action: "accept"}
	change, err = Plan(withDefaults(d), snap)
	require.NoError(t, err)
	assert.Equal(t, KindUpdate, change.Kind)
	assert.Equal(t, []string{"state"}, change.Fields)
}

func TestPlan_DefaultRejectWithIsNoop(t *testing.T) {
	snap := dumpSnapshot(t,
		`-A INPUT -p tcp -m comment --comment "900 reject" -j REJECT --reject-with icmp-port-unreachable`,
	)

	d := rule.DeclaredRule{Name: "900 reject", Proto: "tcp", Action: "reject"}
	change, err := Plan(withDefaults(d), snap)
	require.NoError(t, err)
	assert.Equal(t, KindNoop, change.Kind)

	d.RejectWith = "icmp-host-prohibited"
	change, err = Plan(withDefaults(d), snap)
	require.NoError(t, err)
	assert.Equal(t, KindUpdate, change.Kind)
	assert.Equal(t, []string{"reject"}, change.Fields)
}
