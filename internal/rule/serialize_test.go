package rule

import (
	"errors"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func declared(t *testing.T, d DeclaredRule) Rule {
	t.Helper()
	d.ApplyDefaults()
	r, err := d.Rule()
	require.NoError(t, err)
	return r
}

func TestSerialize_Insert(t *testing.T) {
	r := declared(t, DeclaredRule{
		Name:   "100 test",
		Source: "8.0.0.2",
		Proto:  "tcp",
		Port:   Values{"100"},
		Action: "accept",
	})

	args, err := Serialize(r, IntentInsert, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"-t", "filter", "-I", "INPUT", "1",
		"-s", "8.0.0.2/32", "-p", "tcp",
		"-m", "multiport", "--ports", "100",
		"-m", "comment", "--comment", "100 test",
		"-j", "ACCEPT",
	}, args)
}

func TestSerialize_UpdateUsesReplace(t *testing.T) {
	r := declared(t, DeclaredRule{Name: "300 test", Action: "drop"})

	args, err := Serialize(r, IntentUpdate, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"-t", "filter", "-R", "INPUT", "3", "-m", "comment", "--comment", "300 test", "-j", "DROP"}, args)
}

func TestSerialize_InvalidPosition(t *testing.T) {
	r := declared(t, DeclaredRule{Name: "300 test", Action: "drop"})

	_, err := Serialize(r, IntentInsert, 0)
	require.Error(t, err)
}

func TestSerialize_DeleteFetchedRuleUsesLine(t *testing.T) {
	line := "-A INPUT -s 1.1.1.1 -d 1.1.1.1 -p tcp -m multiport --dports 7061,7062 -m multiport --sports 7061,7062 -j ACCEPT"
	r, _ := Parse(line, TableFilter, 0)

	args, err := Serialize(r, IntentDelete, 0)
	require.NoError(t, err)
	assert.Equal(t, strings.Replace(line, "-A", "-t filter -D", 1), strings.Join(args, " "))
}

func TestSerialize_DeleteDeclaredRuleBuildsSpec(t *testing.T) {
	r := declared(t, DeclaredRule{Name: "100 test", Proto: "udp", Action: "accept"})

	args, err := Serialize(r, IntentDelete, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"-t", "filter", "-D", "INPUT", "-p", "udp", "-m", "comment", "--comment", "100 test", "-j", "ACCEPT"}, args)
}

func TestSerialize_MixedNegation(t *testing.T) {
	r := declared(t, DeclaredRule{
		Name:        "040 partial invert",
		Chain:       "nova-compute-FORWARD",
		Source:      "0.0.0.0/32",
		Destination: "255.255.255.255/32",
		Sport:       Values{"! 78", "79"},
		Dport:       Values{"77", "! 76"},
		Proto:       "udp",
		Action:      "accept",
	})

	_, err := Serialize(r, IntentInsert, 1)
	require.Error(t, err)

	var negErr *InvalidNegationError
	require.True(t, errors.As(err, &negErr))
	assert.Equal(t, ParamSport, negErr.Param)
	assert.Equal(t, []string{"79"}, negErr.Values)
	assert.Contains(t, err.Error(), "'79' is not prefixed")
}

func TestSerialize_MixedNegationListsEveryPlainValue(t *testing.T) {
	r := declared(t, DeclaredRule{
		Name:   "041 partial invert",
		Proto:  "tcp",
		Dport:  Values{"! 22", "80", "443"},
		Action: "accept",
	})

	_, err := Serialize(r, IntentUpdate, 2)

	var negErr *InvalidNegationError
	require.ErrorAs(t, err, &negErr)
	assert.Equal(t, []string{"80", "443"}, negErr.Values)
}

func TestSerialize_TargetOptionCannotBeNegated(t *testing.T) {
	r := Rule{Table: TableFilter, Chain: "INPUT", Name: "100 x", Jump: "LOG"}
	r.Set(ParamLogPrefix, Match{{Value: "x", Negated: true}})

	_, err := Serialize(r, IntentInsert, 1)
	require.Error(t, err)
}

var roundTripRules = []DeclaredRule{
	{Name: "100 allow ssh", Source: "10.0.0.0/8", Proto: "tcp", Dport: Values{"22"}, Action: "accept"},
	{Name: "200 drop bad", Family: FamilyIPv6, Source: "! 2001:db8::/32", Proto: "ipv6-icmp", ICMP: "128", Action: "drop"},
	{Name: "300 log new", State: Values{"NEW", "established"}, Jump: "LOG", LogPrefix: "NEW: "},
	{Name: "050 dnat web", Table: TableNAT, Chain: "PREROUTING", InIface: "eth0", Proto: "tcp", Dport: Values{"80"}, Jump: "DNAT", ToDest: "10.0.0.5:8080"},
	{Name: "400 range", Proto: "udp", Sport: Values{"! 53", "! 123"}, Dport: Values{"1000:2000"}, Action: "accept"},
	{Name: "500 reject", OutIface: "! lo", CtState: Values{"INVALID"}, Action: "reject", RejectWith: "icmp-port-unreachable"},
}

func TestSerialize_RoundTrip(t *testing.T) {
	for _, d := range roundTripRules {
		t.Run(d.Name, func(t *testing.T) {
			want := declared(t, d)

			args, err := Serialize(want, IntentInsert, 7)
			require.NoError(t, err)
			require.Equal(t, []string{"-t", want.Table, "-I", want.Chain, "7"}, args[:5])

			quoted := []string{"-A", want.Chain}
			for _, a := range args[5:] {
				quoted = append(quoted, quote(a))
			}
			got, warnings := Parse(strings.Join(quoted, " "), want.Table, 0)
			require.Empty(t, warnings)
			assert.True(t, want.Equal(got), "diff: %v", want.Diff(got))
		})
	}
}

func TestSerialize_Golden(t *testing.T) {
	positions := []int{1, 2, 5, 1, 1, 4}
	intents := []Intent{IntentInsert, IntentUpdate, IntentInsert, IntentInsert, IntentInsert, IntentUpdate}

	var b strings.Builder
	for i, d := range roundTripRules {
		args, err := Serialize(declared(t, d), intents[i], positions[i])
		require.NoError(t, err)
		quoted := make([]string, len(args))
		for j, a := range args {
			quoted[j] = quote(a)
		}
		b.WriteString(strings.Join(quoted, " "))
		b.WriteString("\n")
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "serialize", []byte(b.String()))
}

func TestFormatLine(t *testing.T) {
	r := declared(t, DeclaredRule{Name: "100 allow ssh", Proto: "tcp", Dport: Values{"22"}, Action: "accept"})

	line, err := FormatLine(r)
	require.NoError(t, err)
	assert.Equal(t, `-A INPUT -p tcp -m multiport --dports 22 -m comment --comment "100 allow ssh" -j ACCEPT`, line)
}
