package netif

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeLinks(present ...string) func(string) (bool, error) {
	return func(name string) (bool, error) {
		for _, p := range present {
			if p == name {
				return true, nil
			}
		}
		return false, nil
	}
}

func TestExists(t *testing.T) {
	c := NewCheckerFunc(fakeLinks("lo", "eth0"))

	ok, err := c.Exists("eth0")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Exists("eth9")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExists_Wildcard(t *testing.T) {
	c := NewCheckerFunc(func(string) (bool, error) {
		t.Fatal("lookup must not be called for wildcards")
		return false, nil
	})

	ok, err := c.Exists("veth+")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExists_LookupError(t *testing.T) {
	c := NewCheckerFunc(func(string) (bool, error) { return false, errors.New("netlink socket closed") })

	_, err := c.Exists("eth0")
	assert.ErrorContains(t, err, "netif: lookup eth0")
}

func TestMissing(t *testing.T) {
	c := NewCheckerFunc(fakeLinks("lo"))

	missing, err := c.Missing("lo", "wg0", "br+", "eth1")
	require.NoError(t, err)
	assert.Equal(t, []string{"wg0", "eth1"}, missing)
}

func TestNewChecker_Loopback(t *testing.T) {
	ok, err := NewChecker().Exists("lo")
	if err != nil {
		t.Skipf("link table unavailable: %v", err)
	}
	if !ok {
		t.Skip("no loopback interface named lo")
	}
}
