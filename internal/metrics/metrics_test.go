package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveChange(t *testing.T) {
	m := New()
	m.ObserveChange("ipv4", "insert", OutcomeApplied)
	m.ObserveChange("ipv4", "insert", OutcomeApplied)
	m.ObserveChange("ipv6", "delete", OutcomeFailed)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Changes.WithLabelValues("ipv4", "insert", OutcomeApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Changes.WithLabelValues("ipv6", "delete", OutcomeFailed)))
}

func TestObserveCycle(t *testing.T) {
	m := New()
	m.ObserveCycle(20*time.Millisecond, false)
	m.ObserveCycle(time.Second, true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Cycles.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Cycles.WithLabelValues("failed")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveCycle(time.Second, false)
	m.ObserveChange("ipv4", "insert", OutcomeApplied)
	m.AddParseWarnings(3)
	m.SetManagedRules("ipv4", 1)
}

func TestHandler(t *testing.T) {
	m := New()
	m.AddParseWarnings(3)
	m.SetManagedRules("ipv4", 7)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "plexfw_parse_warnings_total 3")
	assert.Contains(t, string(body), `plexfw_managed_rules{family="ipv4"} 7`)
}
