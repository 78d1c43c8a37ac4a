package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels of a per-rule result.
const (
	OutcomeApplied = "applied"
	OutcomePlanned = "planned"
	OutcomeNoop    = "noop"
	OutcomeFailed  = "failed"
)

// Metrics holds the reconciliation instruments. Each instance owns its own
// registry so tests and multiple reconcilers do not collide.
type Metrics struct {
	registry *prometheus.Registry

	Cycles        *prometheus.CounterVec
	CycleDuration prometheus.Histogram
	Changes       *prometheus.CounterVec
	ParseWarnings prometheus.Counter
	ManagedRules  *prometheus.GaugeVec
}

// New creates the instruments on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "plexfw_reconcile_cycles_total",
			Help: "Reconciliation cycles by result",
		}, []string{"result"}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "plexfw_reconcile_duration_seconds",
			Help:    "Duration of reconciliation cycles",
			Buckets: prometheus.DefBuckets,
		}),
		Changes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "plexfw_rule_changes_total",
			Help: "Per-rule decisions by intent and outcome",
		}, []string{"family", "intent", "outcome"}),
		ParseWarnings: factory.NewCounter(prometheus.CounterOpts{
			Name: "plexfw_parse_warnings_total",
			Help: "Warnings recovered from while reading live rules",
		}),
		ManagedRules: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "plexfw_managed_rules",
			Help: "Managed rules present after the last cycle",
		}, []string{"family"}),
	}
}

// ObserveCycle records one completed cycle.
func (m *Metrics) ObserveCycle(d time.Duration, failed bool) {
	if m == nil {
		return
	}
	result := "ok"
	if failed {
		result = "failed"
	}
	m.Cycles.WithLabelValues(result).Inc()
	m.CycleDuration.Observe(d.Seconds())
}

// ObserveChange records the outcome of one rule decision.
func (m *Metrics) ObserveChange(family, intent, outcome string) {
	if m == nil {
		return
	}
	m.Changes.WithLabelValues(family, intent, outcome).Inc()
}

// AddParseWarnings counts warnings from a fetch.
func (m *Metrics) AddParseWarnings(n int) {
	if m == nil || n == 0 {
		return
	}
	m.ParseWarnings.Add(float64(n))
}

// SetManagedRules records the number of managed rules of family.
func (m *Metrics) SetManagedRules(family string, n int) {
	if m == nil {
		return
	}
	m.ManagedRules.WithLabelValues(family).Set(float64(n))
}

// Handler returns an http.Handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
