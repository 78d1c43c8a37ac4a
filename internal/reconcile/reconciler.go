// Package reconcile converges the live packet-filter rules on the declared
// ones.
package reconcile

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/plexsphere/plexfw/internal/backend"
	"github.com/plexsphere/plexfw/internal/metrics"
	"github.com/plexsphere/plexfw/internal/netif"
	"github.com/plexsphere/plexfw/internal/rule"
	"github.com/plexsphere/plexfw/internal/state"
)

// Source loads the declared rules for one cycle.
type Source func(ctx context.Context) ([]rule.DeclaredRule, error)

// Option configures optional collaborators of a Reconciler.
type Option func(*Reconciler)

// WithMetrics records cycle and per-rule outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// WithInterfaceChecker warns about declared interfaces missing on the host.
func WithInterfaceChecker(c *netif.Checker) Option {
	return func(r *Reconciler) { r.links = c }
}

// Reconciler decides and applies per-rule changes against the live rule
// set of each address family.
type Reconciler struct {
	backends  backend.Set
	runner    backend.CommandRunner
	cfg       Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
	links     *netif.Checker
	triggerCh chan struct{}
}

// NewReconciler creates a new Reconciler with the given configuration.
// Config defaults are applied automatically.
func NewReconciler(backends backend.Set, runner backend.CommandRunner, cfg Config, logger *slog.Logger, opts ...Option) *Reconciler {
	cfg.ApplyDefaults()
	r := &Reconciler{
		backends:  backends,
		runner:    runner,
		cfg:       cfg,
		logger:    logger.With("component", "reconcile"),
		triggerCh: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile runs one cycle over declared. Per-rule failures are recorded in
// the report and never stop other rules; the returned error is non-nil only
// when ctx ends the cycle early.
func (r *Reconciler) Reconcile(ctx context.Context, declared []rule.DeclaredRule) (*Report, error) {
	start := time.Now()
	report := &Report{CycleID: uuid.New().String(), DryRun: r.cfg.DryRun}
	logger := r.logger.With("cycle_id", report.CycleID)

	byFamily := make(map[rule.Family][]rule.DeclaredRule)
	for _, d := range declared {
		d.ApplyDefaults()
		if err := d.Validate(); err != nil {
			report.fail(d, Change{Kind: KindNoop}, err)
			continue
		}
		byFamily[d.Family] = append(byFamily[d.Family], d)
	}

	var err error
	for _, family := range []rule.Family{rule.FamilyIPv4, rule.FamilyIPv6} {
		rules := byFamily[family]
		if len(rules) == 0 {
			continue
		}
		if err = r.reconcileFamily(ctx, logger, family, rules, report); err != nil {
			break
		}
	}

	for _, res := range report.Results {
		r.metrics.ObserveChange(string(res.Family), string(res.Change.Kind), res.outcome())
	}
	r.metrics.ObserveCycle(time.Since(start), len(report.Failed()) > 0)

	logger.Info("reconciliation cycle completed",
		"rules", len(declared),
		"changed", report.Changed(),
		"failed", len(report.Failed()),
		"dry_run", report.DryRun,
		"duration", time.Since(start),
	)
	return report, err
}

func (r *Reconciler) reconcileFamily(ctx context.Context, logger *slog.Logger, family rule.Family, declared []rule.DeclaredRule, report *Report) error {
	logger = logger.With("family", family)

	b, err := r.backends.For(family)
	if err != nil {
		for _, d := range declared {
			report.fail(d, Change{Kind: KindNoop}, err)
		}
		return nil
	}

	fetched, err := state.NewFetcher(b, r.runner, logger).Fetch()
	if err != nil {
		logger.Error("fetching live rules failed", "error", err)
		for _, d := range declared {
			report.fail(d, Change{Kind: KindNoop}, err)
		}
		return nil
	}
	report.Warnings = append(report.Warnings, fetched.Warnings...)
	r.metrics.AddParseWarnings(len(fetched.Warnings))

	slices.SortStableFunc(declared, func(a, b rule.DeclaredRule) int {
		return cmp.Or(
			cmp.Compare(a.Table, b.Table),
			cmp.Compare(a.Chain, b.Chain),
			cmp.Compare(a.Priority(), b.Priority()),
			cmp.Compare(a.Name, b.Name),
		)
	})

	snap := fetched.Snapshot
	seen := make(map[string]bool, len(declared))
	for _, d := range declared {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := d.Table + "/" + d.Name
		if seen[key] {
			report.fail(d, Change{Kind: KindNoop}, fmt.Errorf("reconcile: %q declared more than once in table %s", d.Name, d.Table))
			continue
		}
		seen[key] = true

		snap = r.reconcileRule(logger, b, d, snap, report)
	}

	r.metrics.SetManagedRules(string(family), countManaged(snap))
	return nil
}

// reconcileRule plans and applies one declared rule and returns the view of
// the live rules after it.
func (r *Reconciler) reconcileRule(logger *slog.Logger, b backend.Backend, d rule.DeclaredRule, snap state.Snapshot, report *Report) state.Snapshot {
	logger = logger.With("table", d.Table, "chain", d.Chain, "rule", d.Name)

	change, err := Plan(d, snap)
	if err != nil {
		logger.Error("planning rule failed", "error", err)
		report.fail(d, change, err)
		return snap
	}
	if d.Ensure == rule.EnsurePresent {
		r.warnMissingInterfaces(logger, change.Desired)
	}
	if change.Kind == KindNoop {
		report.add(Result{Name: d.Name, Family: d.Family, Change: change})
		return snap
	}

	if r.cfg.DryRun {
		logger.Info("change planned", "intent", change.Kind, "position", change.Position)
		report.add(Result{Name: d.Name, Family: d.Family, Change: change})
		return snap.Apply(change.mutation())
	}

	name, argv := b.MutationCommand(change.Args)
	if _, err := r.runner.Run(name, argv...); err != nil {
		logger.Error("applying change failed", "intent", change.Kind, "position", change.Position, "error", err)
		report.fail(d, change, fmt.Errorf("reconcile: %s %q: %w", change.Kind, d.Name, err))
		return snap
	}
	logger.Info("change applied", "intent", change.Kind, "position", change.Position)
	report.add(Result{Name: d.Name, Family: d.Family, Change: change, Applied: true})
	return snap.Apply(change.mutation())
}

func (r *Reconciler) warnMissingInterfaces(logger *slog.Logger, desired rule.Rule) {
	if r.links == nil {
		return
	}
	var names []string
	for _, p := range []rule.Param{rule.ParamInIface, rule.ParamOutIface} {
		names = append(names, desired.Get(p).Values()...)
	}
	missing, err := r.links.Missing(names...)
	if err != nil {
		logger.Warn("checking interfaces failed", "error", err)
		return
	}
	for _, name := range missing {
		logger.Warn("interface does not exist", "interface", name)
	}
}

func countManaged(snap state.Snapshot) int {
	n := 0
	for _, k := range snap.Keys() {
		for _, r := range snap.Chain(k.Table, k.Chain) {
			if r.Managed() {
				n++
			}
		}
	}
	return n
}

// Trigger requests an immediate reconciliation cycle.
// Multiple rapid calls are coalesced into one extra cycle.
func (r *Reconciler) Trigger() {
	select {
	case r.triggerCh <- struct{}{}:
	default:
		// Already a trigger pending; coalesce.
	}
}

// Run starts the reconciliation loop. It blocks until ctx is cancelled.
// The first cycle runs immediately; subsequent cycles run at cfg.Interval
// or when Trigger is called. Every cycle reloads the declared rules from
// source.
func (r *Reconciler) Run(ctx context.Context, source Source) error {
	if source == nil {
		return errors.New("reconcile: source is nil")
	}

	r.logger.Info("reconciler started",
		"interval", r.cfg.Interval,
		"dry_run", r.cfg.DryRun,
	)

	// First cycle runs immediately.
	r.runCycle(ctx, source)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return ctx.Err()

		case <-ticker.C:
			r.runCycle(ctx, source)

		case <-r.triggerCh:
			r.runCycle(ctx, source)
			// Reset the ticker after a triggered cycle.
			ticker.Reset(r.cfg.Interval)
		}
	}
}

// runCycle performs a single cycle of the loop: load → reconcile.
func (r *Reconciler) runCycle(ctx context.Context, source Source) {
	declared, err := safeLoad(ctx, source)
	if err != nil {
		// Don't log if the context was cancelled (graceful shutdown).
		if ctx.Err() == nil {
			r.logger.Warn("loading declared rules failed", "error", err)
		}
		return
	}

	report, err := r.Reconcile(ctx, declared)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Warn("reconciliation cycle aborted", "error", err)
		}
		return
	}
	for _, res := range report.Failed() {
		r.logger.Warn("rule not converged",
			"cycle_id", report.CycleID,
			"rule", res.Name,
			"error", res.Err,
		)
	}
}

// safeLoad calls source with panic recovery.
func safeLoad(ctx context.Context, source Source) (declared []rule.DeclaredRule, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("reconcile: source panicked: %v\n%s", v, debug.Stack())
		}
	}()
	return source(ctx)
}
