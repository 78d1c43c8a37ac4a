package reconcile

import (
	"errors"

	"github.com/plexsphere/plexfw/internal/metrics"
	"github.com/plexsphere/plexfw/internal/rule"
)

// Result is the outcome for one declared rule.
type Result struct {
	Name   string
	Family rule.Family
	Change Change

	// Applied is set once the mutation ran successfully.
	Applied bool

	// Err is the hard failure that stopped this rule, if any.
	Err error
}

func (r Result) outcome() string {
	switch {
	case r.Err != nil:
		return metrics.OutcomeFailed
	case r.Applied:
		return metrics.OutcomeApplied
	case r.Change.Kind == KindNoop:
		return metrics.OutcomeNoop
	default:
		return metrics.OutcomePlanned
	}
}

// Report collects the results of one reconciliation cycle.
type Report struct {
	CycleID string
	DryRun  bool
	Results []Result

	// Warnings are problems recovered from while reading live rules.
	Warnings []error
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
}

func (r *Report) fail(d rule.DeclaredRule, change Change, err error) {
	r.add(Result{Name: d.Name, Family: d.Family, Change: change, Err: err})
}

// Failed returns the results that ended in a hard failure.
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Changed returns the number of non-noop decisions that did not fail.
func (r *Report) Changed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil && res.Change.Kind != KindNoop {
			n++
		}
	}
	return n
}

// Err joins the failures of the cycle, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, res.Err)
	}
	return errors.Join(errs...)
}
