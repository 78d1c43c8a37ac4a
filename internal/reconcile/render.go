package reconcile

import (
	"fmt"
	"io"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/plexsphere/plexfw/internal/rule"
)

// RenderPlan writes one line per change of report followed by a summary.
// Updates also get a unified diff of the live and declared rule.
func RenderPlan(w io.Writer, report *Report) error {
	var inserts, updates, deletes, failed int
	for _, res := range report.Results {
		ch := res.Change
		where := fmt.Sprintf("[%s] %s/%s", res.Family, ch.Desired.Table, ch.Desired.Chain)

		switch {
		case res.Err != nil:
			failed++
			if _, err := fmt.Fprintf(w, "! %q: %v\n", res.Name, res.Err); err != nil {
				return err
			}
			continue
		case ch.Kind == KindNoop:
			continue
		case ch.Kind == KindInsert:
			inserts++
			if _, err := fmt.Fprintf(w, "+ %s #%d %q\n", where, ch.Position, res.Name); err != nil {
				return err
			}
		case ch.Kind == KindUpdate:
			updates++
			if _, err := fmt.Fprintf(w, "~ %s #%d %q (%s)\n", where, ch.Position, res.Name, strings.Join(ch.Fields, ", ")); err != nil {
				return err
			}
			if err := writeRuleDiff(w, *ch.Current, ch.Desired); err != nil {
				return err
			}
		case ch.Kind == KindDelete:
			deletes++
			where = fmt.Sprintf("[%s] %s/%s", res.Family, ch.Current.Table, ch.Current.Chain)
			if _, err := fmt.Fprintf(w, "- %s %q\n", where, res.Name); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "    %s\n", rule.JoinArgs(ch.Args)); err != nil {
			return err
		}
	}

	verb := "applied"
	if report.DryRun {
		verb = "planned"
	}
	_, err := fmt.Fprintf(w, "%s: %d to insert, %d to update, %d to delete, %d failed\n",
		verb, inserts, updates, deletes, failed)
	return err
}

func writeRuleDiff(w io.Writer, current, desired rule.Rule) error {
	from, err := rule.FormatLine(current)
	if err != nil {
		return err
	}
	to, err := rule.FormatLine(desired)
	if err != nil {
		return err
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(from),
		B:        difflib.SplitLines(to),
		FromFile: "live",
		ToFile:   "declared",
		Context:  0,
	})
	if err != nil {
		return err
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "    %s", line); err != nil {
			return err
		}
	}
	return nil
}
