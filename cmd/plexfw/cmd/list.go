package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/plexsphere/plexfw/internal/rule"
	"github.com/plexsphere/plexfw/internal/state"
)

var listManagedOnly bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the live rules",
	Long:  "Read the live rule set of every selected engine and print it chain by chain.",
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listManagedOnly, "managed", false, "only show rules named \"<priority> <description>\"")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("plexfw list: %w", err)
	}
	logger := setupLogger(cfg.LogLevel)

	backends, err := selectBackends(cfg.Backend, logger)
	if err != nil {
		return fmt.Errorf("plexfw list: %w", err)
	}
	runner := newRunner()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FAMILY\tTABLE\tCHAIN\tPOS\tNAME\tRULE")
	for _, family := range []rule.Family{rule.FamilyIPv4, rule.FamilyIPv6} {
		b, ok := backends[family]
		if !ok {
			continue
		}
		res, err := state.NewFetcher(b, runner, logger).Fetch()
		if err != nil {
			return fmt.Errorf("plexfw list: %w", err)
		}
		for _, key := range res.Snapshot.Keys() {
			for i, r := range res.Snapshot.Chain(key.Table, key.Chain) {
				if listManagedOnly && !r.Managed() {
					continue
				}
				name := r.Name
				if !r.Managed() {
					name = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", family, key.Table, key.Chain, i+1, name, r.Line)
			}
		}
	}
	return w.Flush()
}
