package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plexsphere/plexfw/internal/manifest"
	"github.com/plexsphere/plexfw/internal/rule"
	"github.com/plexsphere/plexfw/internal/state"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the live managed rules as a rules file",
	Long: "Read the live rule set and print every managed rule in the rules file\n" +
		"format, or write it to --out. Unmanaged rules are not exported.",
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "write to this file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("plexfw export: %w", err)
	}
	logger := setupLogger(cfg.LogLevel)

	backends, err := selectBackends(cfg.Backend, logger)
	if err != nil {
		return fmt.Errorf("plexfw export: %w", err)
	}
	runner := newRunner()

	var declared []rule.DeclaredRule
	for _, family := range []rule.Family{rule.FamilyIPv4, rule.FamilyIPv6} {
		b, ok := backends[family]
		if !ok {
			continue
		}
		res, err := state.NewFetcher(b, runner, logger).Fetch()
		if err != nil {
			return fmt.Errorf("plexfw export: %w", err)
		}
		declared = append(declared, manifest.FromSnapshot(family, res.Snapshot)...)
	}

	if exportOut != "" {
		if err := manifest.Save(exportOut, declared); err != nil {
			return fmt.Errorf("plexfw export: %w", err)
		}
		logger.Info("rules exported", "path", exportOut, "rules", len(declared))
		return nil
	}
	data, err := manifest.Marshal(declared)
	if err != nil {
		return fmt.Errorf("plexfw export: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
