package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plexsphere/plexfw/internal/manifest"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the declared rules file",
	Long: "Parse and validate every declared rule without reading or touching the\n" +
		"live rule set. Exits non-zero listing every invalid rule.",
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("plexfw check: %w", err)
	}

	declared, err := manifest.Load(cfg.RulesFile)
	if err != nil {
		return fmt.Errorf("plexfw check: %w", err)
	}
	if err := manifest.Validate(declared); err != nil {
		return fmt.Errorf("plexfw check: %s:\n%w", cfg.RulesFile, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rules ok\n", cfg.RulesFile, len(declared))
	return nil
}
