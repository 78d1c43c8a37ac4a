package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plexsphere/plexfw/internal/backend"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List the packet-filter engines available on this host",
	RunE:  runBackends,
}

func init() {
	rootCmd.AddCommand(backendsCmd)
}

func runBackends(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	found := backend.Probe()
	if len(found) == 0 {
		return fmt.Errorf("plexfw backends: %w", backend.ErrNoBackend)
	}
	for _, b := range found {
		dump, _ := b.DumpCommand()
		fmt.Fprintf(w, "%-14s %-5s dump: %s\n", b.Name(), b.Family(), dump)
	}
	return nil
}
