package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/plexsphere/plexfw/internal/agent"
	"github.com/plexsphere/plexfw/internal/manifest"
	"github.com/plexsphere/plexfw/internal/netif"
	"github.com/plexsphere/plexfw/internal/reconcile"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Converge the live rules on the declared rules once",
	Long: "Read the declared rules, compare them with the live rule set and insert,\n" +
		"replace or delete rules until they match. Exits non-zero if any rule failed.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runOnce(cmd, "apply", false)
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the changes apply would make",
	Long:  "Compute the changes apply would make without touching the live rule set.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runOnce(cmd, "plan", true)
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(planCmd)
}

func runOnce(cmd *cobra.Command, name string, dryRun bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("plexfw %s: %w", name, err)
	}
	if dryRun {
		cfg.Reconcile.DryRun = true
	}
	logger := setupLogger(cfg.LogLevel)

	declared, err := manifest.Load(cfg.RulesFile)
	if err != nil {
		return fmt.Errorf("plexfw %s: %w", name, err)
	}

	reconciler, err := newReconciler(cfg, logger)
	if err != nil {
		return fmt.Errorf("plexfw %s: %w", name, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	report, err := reconciler.Reconcile(ctx, declared)
	if err != nil {
		return fmt.Errorf("plexfw %s: %w", name, err)
	}
	if err := reconcile.RenderPlan(cmd.OutOrStdout(), report); err != nil {
		return fmt.Errorf("plexfw %s: %w", name, err)
	}
	if failed := report.Failed(); len(failed) > 0 {
		return fmt.Errorf("plexfw %s: %d of %d rules failed", name, len(failed), len(report.Results))
	}
	return nil
}

// newReconciler selects the backends and builds a reconciler for cfg.
func newReconciler(cfg *agent.AgentConfig, logger *slog.Logger, opts ...reconcile.Option) (*reconcile.Reconciler, error) {
	backends, err := selectBackends(cfg.Backend, logger)
	if err != nil {
		return nil, err
	}
	opts = append(opts, reconcile.WithInterfaceChecker(netif.NewChecker()))
	return reconcile.NewReconciler(backends, newRunner(), cfg.Reconcile, logger, opts...), nil
}
