package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/plexsphere/plexfw/internal/manifest"
	"github.com/plexsphere/plexfw/internal/metrics"
	"github.com/plexsphere/plexfw/internal/reconcile"
	"github.com/plexsphere/plexfw/internal/rule"
)

// drainTimeout is the maximum time for graceful shutdown.
const drainTimeout = 10 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the live rules converged",
	Long: "Reconcile the declared rules periodically until interrupted. SIGHUP\n" +
		"triggers an immediate cycle. The rules file is re-read on every cycle.",
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("plexfw watch: %w", err)
	}
	logger := setupLogger(cfg.LogLevel)

	logger.Info("starting plexfw",
		"version", buildVersion,
		"rules_file", cfg.RulesFile,
		"interval", cfg.Reconcile.Interval,
	)

	m := metrics.New()
	reconciler, err := newReconciler(cfg, logger, reconcile.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("plexfw watch: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	var wg sync.WaitGroup

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				logger.Info("reload requested")
				reconciler.Trigger()
			}
		}
	}()

	var srv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv = &http.Server{Addr: cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("metrics endpoint listening", "addr", cfg.Metrics.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics endpoint stopped", "error", err)
			}
		}()
	}

	source := func(context.Context) ([]rule.DeclaredRule, error) {
		return manifest.Load(cfg.RulesFile)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := reconciler.Run(ctx, source); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("reconciler stopped", "error", err)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	logger.Info("shutting down", "reason", ctx.Err())

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics endpoint shutdown failed", "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		// All goroutines exited cleanly.
	case <-time.After(drainTimeout):
		logger.Warn("drain timeout exceeded, forcing exit")
	}

	logger.Info("plexfw stopped")
	return nil
}
