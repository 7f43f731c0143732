package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron"
	"github.com/spf13/cobra"

	"github.com/jordanhubbard/volition/internal/lock"
	"github.com/jordanhubbard/volition/internal/telemetry"
)

func newDaemonCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run scheduled cycles and maintenance until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(configPath)
		},
	}
}

func runDaemon(cfgPath string) error {
	eng, cfg, cleanup, err := buildEngine(cfgPath)
	if err != nil {
		return fail(err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTelemetry(ctx, "volition", cfg.Telemetry.Endpoint)
		if err != nil {
			log.Printf("[Daemon] Telemetry disabled: %v", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			log.Printf("[Daemon] Serving metrics on %s", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("[Daemon] Metrics server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	// Hot reload of drive overrides and tuning. Only the engine config is
	// swapped; schedules and transports keep their boot values.
	if cfgPath != "" {
		watcher, err := newConfigWatcher(cfgPath, eng)
		if err != nil {
			log.Printf("[Daemon] Config watch disabled: %v", err)
		} else {
			defer watcher.Close()
		}
	}

	c := cron.New()
	if err := c.AddFunc(cfg.Daemon.TickSchedule, func() {
		cycleCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()

		result, err := eng.TickWithSpawning(cycleCtx, cfg.Daemon.TickHours)
		switch {
		case errors.Is(err, lock.ErrHeld):
			log.Printf("[Daemon] Skipping cycle: %v", err)
		case err != nil:
			log.Printf("[Daemon] Cycle failed: %v", err)
		case result.Launched != nil:
			log.Printf("[Daemon] Cycle launched %s (session %s)", result.Launched.Drive, result.Launched.SessionID)
		}
	}); err != nil {
		return fail(err)
	}

	if err := c.AddFunc(cfg.Daemon.CleanupSchedule, func() {
		cleanupCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()

		cleaned, err := eng.CleanupStaleTriggers(cleanupCtx)
		if err != nil && !errors.Is(err, lock.ErrHeld) {
			log.Printf("[Daemon] Cleanup failed: %v", err)
		} else if len(cleaned) > 0 {
			log.Printf("[Daemon] Auto-satisfied stale triggers: %v", cleaned)
		}
	}); err != nil {
		return fail(err)
	}

	c.Start()
	defer c.Stop()

	log.Printf("[Daemon] Running (tick %s, cleanup %s)", cfg.Daemon.TickSchedule, cfg.Daemon.CleanupSchedule)
	<-ctx.Done()
	log.Printf("[Daemon] Shutting down")
	return nil
}
