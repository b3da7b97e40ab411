// Package main runs the trigger service: the scrape HTTP API, the optional
// cron schedule and the metrics endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"rfpsonar/internal/browser"
	"rfpsonar/internal/config"
	"rfpsonar/internal/extract"
	"rfpsonar/internal/httpapi"
	"rfpsonar/internal/logger"
	"rfpsonar/internal/metrics"
	"rfpsonar/internal/models"
	"rfpsonar/internal/portal"
	"rfpsonar/internal/runner"
	"rfpsonar/internal/salesforce"
	"rfpsonar/internal/scheduler"
)

func main() {
	// 1. Define Command-Line Flags
	// ----------------------------
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	addr := flag.String("addr", "", "Listen address override (default: server.addr from config)")

	flag.Parse()

	// 2. Load Configuration
	// ---------------------
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Config error: %v\n", err)
		os.Exit(1)
	}

	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	log := newLogger(cfg)

	log.Info("🚀 Starting trigger service")
	log.Info(fmt.Sprintf("📍 Store: %s", cfg.RecordStore.InstanceURL))

	// 3. Build the Pipeline
	// ---------------------
	orch := buildOrchestrator(cfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Trigger API
	// --------------
	handler := httpapi.NewHandler(cfg, orch, log)
	srv := httpapi.NewServer(&cfg.Server, handler)

	go func() {
		log.Info(fmt.Sprintf("📡 Listening on %s", cfg.Server.Addr))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(fmt.Sprintf("❌ HTTP server error: %v", err))
			os.Exit(1)
		}
	}()

	// 5. Metrics Endpoint
	// -------------------
	if cfg.Server.MetricsAddr != "" {
		go func() {
			log.Info(fmt.Sprintf("📈 Metrics on %s", cfg.Server.MetricsAddr))

			if err := metrics.Serve(cfg.Server.MetricsAddr); err != nil {
				log.Error(fmt.Sprintf("⚠️  Metrics server error: %v", err))
			}
		}()
	}

	// 6. Schedule
	// -----------
	var sched *scheduler.Scheduler
	if cfg.Schedule.Cron != "" {
		sched = scheduler.New(cfg.Schedule.Cron, func(ctx context.Context) map[string]models.SyncResult {
			return orch.RunBatch(ctx, nil)
		}, log)

		if err := sched.Start(ctx); err != nil {
			log.Error(fmt.Sprintf("❌ Scheduler error: %v", err))
			os.Exit(1)
		}
	}

	// 7. Graceful Shutdown
	// --------------------
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GetShutdownTimeout())
	defer shutdownCancel()

	if sched != nil {
		select {
		case <-sched.Stop().Done():
		case <-shutdownCtx.Done():
			log.Warn("⚠️  Scheduled batch did not finish before the deadline")
		}
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(fmt.Sprintf("⚠️  Shutdown error: %v", err))
	}

	log.Info("Stopped")
}

func newLogger(cfg *config.Config) *logger.Logger {
	return logger.NewLoggerWithOptions(logger.Options{
		Level:          cfg.Logging.Level,
		Format:         cfg.Logging.Format,
		File:           cfg.Logging.File,
		FileMaxSizeMB:  cfg.Logging.FileMaxSizeMB,
		FileMaxBackups: cfg.Logging.FileMaxBackups,
	})
}

// buildOrchestrator wires the scrape-and-sync pipeline. Every adapter run
// gets a fresh session so cookies never leak between jurisdictions.
func buildOrchestrator(cfg *config.Config, log *logger.Logger) *runner.Orchestrator {
	factory := func(ctx context.Context) (browser.Session, error) {
		return browser.NewHTTPSession(browser.NewFetcherWithConfig(&cfg.Run.Retry)), nil
	}

	pipeline := extract.NewPipeline(log)
	registry := portal.NewRegistry(pipeline, log)
	driver := portal.NewDriver(factory, cfg.Run.GetPageTimeout(), log)
	client := salesforce.NewRESTClient(&cfg.RecordStore, log)

	return runner.New(cfg, registry, driver, client, log)
}
