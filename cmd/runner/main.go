// Package main provides the one-shot runner that scrapes procurement portals
// and syncs new opportunities into the record store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rfpsonar/internal/browser"
	"rfpsonar/internal/config"
	"rfpsonar/internal/extract"
	"rfpsonar/internal/logger"
	"rfpsonar/internal/models"
	"rfpsonar/internal/portal"
	"rfpsonar/internal/report"
	"rfpsonar/internal/runner"
	"rfpsonar/internal/salesforce"
)

func main() {
	// 1. Define Command-Line Flags
	// ----------------------------
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	jurisdiction := flag.String("jurisdiction", "", "Run a single jurisdiction by id (default: all enabled)")
	listOnly := flag.Bool("list", false, "List configured jurisdictions and exit")

	flag.Parse()

	// 2. Load Configuration
	// ---------------------
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Config error: %v\n", err)
		os.Exit(1)
	}

	if *listOnly {
		printJurisdictions(cfg)
		return
	}

	log := newLogger(cfg)

	log.Info("🚀 Starting procurement sync run")
	log.Info(fmt.Sprintf("📍 Store: %s", cfg.RecordStore.InstanceURL))

	// 3. Build the Pipeline
	// ---------------------
	orch := buildOrchestrator(cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Run
	// ------
	started := time.Now()

	var results map[string]models.SyncResult
	if *jurisdiction != "" {
		results = map[string]models.SyncResult{
			*jurisdiction: orch.RunJurisdiction(ctx, *jurisdiction),
		}
	} else {
		results = orch.RunBatch(ctx, nil)
	}

	// 5. Final Report
	// ---------------
	totals := models.Summarize(results)
	log.Info("✨ Run complete")

	fmt.Println()
	fmt.Print(report.RunTable(results))
	fmt.Printf("\nTotal duration: %v\n", time.Since(started).Round(time.Millisecond))

	if totals.Failed > 0 {
		os.Exit(1)
	}
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

func printJurisdictions(cfg *config.Config) {
	for _, j := range cfg.Jurisdictions {
		state := "enabled"
		if !j.Enabled {
			state = "disabled"
		}

		fmt.Printf("%-15s %-9s %s\n", j.ID, state, j.URL)
	}
}
