// Package main provides the status command that inspects synced records in
// the record store, one table per jurisdiction.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"rfpsonar/internal/config"
	"rfpsonar/internal/logger"
	"rfpsonar/internal/report"
	"rfpsonar/internal/salesforce"
)

func main() {
	// 1. Define Command-Line Flags
	// ----------------------------
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	jurisdiction := flag.String("jurisdiction", "", "Inspect a single jurisdiction by id (default: all)")
	limit := flag.Int("limit", 5, "How many recent records to show per jurisdiction")

	flag.Parse()

	// 2. Load Configuration
	// ---------------------
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Config error: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLoggerWithOptions(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	jurisdictions := cfg.Jurisdictions
	if *jurisdiction != "" {
		j, ok := cfg.GetJurisdiction(*jurisdiction)
		if !ok {
			log.Error(fmt.Sprintf("❌ Unknown jurisdiction %q", *jurisdiction))
			os.Exit(1)
		}
		jurisdictions = []config.JurisdictionConfig{j}
	}

	// 3. Query and Print
	// ------------------
	client := salesforce.NewRESTClient(&cfg.RecordStore, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	failed := false
	for i, j := range jurisdictions {
		total, err := client.CountOpportunities(ctx, j.AccountID)
		if err != nil {
			log.Error(fmt.Sprintf("❌ %s: count query failed: %v", j.ID, err))
			failed = true

			continue
		}

		records, err := client.RecentOpportunities(ctx, j.AccountID, *limit)
		if err != nil {
			log.Error(fmt.Sprintf("❌ %s: recent-records query failed: %v", j.ID, err))
			failed = true

			continue
		}

		if i > 0 {
			fmt.Println()
		}
		fmt.Print(report.StatusTable(j.ID, total, records))
	}

	if failed {
		os.Exit(1)
	}
}
