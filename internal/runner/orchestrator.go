// Package runner orchestrates scrape-and-sync runs: one jurisdiction at a
// time through dedup fetch, portal scrape, normalization and store sync, or
// a batch of jurisdictions with bounded parallelism. Run outcomes are data;
// nothing escapes as an error across the trigger boundary.
package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"rfpsonar/internal/config"
	"rfpsonar/internal/logger"
	"rfpsonar/internal/metrics"
	"rfpsonar/internal/models"
	"rfpsonar/internal/normalizer"
	"rfpsonar/internal/portal"
	"rfpsonar/internal/salesforce"
	"rfpsonar/internal/syncer"
)

// Orchestrator owns one full scrape-and-sync pipeline behind two entry
// points: RunJurisdiction and RunBatch.
type Orchestrator struct {
	cfg      *config.Config
	registry *portal.Registry
	driver   *portal.Driver
	canon    *normalizer.Canonicalizer
	executor *syncer.Executor
	client   salesforce.Client
	log      *logger.Logger
}

// New creates an orchestrator over the given portal registry, adapter
// driver and record-store client.
func New(cfg *config.Config, registry *portal.Registry, driver *portal.Driver, client salesforce.Client, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		registry: registry,
		driver:   driver,
		canon:    normalizer.NewCanonicalizer(),
		executor: syncer.NewExecutor(client, log),
		client:   client,
		log:      log.With("component", "runner"),
	}
}

// RunJurisdiction runs one jurisdiction end to end and returns its result.
// Failures land in the result's status and message, never in a panic or an
// escaping error.
func (o *Orchestrator) RunJurisdiction(ctx context.Context, id string) models.SyncResult {
	started := time.Now()

	result := models.SyncResult{
		Jurisdiction: id,
		RunID:        uuid.NewString(),
		StartedAt:    started,
	}

	log := o.log.With("run_id", result.RunID, "jurisdiction", id)
	log.Info("run started")

	o.execute(ctx, log, id, &result)

	result.Duration = time.Since(started)
	metrics.ObserveRun(result)

	log.Info("run finished",
		"status", result.Status,
		"found", result.Found,
		"created", result.Created,
		"skipped", result.Skipped,
		"errors", result.Errors,
		"duration", result.Duration,
	)

	return result
}

// RunBatch runs the given jurisdictions with bounded parallelism and
// returns their results keyed by id. An empty id list means every enabled
// jurisdiction. One jurisdiction's failure never cancels its siblings.
func (o *Orchestrator) RunBatch(ctx context.Context, ids []string) map[string]models.SyncResult {
	if len(ids) == 0 {
		ids = o.cfg.EnabledIDs()
	}

	o.log.Info("batch started", "jurisdictions", len(ids), "max_parallel", o.cfg.Run.MaxParallel)

	results := make(map[string]models.SyncResult, len(ids))

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Run.MaxParallel)

	for _, id := range ids {
		g.Go(func() error {
			res := o.RunJurisdiction(gctx, id)

			mu.Lock()
			results[res.Jurisdiction] = res
			mu.Unlock()

			return nil
		})
	}

	// Goroutines never return errors; Wait only gates completion.
	_ = g.Wait()

	totals := models.Summarize(results)
	o.log.Info("batch finished",
		"succeeded", totals.Succeeded,
		"failed", totals.Failed,
		"found", totals.Found,
		"created", totals.Created,
		"skipped", totals.Skipped,
		"errors", totals.Errors,
	)

	return results
}

// execute runs the pipeline stages, recording the terminal status on the
// result. Status policy: a store-infrastructure failure is Error with no
// stub (a stub create would hit the same outage), a fatal adapter failure
// is Failed with a manual-review stub, cancellation is Error with no store
// writes, and a completed scrape is Success even when individual records
// were rejected.
func (o *Orchestrator) execute(ctx context.Context, log *logger.Logger, id string, result *models.SyncResult) {
	jur, ok := o.cfg.GetJurisdiction(id)
	if !ok {
		result.Status = models.StatusError
		result.Message = "unknown jurisdiction"

		return
	}

	if !jur.Enabled {
		result.Status = models.StatusError
		result.Message = "jurisdiction disabled"

		return
	}

	adapter, err := o.registry.Get(id)
	if err != nil {
		result.Status = models.StatusError
		result.Message = err.Error()

		return
	}

	// 1. Existing keys come first: extracting before the dedup set is
	// known would be wasted work if the store is down.
	gate, err := syncer.NewDedupGate(ctx, o.client, jur.AccountID)
	if err != nil {
		log.Error("existing-key fetch failed", "error", err)
		result.Status = models.StatusError
		result.Message = err.Error()

		if serr := o.executor.RecordStatus(ctx, jur.AccountID, models.StatusError, result.Message); serr != nil {
			log.Warn("status write failed after store error", "error", serr)
		}

		return
	}

	log.Debug("existing keys fetched", "count", gate.ExistingCount())

	// 2. Portal scrape through the adapter driver.
	rows, err := o.driver.Run(ctx, adapter, &jur)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			result.Status = models.StatusError
			result.Message = err.Error()

			return
		}

		log.Error("adapter run failed", "error", err)
		result.Status = models.StatusFailed
		result.Message = err.Error()

		if herr := o.executor.HandleFailure(ctx, &jur, models.StatusFailed, err.Error()); herr != nil {
			log.Warn("failure handling incomplete", "error", herr)
		}

		return
	}

	result.Found = len(rows)

	// 3. Normalize and sync one record at a time. A dropped or rejected
	// record counts and the loop continues.
	for _, raw := range rows {
		if ctx.Err() != nil {
			result.Status = models.StatusError
			result.Message = ctx.Err().Error()

			return
		}

		opp, berr := o.canon.Build(raw, jur.ID, jur.URL, time.Now())
		if berr != nil {
			log.Warn("row dropped during normalization", "error", berr)
			result.Errors++

			continue
		}

		outcome, _ := o.executor.Sync(ctx, gate, jur.AccountID, opp)
		switch outcome {
		case models.OutcomeCreated:
			result.Created++
		case models.OutcomeSkipped:
			result.Skipped++
		case models.OutcomeErrored:
			result.Errors++
		}
	}

	result.Status = models.StatusSuccess

	// 4. Success clears the account's scrape error.
	if serr := o.executor.RecordStatus(ctx, jur.AccountID, models.StatusSuccess, ""); serr != nil {
		log.Warn("success status write failed", "error", serr)
	}
}
