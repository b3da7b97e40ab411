// Package scheduler runs full sync batches on a cron cadence.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"rfpsonar/internal/logger"
	"rfpsonar/internal/models"
)

// BatchFunc runs a full batch across all enabled jurisdictions and returns
// the per-jurisdiction results.
type BatchFunc func(ctx context.Context) map[string]models.SyncResult

// Scheduler wraps robfig/cron around a batch runner. Ticks that arrive while
// a batch is still active are skipped, never queued.
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	run     BatchFunc
	log     *logger.Logger
	running atomic.Bool
}

// New creates a scheduler firing run on the given cron spec.
func New(spec string, run BatchFunc, log *logger.Logger) *Scheduler {
	log = log.With("component", "scheduler")

	return &Scheduler{
		cron: cron.New(cron.WithLogger(cronLogger{log})),
		spec: spec,
		run:  run,
		log:  log,
	}
}

// Start registers the batch job and starts the ticker. The given context is
// handed to every triggered batch; cancel it to abort an in-flight run.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runBatch(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.log.Info("schedule started", "cron", s.spec)

	return nil
}

// Stop ends the ticker. A batch already underway keeps running; the returned
// context is done once it finishes.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("schedule stopped")

	return s.cron.Stop()
}

func (s *Scheduler) runBatch(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("previous scheduled batch still active, skipping tick")
		return
	}
	defer s.running.Store(false)

	results := s.run(ctx)
	totals := models.Summarize(results)

	s.log.Info("scheduled batch finished",
		"jurisdictions", len(results),
		"created", totals.Created,
		"errors", totals.Errors,
		"failed", totals.Failed,
	)
}

// cronLogger adapts the worker logger to the cron.Logger interface. Cron's
// own chatter lands at debug, its errors at error.
type cronLogger struct {
	log *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.log.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.log.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
