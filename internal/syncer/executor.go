package syncer

import (
	"context"
	"time"

	"rfpsonar/internal/config"
	"rfpsonar/internal/logger"
	"rfpsonar/internal/models"
	"rfpsonar/internal/salesforce"
)

// Executor writes non-duplicate records to the store one at a time. One
// record's rejection never aborts the batch; a fatal adapter failure is
// handled separately with a stub record plus account status.
type Executor struct {
	client salesforce.Client
	logger *logger.Logger
}

// NewExecutor creates an executor over the given store client.
func NewExecutor(client salesforce.Client, log *logger.Logger) *Executor {
	return &Executor{
		client: client,
		logger: log.With("component", "syncer"),
	}
}

// Sync pushes one canonical record through the gate and into the store.
// Returns Skipped for duplicates, Created on success, and Errored with the
// cause when the store rejects the record.
func (e *Executor) Sync(ctx context.Context, gate *DedupGate, accountID string, opp *models.CanonicalOpportunity) (models.Outcome, error) {
	key := opp.SolicitationNumber

	if gate.IsDuplicate(key) {
		e.logger.Debug("skipping duplicate", "number", key, "jurisdiction", opp.Jurisdiction)

		return models.OutcomeSkipped, nil
	}

	payload := salesforce.NewOpportunityPayload(opp, accountID)

	id, err := e.client.CreateOpportunity(ctx, payload)
	if err != nil {
		e.logger.Error("create failed", "number", key, "jurisdiction", opp.Jurisdiction, "error", err)

		return models.OutcomeErrored, err
	}

	gate.MarkCreated(key)
	e.logger.Info("created opportunity", "number", key, "jurisdiction", opp.Jurisdiction, "id", id)

	return models.OutcomeCreated, nil
}

// HandleFailure runs the fatal-failure policy for a jurisdiction: one stub
// record flagging the portal for manual review, then the account status.
// Both writes are best effort; the run is already lost and the first error
// is returned only so the caller can log it.
func (e *Executor) HandleFailure(ctx context.Context, j *config.JurisdictionConfig, status models.RunStatus, cause string) error {
	stub := salesforce.NewStubPayload(j.AccountID, j.URL, cause, time.Now())

	var firstErr error

	if _, err := e.client.CreateOpportunity(ctx, stub); err != nil {
		e.logger.Error("stub create failed", "jurisdiction", j.ID, "error", err)
		firstErr = err
	} else {
		e.logger.Info("created manual-review stub", "jurisdiction", j.ID)
	}

	if err := e.RecordStatus(ctx, j.AccountID, status, cause); err != nil {
		e.logger.Error("status update failed", "jurisdiction", j.ID, "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// RecordStatus updates the jurisdiction account's scrape status fields.
func (e *Executor) RecordStatus(ctx context.Context, accountID string, status models.RunStatus, message string) error {
	return e.client.UpdateAccountStatus(ctx, accountID, status, message)
}
