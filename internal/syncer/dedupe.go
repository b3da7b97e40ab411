// Package syncer pushes canonical records into the record store: duplicate
// filtering against the store's existing records, create calls, and the
// stub/status handling for failed runs.
package syncer

import (
	"context"
	"fmt"

	"rfpsonar/internal/salesforce"
)

// DedupGate filters records by natural key (solicitation number) against
// what the store already holds for one jurisdiction's account. The existing
// set is fetched exactly once, at construction, before extraction begins;
// records created later in the same run enter an in-run supplement so a
// number re-listed on a later page is still caught.
type DedupGate struct {
	existing map[string]struct{}
	created  map[string]struct{}
}

// NewDedupGate fetches the account's existing solicitation numbers and
// returns a gate over them. A fetch failure is fatal for the run: syncing
// without the existing set would duplicate every record.
func NewDedupGate(ctx context.Context, client salesforce.Client, accountID string) (*DedupGate, error) {
	existing, err := client.QueryExistingNumbers(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch existing numbers: %w", err)
	}

	return &DedupGate{
		existing: existing,
		created:  make(map[string]struct{}),
	}, nil
}

// IsDuplicate reports whether the key exists in the store or was already
// created earlier in this run.
func (g *DedupGate) IsDuplicate(key string) bool {
	if _, ok := g.existing[key]; ok {
		return true
	}

	_, ok := g.created[key]

	return ok
}

// MarkCreated records a key created during this run.
func (g *DedupGate) MarkCreated(key string) {
	g.created[key] = struct{}{}
}

// ExistingCount returns the size of the fetched set.
func (g *DedupGate) ExistingCount() int {
	return len(g.existing)
}

// CreatedCount returns how many keys this run has created so far.
func (g *DedupGate) CreatedCount() int {
	return len(g.created)
}
