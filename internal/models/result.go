package models

import "time"

// RunStatus is the terminal outcome of one jurisdiction run.
type RunStatus string

// Terminal run statuses, written back to the jurisdiction's account record.
const (
	StatusSuccess RunStatus = "Success"
	StatusFailed  RunStatus = "Failed"
	StatusError   RunStatus = "Error"
)

// Outcome classifies the sync attempt for a single record.
type Outcome int

const (
	// OutcomeCreated means the record was created in the store.
	OutcomeCreated Outcome = iota
	// OutcomeSkipped means the record's natural key was already present.
	OutcomeSkipped
	// OutcomeErrored means the store rejected the create for this record.
	OutcomeErrored
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// SyncResult is the per-jurisdiction outcome of one run.
type SyncResult struct {
	Jurisdiction string        `json:"jurisdiction"`
	RunID        string        `json:"runId"`
	Status       RunStatus     `json:"status"`
	Found        int           `json:"found"`
	Created      int           `json:"created"`
	Skipped      int           `json:"skipped"`
	Errors       int           `json:"errors"`
	Message      string        `json:"message,omitempty"`
	StartedAt    time.Time     `json:"startedAt"`
	Duration     time.Duration `json:"duration"`
}

// Totals aggregates counts across a batch of jurisdiction runs.
type Totals struct {
	Found     int `json:"found"`
	Created   int `json:"created"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Summarize computes batch totals from per-jurisdiction results.
func Summarize(results map[string]SyncResult) Totals {
	var t Totals
	for _, r := range results {
		t.Found += r.Found
		t.Created += r.Created
		t.Skipped += r.Skipped
		t.Errors += r.Errors
		if r.Status == StatusSuccess {
			t.Succeeded++
		} else {
			t.Failed++
		}
	}
	return t
}
