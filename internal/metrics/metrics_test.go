package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"rfpsonar/internal/models"
)

func TestObserveRun(t *testing.T) {
	result := models.SyncResult{
		Jurisdiction: "observetest",
		Status:       models.StatusSuccess,
		Found:        5,
		Created:      3,
		Skipped:      1,
		Errors:       1,
		Duration:     1200 * time.Millisecond,
	}

	ObserveRun(result)
	ObserveRun(result)

	if got := testutil.ToFloat64(RunsTotal.WithLabelValues("observetest", "Success")); got != 2 {
		t.Errorf("runs total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(RecordsCreated.WithLabelValues("observetest")); got != 6 {
		t.Errorf("records created = %v, want 6", got)
	}
	if got := testutil.ToFloat64(DuplicatesSkipped.WithLabelValues("observetest")); got != 2 {
		t.Errorf("duplicates skipped = %v, want 2", got)
	}
	if got := testutil.ToFloat64(SyncErrors.WithLabelValues("observetest")); got != 2 {
		t.Errorf("sync errors = %v, want 2", got)
	}
}
