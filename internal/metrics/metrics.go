// Package metrics registers the worker's Prometheus collectors and serves
// the scrape endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rfpsonar/internal/models"
)

var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfpsonar_runs_total",
			Help: "Jurisdiction runs by terminal status.",
		},
		[]string{"jurisdiction", "status"},
	)
	RecordsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfpsonar_records_created_total",
			Help: "Opportunity records created in the store.",
		},
		[]string{"jurisdiction"},
	)
	DuplicatesSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfpsonar_duplicates_skipped_total",
			Help: "Records skipped because their natural key already existed.",
		},
		[]string{"jurisdiction"},
	)
	SyncErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfpsonar_sync_errors_total",
			Help: "Records the store rejected or that failed normalization.",
		},
		[]string{"jurisdiction"},
	)
	RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rfpsonar_run_duration_seconds",
			Help:    "Wall-clock duration of one jurisdiction run.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"jurisdiction"},
	)
)

func init() {
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(RecordsCreated)
	prometheus.MustRegister(DuplicatesSkipped)
	prometheus.MustRegister(SyncErrors)
	prometheus.MustRegister(RunDuration)
}

// ObserveRun records one finished jurisdiction run.
func ObserveRun(result models.SyncResult) {
	RunsTotal.WithLabelValues(result.Jurisdiction, string(result.Status)).Inc()
	RecordsCreated.WithLabelValues(result.Jurisdiction).Add(float64(result.Created))
	DuplicatesSkipped.WithLabelValues(result.Jurisdiction).Add(float64(result.Skipped))
	SyncErrors.WithLabelValues(result.Jurisdiction).Add(float64(result.Errors))
	RunDuration.WithLabelValues(result.Jurisdiction).Observe(result.Duration.Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve blocks exposing /metrics on addr.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	return http.ListenAndServe(addr, mux)
}
