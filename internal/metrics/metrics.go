// Package metrics exposes Prometheus collectors for the ingestion service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ingestRunsTotal          *prometheus.CounterVec
	ingestRunDurationSeconds *prometheus.HistogramVec
	ingestPagesTotal         *prometheus.CounterVec
	ingestRetriesTotal       *prometheus.CounterVec
	ingestMalformedTotal     *prometheus.CounterVec
	ingestEventsTotal        *prometheus.CounterVec
	ingestTruncationsTotal   *prometheus.CounterVec
	ingestArchiveErrorsTotal *prometheus.CounterVec

	once sync.Once
)

// Init registers the collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		ingestRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_runs_total",
				Help: "Total source runs, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)

		ingestRunDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ingest_run_duration_seconds",
				Help:    "Histogram of per-source run durations.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"source"},
		)

		ingestPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_pages_total",
				Help: "Total pages fetched, labeled by source.",
			},
			[]string{"source"},
		)

		ingestRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_fetch_retries_total",
				Help: "Total page fetch retries, labeled by source.",
			},
			[]string{"source"},
		)

		ingestMalformedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_malformed_records_total",
				Help: "Total records skipped as malformed, labeled by source.",
			},
			[]string{"source"},
		)

		ingestEventsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_change_events_total",
				Help: "Total change events emitted, labeled by source and kind.",
			},
			[]string{"source", "kind"},
		)

		ingestTruncationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_pagination_truncations_total",
				Help: "Total runs truncated by a loop guard or page ceiling.",
			},
			[]string{"source"},
		)

		ingestArchiveErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_archive_errors_total",
				Help: "Total raw page archival failures, labeled by source.",
			},
			[]string{"source"},
		)
	})
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun records one terminal source run.
func ObserveRun(source, outcome string, elapsed time.Duration) {
	if ingestRunsTotal == nil {
		return
	}
	ingestRunsTotal.WithLabelValues(source, outcome).Inc()
	ingestRunDurationSeconds.WithLabelValues(source).Observe(elapsed.Seconds())
}

// ObservePages adds fetched pages for a source.
func ObservePages(source string, pages int) {
	if ingestPagesTotal == nil || pages <= 0 {
		return
	}
	ingestPagesTotal.WithLabelValues(source).Add(float64(pages))
}

// ObserveRetries adds page fetch retries for a source.
func ObserveRetries(source string, retries int) {
	if ingestRetriesTotal == nil || retries <= 0 {
		return
	}
	ingestRetriesTotal.WithLabelValues(source).Add(float64(retries))
}

// ObserveMalformed adds skipped malformed records for a source.
func ObserveMalformed(source string, count int) {
	if ingestMalformedTotal == nil || count <= 0 {
		return
	}
	ingestMalformedTotal.WithLabelValues(source).Add(float64(count))
}

// ObserveEvents adds emitted change events by kind.
func ObserveEvents(source string, newTitles, transitions int) {
	if ingestEventsTotal == nil {
		return
	}
	if newTitles > 0 {
		ingestEventsTotal.WithLabelValues(source, "new").Add(float64(newTitles))
	}
	if transitions > 0 {
		ingestEventsTotal.WithLabelValues(source, "transition").Add(float64(transitions))
	}
}

// ObserveTruncation records a pagination truncation for a source.
func ObserveTruncation(source string) {
	if ingestTruncationsTotal == nil {
		return
	}
	ingestTruncationsTotal.WithLabelValues(source).Inc()
}

// ObserveArchiveError records a failed raw page archival.
func ObserveArchiveError(source string) {
	if ingestArchiveErrorsTotal == nil {
		return
	}
	ingestArchiveErrorsTotal.WithLabelValues(source).Inc()
}
