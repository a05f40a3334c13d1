package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	VolumesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "brindex_volumes_total",
			Help: "Total number of tracked volumes by state",
		},
		[]string{"state"},
	)

	FilesIndexedTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "brindex_files_indexed_total",
			Help: "Total number of files indexed, by drive letter",
		},
		[]string{"drive_letter"},
	)

	IngestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "brindex_ingest_duration_seconds",
			Help:    "Time taken to fully ingest a volume in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"drive_letter", "method"},
	)

	IngestErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brindex_ingest_errors_total",
			Help: "Total number of per-record parse errors encountered during ingest",
		},
		[]string{"drive_letter"},
	)

	UsnPollDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "brindex_usn_poll_duration_seconds",
			Help:    "Time taken for one USN journal poll cycle",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"drive_letter"},
	)

	UsnChangesAppliedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brindex_usn_changes_applied_total",
			Help: "Total number of USN changes applied to the catalog, by change type",
		},
		[]string{"drive_letter", "change_type"},
	)

	UsnJournalWrapsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brindex_usn_journal_wraps_total",
			Help: "Total number of detected journal wraps requiring a rescan",
		},
		[]string{"drive_letter"},
	)

	UsnJournalRecreationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brindex_usn_journal_recreations_total",
			Help: "Total number of detected journal recreations requiring a rescan",
		},
		[]string{"drive_letter"},
	)

	UsnThrottleActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "brindex_usn_throttle_active",
			Help: "1 when the adaptive throttle is backing off a volume's poll interval, 0 otherwise",
		},
		[]string{"drive_letter"},
	)

	ReconciliationCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "brindex_reconciliation_cycles_total",
			Help: "Total number of reconciler cycles completed",
		},
	)

	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "brindex_reconciliation_duration_seconds",
			Help:    "Time taken for a reconciler cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	OfflineVolumesEvictedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "brindex_offline_volumes_evicted_total",
			Help: "Total number of file rows purged from offline volumes by offline-retention cleanup",
		},
	)

	QueryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "brindex_query_duration_seconds",
			Help:    "Time taken to answer a search_files query",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(VolumesTotal)
	prometheus.MustRegister(FilesIndexedTotal)
	prometheus.MustRegister(IngestDuration)
	prometheus.MustRegister(IngestErrorsTotal)
	prometheus.MustRegister(UsnPollDuration)
	prometheus.MustRegister(UsnChangesAppliedTotal)
	prometheus.MustRegister(UsnJournalWrapsTotal)
	prometheus.MustRegister(UsnJournalRecreationsTotal)
	prometheus.MustRegister(UsnThrottleActive)
	prometheus.MustRegister(ReconciliationCyclesTotal)
	prometheus.MustRegister(ReconciliationDuration)
	prometheus.MustRegister(OfflineVolumesEvictedTotal)
	prometheus.MustRegister(QueryDuration)
}

// Handler returns the Prometheus HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations and recording their duration to
// a histogram when they finish.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
