package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/anushreehmm/nodedown/internal/models"
)

const (
	// OutcomeSuccess labels successful ingestions and queries.
	OutcomeSuccess = "success"
	// OutcomeError labels failed ingestions and queries.
	OutcomeError = "error"
)

const namespace = "nodedown"

var (
	ingestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestions_total",
			Help:      "Total number of dataset builds, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	ingestionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingestion_seconds",
			Help:      "Dataset build latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	rowsRead = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_read",
			Help:      "Data rows read from each source by the last successful build.",
		},
		[]string{"source"},
	)

	rowsKept = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_kept",
			Help:      "Data rows kept from each source by the last successful build.",
		},
		[]string{"source"},
	)

	rowsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Rows dropped during validation, partitioned by source and reason.",
		},
		[]string{"source", "reason"},
	)

	joinRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "join_records",
			Help:      "Unified records of the live dataset by join result.",
		},
		[]string{"result"},
	)

	joinAmbiguousKeys = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "join_ambiguous_keys",
			Help:      "IP addresses shared by more than one metric sample in the live dataset.",
		},
	)

	datasetLoadedTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_loaded_timestamp_seconds",
			Help:      "Unix time the live dataset was built.",
		},
	)

	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Total number of report queries, partitioned by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	queryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_seconds",
			Help:      "Report query latency in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"operation"},
	)

	cacheResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_results_total",
			Help:      "Query cache lookups, partitioned by result (hit, miss, error).",
		},
		[]string{"result"},
	)
)

// Register attaches nodedown collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		ingestionsTotal,
		ingestionDurationSeconds,
		rowsRead,
		rowsKept,
		rowsDroppedTotal,
		joinRecords,
		joinAmbiguousKeys,
		datasetLoadedTimestamp,
		queriesTotal,
		queryDurationSeconds,
		cacheResultsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveIngestion records a dataset build duration and outcome label.
func ObserveIngestion(duration time.Duration, outcome string) {
	ingestionsTotal.WithLabelValues(normalizeOutcome(outcome)).Inc()
	if duration < 0 {
		duration = 0
	}
	ingestionDurationSeconds.Observe(duration.Seconds())
}

// ObserveDataset publishes the row and join statistics of a newly live dataset.
func ObserveDataset(stats models.DatasetStats) {
	for _, clean := range []models.CleanStats{stats.EventLog, stats.MetricSamples} {
		source := string(clean.Source)
		rowsRead.WithLabelValues(source).Set(float64(clean.RowsRead))
		rowsKept.WithLabelValues(source).Set(float64(clean.RowsKept))
		for reason, n := range clean.DropReasons {
			rowsDroppedTotal.WithLabelValues(source, reason).Add(float64(n))
		}
	}
	joinRecords.WithLabelValues("matched").Set(float64(stats.Join.Matched))
	joinRecords.WithLabelValues("unmatched").Set(float64(stats.Join.Unmatched))
	joinAmbiguousKeys.Set(float64(stats.Join.AmbiguousKeys))
	datasetLoadedTimestamp.Set(float64(stats.LoadedAt.Unix()))
}

// ObserveQuery records a query duration and outcome for an operation.
func ObserveQuery(operation string, duration time.Duration, outcome string) {
	queriesTotal.WithLabelValues(operation, normalizeOutcome(outcome)).Inc()
	if duration < 0 {
		duration = 0
	}
	queryDurationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveCache records a query cache lookup result.
func ObserveCache(result string) {
	cacheResultsTotal.WithLabelValues(result).Inc()
}

func normalizeOutcome(outcome string) string {
	if outcome != OutcomeError {
		return OutcomeSuccess
	}
	return outcome
}
