package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	embOnce   sync.Once
	indexOnce sync.Once
)

// Index and query metrics.
var (
	IndexImagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_images_total",
			Help:      "Images processed by the index builder",
		},
		[]string{"outcome"}, // "indexed" / "skipped"
	)

	IndexBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_build_duration_seconds",
			Help:      "Duration of full index builds",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	IndexRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_records",
			Help:      "Records in the currently published index",
		},
	)

	IndexStoreOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_store_operations_total",
			Help:      "Index store loads and saves",
		},
		[]string{"op", "status"},
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Query duration including the query embedding",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	SearchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Number of results returned per query",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)
)

// RegisterIndexMetrics registers index and search metrics. Safe to call more than once.
func RegisterIndexMetrics() {
	indexOnce.Do(func() {
		prometheus.MustRegister(
			IndexImagesTotal,
			IndexBuildDuration,
			IndexRecords,
			IndexStoreOpsTotal,
			SearchDuration,
			SearchResults,
		)
	})
}
