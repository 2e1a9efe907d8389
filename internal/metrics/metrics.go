// Package metrics defines Prometheus metrics for the connector.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	SearchCompilations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xtdb_search_compilations_total",
			Help: "Search criteria compilations by instance kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	UnmappedConstructs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xtdb_unmapped_constructs_total",
			Help: "Search compilations rejected for an unmappable construct",
		},
		[]string{"kind"},
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "xtdb_query_duration_seconds",
			Help:    "Compiled query execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	Transactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xtdb_transactions_total",
			Help: "Submitted transactions by function and outcome",
		},
		[]string{"function", "outcome"},
	)

	CascadeFanout = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "xtdb_cascade_fanout",
			Help:    "Relationships touched per entity delete or purge cascade",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
	)
)

func init() {
	prometheus.MustRegister(
		SearchCompilations, UnmappedConstructs, QueryDuration,
		Transactions, CascadeFanout,
	)
}
