package metrics

import "github.com/prometheus/client_golang/prometheus"

// Matching and aggregation Prometheus metrics.
var (
	MatchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchdex",
			Name:      "match_requests_total",
			Help:      "Total match queries served",
		},
		[]string{"population", "mode", "status"},
	)

	MatchResultsReturned = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "matchdex",
			Name:      "match_results_returned",
			Help:      "Number of matches returned per query",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
		[]string{"population", "mode"},
	)

	AggregatorQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchdex",
			Name:      "aggregator_queries_total",
			Help:      "Aggregator queries by intent and outcome",
		},
		[]string{"intent", "status"}, // status: "ok" / "degraded" / "failed"
	)

	IngestedRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchdex",
			Name:      "ingested_records_total",
			Help:      "Records ingested, by population and outcome",
		},
		[]string{"population", "status"},
	)
)

var matchingMetricsRegistered bool

// RegisterMatchingMetrics registers matching metrics. Must be called once from main.
func RegisterMatchingMetrics() {
	if matchingMetricsRegistered {
		return
	}
	prometheus.MustRegister(MatchRequestsTotal)
	prometheus.MustRegister(MatchResultsReturned)
	prometheus.MustRegister(AggregatorQueriesTotal)
	prometheus.MustRegister(IngestedRecordsTotal)
	matchingMetricsRegistered = true
}

// NewIndexSizeGauge builds a gauge tracking one population's index size.
// Registered from main alongside the other matching metrics.
func NewIndexSizeGauge(population string, size func() float64) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace:   "matchdex",
			Name:        "index_records",
			Help:        "Records currently held in the population index",
			ConstLabels: prometheus.Labels{"population": population},
		},
		size,
	)
}
