package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RecommendationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resource_engine_recommendation_duration_seconds",
			Help:    "Recommendation computation duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"kind"},
	)

	MatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resource_engine_match_duration_seconds",
			Help:    "Step matching duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"kind"},
	)

	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resource_engine_requests_total",
			Help: "Total engine requests by operation and status",
		},
		[]string{"operation", "status"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resource_engine_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resource_engine_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	CandidatesScored = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resource_engine_candidates_scored",
			Help:    "Number of candidates scored per recommendation call",
			Buckets: []float64{0, 10, 25, 50, 100, 200, 500},
		},
	)

	ResultScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resource_engine_result_score",
			Help:    "Distribution of top result scores",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	ResourcesImported = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resource_engine_resources_imported_total",
			Help: "Total catalog resources imported",
		},
	)

	InteractionsRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resource_engine_interactions_recorded_total",
			Help: "Total interaction records written",
		},
	)
)

func Init() {
	prometheus.MustRegister(RecommendationDuration)
	prometheus.MustRegister(MatchDuration)
	prometheus.MustRegister(RequestTotal)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(CandidatesScored)
	prometheus.MustRegister(ResultScore)
	prometheus.MustRegister(ResourcesImported)
	prometheus.MustRegister(InteractionsRecorded)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
