// Package metrics holds the prometheus collectors of the recommendation service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecommendationsServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "carwizard_recommendations_total",
			Help: "Total number of recommendation lists produced",
		},
	)

	RecommendationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carwizard_recommendation_errors_total",
			Help: "Total number of failed recommendation requests",
		},
		[]string{"kind"}, // "invalid_input", "storage"
	)

	RecommendationCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "carwizard_recommendation_candidates",
			Help:    "Number of vehicles surviving the hard filters per request",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	CatalogQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "carwizard_catalog_query_duration_seconds",
			Help:    "Duration of catalog queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CatalogBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "carwizard_catalog_breaker_state",
			Help: "Catalog circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CatalogVehicles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "carwizard_catalog_vehicles",
			Help: "Number of vehicles in the catalog at the last refresh",
		},
	)

	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "carwizard_sessions_created_total",
			Help: "Total number of wizard sessions created",
		},
	)

	SessionSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carwizard_session_steps_total",
			Help: "Total number of session steps appended, by action",
		},
		[]string{"action"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carwizard_api_request_duration_seconds",
			Help:    "Duration of REST API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordRecommendation records a successful recommendation request.
func RecordRecommendation(candidates int) {
	RecommendationsServed.Inc()
	RecommendationCandidates.Observe(float64(candidates))
}

// RecordCatalogQuery records the latency of one catalog query.
func RecordCatalogQuery(duration time.Duration) {
	CatalogQueryDuration.Observe(duration.Seconds())
}

// RecordSessionStep counts an appended step. Actions outside the common
// vocabulary share the "other" label to keep cardinality bounded.
func RecordSessionStep(action string) {
	switch action {
	case "select", "deselect", "recommend", "complete":
	default:
		action = "other"
	}
	SessionSteps.WithLabelValues(action).Inc()
}

// RecordAPIRequest records the latency of one REST API request.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}
