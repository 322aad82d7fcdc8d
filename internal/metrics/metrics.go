package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personashop_recommend_requests_total",
			Help: "Recommendation engine operations by outcome",
		},
		[]string{"operation", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "personashop_recommend_duration_seconds",
			Help:    "Recommendation engine operation latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"operation"},
	)

	CacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personashop_cache_requests_total",
			Help: "Recommendation cache lookups by result",
		},
		[]string{"result"},
	)

	ProductsFiltered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personashop_products_filtered_total",
			Help: "Products excluded by the safety filter",
		},
		[]string{"category"},
	)

	Explanations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personashop_explanations_total",
			Help: "Explanations produced by source",
		},
		[]string{"source"},
	)

	GeneratorFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personashop_generator_fallbacks_total",
			Help: "Explanation generator calls replaced by the template path",
		},
		[]string{"reason"},
	)
)

var registerOnce sync.Once

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestsTotal)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(CacheRequests)
		prometheus.MustRegister(ProductsFiltered)
		prometheus.MustRegister(Explanations)
		prometheus.MustRegister(GeneratorFallbacks)
	})
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
