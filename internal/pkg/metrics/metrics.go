package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hooklink",
		Name:      "resolutions_total",
		Help:      "Inbound event resolutions by provider and outcome.",
	}, []string{"provider", "outcome"})

	ResolutionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hooklink",
		Name:      "resolution_duration_seconds",
		Help:      "Resolution latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider"})

	ActivationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hooklink",
		Name:      "activations_total",
		Help:      "Activation evaluations by resulting link status.",
	}, []string{"status"})

	DispatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hooklink",
		Name:      "dispatches_total",
		Help:      "Outbound agent dispatch attempts by outcome.",
	}, []string{"outcome"})
)

// Handler serves the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
