package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpReqTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests on the ops listener",
		},
		[]string{"handler", "code", "method"},
	)

	httpReqDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration on the ops listener",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler", "code", "method"},
	)
)

// Instrument wraps h with request counters labelled by name.
func Instrument(name string, h http.Handler) http.Handler {
	labels := prometheus.Labels{"handler": name}
	return promhttp.InstrumentHandlerDuration(httpReqDuration.MustCurryWith(labels),
		promhttp.InstrumentHandlerCounter(httpReqTotal.MustCurryWith(labels), h))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return Instrument("metrics", promhttp.Handler())
}
