package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lotto_generate_total",
			Help: "Number generation calls by result and strategy",
		},
		[]string{"result", "strategy"},
	)

	generateDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lotto_generate_duration_ms",
			Help:    "Number generation duration in milliseconds",
			Buckets: durationBuckets,
		},
		[]string{"strategy"},
	)

	ticketsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lotto_tickets_generated_total",
			Help: "Tickets written by number generation",
		},
	)
)

// RecordGenerate records one generate call. strategy: "sample" | "shuffle".
func RecordGenerate(result, strategy string, tickets int, started time.Time) {
	st := label(strategy, "none")
	generateTotal.WithLabelValues(label(result, "unknown"), st).Inc()
	generateDuration.WithLabelValues(st).Observe(sinceMs(started))
	if tickets > 0 {
		ticketsGenerated.Add(float64(tickets))
	}
}
