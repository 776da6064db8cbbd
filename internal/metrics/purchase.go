package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	purchaseTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lotto_purchase_total",
			Help: "Ticket purchases by result",
		},
		[]string{"result"},
	)

	purchaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lotto_purchase_duration_ms",
			Help:    "Purchase transaction duration in milliseconds",
			Buckets: durationBuckets,
		},
		[]string{"result"},
	)
)

// RecordPurchase records one purchase call.
// result: "success" or the error kind ("conflict", "not_found", ...).
func RecordPurchase(result string, started time.Time) {
	res := label(result, "unknown")
	purchaseTotal.WithLabelValues(res).Inc()
	purchaseDuration.WithLabelValues(res).Observe(sinceMs(started))
}
