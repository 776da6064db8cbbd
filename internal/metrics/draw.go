package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	drawTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lotto_draw_total",
			Help: "Prize draws by result and pool source",
		},
		[]string{"result", "source"},
	)

	drawDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lotto_draw_duration_ms",
			Help:    "Draw duration in milliseconds",
			Buckets: durationBuckets,
		},
		[]string{"result", "source"},
	)

	drawPoolSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lotto_draw_pool_size",
			Help:    "Number of tickets shuffled per committed draw",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)
)

// RecordDraw records one draw call. source: "issued" | "sold-only".
func RecordDraw(result, source string, started time.Time) {
	res := label(result, "unknown")
	src := label(source, "unknown")
	drawTotal.WithLabelValues(res, src).Inc()
	drawDuration.WithLabelValues(res, src).Observe(sinceMs(started))
}

// ObserveDrawPool records the pool size of a committed draw.
func ObserveDrawPool(size int) {
	drawPoolSize.Observe(float64(size))
}
