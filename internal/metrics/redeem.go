package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	redeemTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lotto_redeem_total",
			Help: "Redemptions by result and matched tier",
		},
		[]string{"result", "tier"},
	)

	redeemDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lotto_redeem_duration_ms",
			Help:    "Redemption duration in milliseconds",
			Buckets: durationBuckets,
		},
		[]string{"result"},
	)
)

// RecordRedeem records one redeem call; tier is empty unless a prize matched.
func RecordRedeem(result, tier string, started time.Time) {
	res := label(result, "unknown")
	redeemTotal.WithLabelValues(res, label(tier, "none")).Inc()
	redeemDuration.WithLabelValues(res).Observe(sinceMs(started))
}
