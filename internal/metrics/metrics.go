package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ResultSuccess is the result label of a call that returned no error.
const ResultSuccess = "success"

var durationBuckets = prometheus.ExponentialBuckets(1, 2, 12)

func label(s, def string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return def
	}
	return s
}

func sinceMs(started time.Time) float64 {
	return float64(time.Since(started).Microseconds()) / 1000
}
