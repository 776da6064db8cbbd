package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var outboxPublished = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lotto_outbox_publish_total",
		Help: "Outbox messages handed to the publisher by topic and result",
	},
	[]string{"topic", "result"},
)

// RecordOutbox counts one publish attempt. result: "success" | "fail".
func RecordOutbox(topic, result string) {
	if result != ResultSuccess {
		result = "fail"
	}
	outboxPublished.WithLabelValues(label(topic, "unknown"), result).Inc()
}
