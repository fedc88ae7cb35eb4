package publisher

import "github.com/prometheus/client_golang/prometheus"

var (
	natsPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bustracker", Name: "nats_published_total",
		Help: "Position messages published to NATS",
	})

	natsPublishErrs = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bustracker", Name: "nats_publish_errors_total",
		Help: "Failed NATS publishes",
	})

	natsConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bustracker", Name: "nats_connected",
		Help: "Whether the NATS connection is up",
	})
)

func init() {
	prometheus.MustRegister(natsPublished, natsPublishErrs, natsConnected)
}
