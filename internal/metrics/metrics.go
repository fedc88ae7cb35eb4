package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConnectionsActive = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "bustracker", Name: "connections_active", Help: "Open websocket sessions",
	}, []string{"kind"})
	EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bustracker", Name: "events_total", Help: "Inbound socket events",
	}, []string{"event"})
	BroadcastsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bustracker", Name: "broadcasts_total", Help: "Room broadcasts by room family",
	}, []string{"room"})
	AuthFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bustracker", Name: "auth_failures_total", Help: "Rejected connection attempts",
	})
	JoinDenied = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bustracker", Name: "room_join_denied_total", Help: "Denied room join requests",
	})
	LocationWriteErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bustracker", Name: "location_write_errors_total", Help: "Failed fire-and-forget bus location writes",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bustracker", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		ConnectionsActive, EventsTotal, BroadcastsTotal,
		AuthFailures, JoinDenied, LocationWriteErrors, DBPing,
	)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }
