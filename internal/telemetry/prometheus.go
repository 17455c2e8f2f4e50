package telemetry

import "github.com/prometheus/client_golang/prometheus"

const telehealthNamespace string = "telehealth"

var (
	promConnectionsTotal prometheus.Gauge
	promRoomMembers      *prometheus.GaugeVec
	promEnvelopes        *prometheus.CounterVec
	EventCounter         *prometheus.CounterVec
)

func init() {
	promConnectionsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: telehealthNamespace,
		Subsystem: "connection",
		Name:      "total",
	})

	promRoomMembers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: telehealthNamespace,
			Subsystem: "room",
			Name:      "members",
		},
		[]string{"room"},
	)

	promEnvelopes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: telehealthNamespace,
			Subsystem: "relay",
			Name:      "envelopes",
		},
		[]string{"method", "status"},
	)

	EventCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: telehealthNamespace,
			Subsystem: "signaling",
			Name:      "events",
		},
		[]string{"method", "status", "error_type"},
	)

	prometheus.MustRegister(promConnectionsTotal)
	prometheus.MustRegister(promRoomMembers)
	prometheus.MustRegister(promEnvelopes)
	prometheus.MustRegister(EventCounter)
}

func ConnectionOpened() {
	promConnectionsTotal.Inc()
}

func ConnectionClosed() {
	promConnectionsTotal.Dec()
}

func RoomMembers(room string, n int) {
	promRoomMembers.WithLabelValues(room).Set(float64(n))
}

func EnvelopeRelayed(method string) {
	promEnvelopes.WithLabelValues(method, "relayed").Inc()
}

func EnvelopeDropped(method string) {
	promEnvelopes.WithLabelValues(method, "dropped").Inc()
}

func EventHandled(method string) {
	EventCounter.WithLabelValues(method, "ok", "").Inc()
}

func EventRejected(method string, errorType string) {
	EventCounter.WithLabelValues(method, "rejected", errorType).Inc()
}
