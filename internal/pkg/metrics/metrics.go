package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultDelivered        = "delivered"
	ResultMalformed        = "malformed"
	ResultPersistenceError = "persistence_error"
)

var (
	// Registry holds the chat service collectors.
	Registry = prometheus.NewRegistry()

	connections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "storefront_chat",
			Subsystem: "ws",
			Name:      "connections",
			Help:      "Current number of open websocket connections.",
		},
	)

	onlineUsers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "storefront_chat",
			Subsystem: "presence",
			Name:      "online_users",
			Help:      "Users currently identified on this instance.",
		},
	)

	messagesSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront_chat",
			Subsystem: "messages",
			Name:      "submitted_total",
			Help:      "Messages submitted to the pipeline, by outcome.",
		},
		[]string{"result"},
	)

	submitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "storefront_chat",
			Subsystem: "messages",
			Name:      "submit_duration_seconds",
			Help:      "Time from receipt to broadcast of a chat message.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	roomDeliveries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "storefront_chat",
			Subsystem: "rooms",
			Name:      "deliveries_total",
			Help:      "Payloads handed to room subscribers on this instance.",
		},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront_chat",
			Subsystem: "notifications",
			Name:      "delivered_total",
			Help:      "Notification events delivered, by scope.",
		},
		[]string{"scope"},
	)

	slowConsumers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "storefront_chat",
			Subsystem: "ws",
			Name:      "slow_consumer_disconnects_total",
			Help:      "Connections closed because their send buffer was full.",
		},
	)

	relayEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront_chat",
			Subsystem: "relay",
			Name:      "events_total",
			Help:      "Cluster relay events, by direction.",
		},
		[]string{"direction"},
	)
)

func init() {
	Registry.MustRegister(
		connections,
		onlineUsers,
		messagesSubmitted,
		submitDuration,
		roomDeliveries,
		notifications,
		slowConsumers,
		relayEvents,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func ConnectionOpened() { connections.Inc() }

func ConnectionClosed() { connections.Dec() }

func SetOnlineUsers(n int) { onlineUsers.Set(float64(n)) }

func RecordSubmit(result string, started time.Time) {
	messagesSubmitted.WithLabelValues(result).Inc()
	if result == ResultDelivered {
		submitDuration.Observe(time.Since(started).Seconds())
	}
}

func RecordRoomDeliveries(n int) { roomDeliveries.Add(float64(n)) }

func RecordNotification(scope string) { notifications.WithLabelValues(scope).Inc() }

func RecordSlowConsumer() { slowConsumers.Inc() }

// RecordRelay counts relay traffic; direction is "out" or "in".
func RecordRelay(direction string) { relayEvents.WithLabelValues(direction).Inc() }
