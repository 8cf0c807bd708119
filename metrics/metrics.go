package metrics

import (
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Session Metrics
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "booth_sessions_active",
		Help: "The current number of live sessions in the registry.",
	})
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booth_sessions_created_total",
		Help: "The total number of sessions minted.",
	})
	SessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booth_sessions_expired_total",
		Help: "The total number of sessions reclaimed by the expiry sweeper.",
	})

	// Capture Round Metrics
	RoundsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booth_rounds_started_total",
		Help: "The total number of capture rounds begun.",
	})
	RoundsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booth_rounds_delivered_total",
		Help: "The total number of capture rounds that delivered an artifact.",
	})
	RoundsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booth_rounds_failed_total",
		Help: "The total number of capture rounds that ended in failure.",
	}, []string{"reason"})

	// Relay Metrics
	RelayDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booth_relay_drops_total",
		Help: "The total number of relayed messages dropped because the peer role was unbound.",
	})

	// WebSocket Metrics
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections_active",
		Help: "The current number of active WebSocket connections.",
	})
	TotalConnections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_connections_total",
		Help: "The total number of WebSocket connections accepted.",
	})
	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_messages_received_total",
		Help: "The total number of messages received from clients.",
	})
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_messages_sent_total",
		Help: "The total number of messages sent to clients.",
	})
)

// StartServer starts the HTTP server for Prometheus metrics.
func StartServer(port int, path string) {
	http.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	log.Printf("Starting metrics server on %s%s", addr, path)

	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.Fatalf("Failed to start metrics server: %v", err)
		}
	}()
}
