package metrics

import "github.com/prometheus/client_golang/prometheus"

// Gauges are C8's periodic snapshot targets (spec §6 metrics tick, every
// 60s): live titan count, connected players, total registered players, and
// open WebSocket connections.
var (
	ActiveTitans = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "breach",
		Name:      "active_titans",
		Help:      "Number of unexpired titan spawns with captures remaining.",
	})

	ActivePlayers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "breach",
		Name:      "active_players",
		Help:      "Number of players with a location update in the last 5 minutes.",
	})

	TotalPlayers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "breach",
		Name:      "total_players",
		Help:      "Total registered players.",
	})

	WebsocketConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "breach",
		Name:      "websocket_connections",
		Help:      "Currently open WebSocket subscriber connections.",
	})
)

// Register registers the BREACH-specific gauges with the process's default
// Prometheus registry.
func Register() {
	prometheus.MustRegister(ActiveTitans, ActivePlayers, TotalPlayers, WebsocketConnections)
}
