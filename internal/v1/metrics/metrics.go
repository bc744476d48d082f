package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the lobby/game coordination server.
//
// Naming convention: namespace_subsystem_name
// - namespace: zgm (application-level grouping)
// - subsystem: websocket, session, room (feature-level grouping)
//
// Gauges report current state (connections, rooms, pool sizes); counters
// report cumulative events (frames, joins, reconnections).

var (
	// ActiveConnections tracks the current number of live WebSocket streams.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "zgm",
		Subsystem: "websocket",
		Name:      "connections_active",
		Help:      "Current number of active WebSocket connections",
	})

	// RegisteredSessions tracks sessions that have completed Login.
	RegisteredSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "zgm",
		Subsystem: "session",
		Name:      "registered_total",
		Help:      "Current number of registered sessions",
	})

	// Reconnections counts successful same-user stream hand-offs.
	Reconnections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "zgm",
		Subsystem: "session",
		Name:      "reconnections_total",
		Help:      "Total client reconnection hand-offs",
	})

	// ActiveRooms tracks the current number of live rooms.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "zgm",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of active rooms",
	})

	// RoomPoolSize tracks the availability pools by name (free/open/reserved).
	RoomPoolSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "zgm",
		Subsystem: "room",
		Name:      "pool_size",
		Help:      "Number of room codes in each availability pool",
	}, []string{"pool"})

	// RoomOccupancy tracks the number of seated players per room.
	RoomOccupancy = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "zgm",
		Subsystem: "room",
		Name:      "occupancy",
		Help:      "Number of players seated in each room",
	}, []string{"room_code"})

	// FramesProcessed counts decoded client frames by kind and status.
	FramesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zgm",
		Subsystem: "websocket",
		Name:      "frames_total",
		Help:      "Total client frames processed",
	}, []string{"kind", "status"})

	// JoinResults counts join outcomes by error tag ("ok" on success).
	JoinResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zgm",
		Subsystem: "room",
		Name:      "join_results_total",
		Help:      "Total join requests by outcome",
	}, []string{"outcome"})

	// GamesStarted counts matches begun across all rooms.
	GamesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "zgm",
		Subsystem: "room",
		Name:      "games_started_total",
		Help:      "Total games started",
	})
)

func IncConnection() {
	ActiveConnections.Inc()
}

func DecConnection() {
	ActiveConnections.Dec()
}
