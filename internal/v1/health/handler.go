package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Source exposes the registry counters the readiness probe reports.
type Source interface {
	SessionCount() int
}

// RoomSource exposes the room registry counter.
type RoomSource interface {
	RoomCount() int
}

// Handler manages health check endpoints
type Handler struct {
	sessions Source
	rooms    RoomSource
}

// NewHandler creates a new health check handler
func NewHandler(sessions Source, rooms RoomSource) *Handler {
	return &Handler{sessions: sessions, rooms: rooms}
}

// LivenessResponse represents the liveness probe response
type LivenessResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadinessResponse represents the readiness probe response
type ReadinessResponse struct {
	Status    string         `json:"status"`
	Stats     map[string]int `json:"stats"`
	Timestamp string         `json:"timestamp"`
}

// Liveness handles the liveness probe endpoint
// GET /health/live
// Returns 200 if the process is alive (no dependency checks)
func (h *Handler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness handles the readiness probe endpoint
// GET /health/ready
// The core has no external dependencies, so readiness reports the registry
// counters alongside the status for operators.
func (h *Handler) Readiness(c *gin.Context) {
	stats := map[string]int{}
	if h.sessions != nil {
		stats["sessions"] = h.sessions.SessionCount()
	}
	if h.rooms != nil {
		stats["rooms"] = h.rooms.RoomCount()
	}

	c.JSON(http.StatusOK, ReadinessResponse{
		Status:    "ready",
		Stats:     stats,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
