package session

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/asifZaman0362/zgm-srv/internal/v1/logging"
	"github.com/asifZaman0362/zgm-srv/internal/v1/metrics"
	"github.com/asifZaman0362/zgm-srv/internal/v1/middleware"
	"github.com/asifZaman0362/zgm-srv/internal/v1/protocol"
	"github.com/asifZaman0362/zgm-srv/internal/v1/room"
	"github.com/asifZaman0362/zgm-srv/internal/v1/types"
)

// transientIDWrap is where the id counter wraps back to 1. Purely cosmetic
// stability: ids stay within ten digits. Collisions with a live id after a
// wrap are rejected by retrying.
const transientIDWrap = 10_000_000_000

// record is the manager's entry for one signed-in user. At most one record
// exists per UserID; its transient id always matches the live session, and
// if room is set that room holds this user in its roster.
type record struct {
	session     *Session
	transientID types.TransientID
	room        *room.Room
}

// Manager is the authoritative UserID ↔ TransientID registry. It assigns
// stream ids, maps users to their live sessions and drives the
// reconnection hand-off.
type Manager struct {
	mu       sync.Mutex
	sessions map[types.UserID]*record
	byTID    map[types.TransientID]types.UserID
	counter  types.TransientID

	rooms          *room.Manager
	timings        Timings
	allowedOrigins []string
}

// NewManager constructs a session manager wired to the room manager.
func NewManager(rooms *room.Manager, timings Timings, allowedOrigins []string) *Manager {
	return &Manager{
		sessions:       make(map[types.UserID]*record),
		byTID:          make(map[types.TransientID]types.UserID),
		rooms:          rooms,
		timings:        timings,
		allowedOrigins: allowedOrigins,
	}
}

// SessionCount returns the number of registered sessions.
func (m *Manager) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) nextIDLocked() types.TransientID {
	for {
		m.counter++
		if m.counter >= transientIDWrap {
			m.counter = 1
		}
		if _, live := m.byTID[m.counter]; !live {
			return m.counter
		}
	}
}

// Register assigns a fresh transient id to a session presenting a user
// identity. If the user already has a live session this is a reconnection:
// the room (if any) learns the new session reference first, and only then
// is the old session stopped. That ordering is mandatory — it prevents the
// old session's teardown from racing an Unregister(Disconnected) into the
// room after the seat was rewired. The whole hand-off runs under the
// manager's lock, which serializes it against any concurrent Unregister.
func (m *Manager) Register(s *Session, userID types.UserID) types.TransientID {
	m.mu.Lock()
	defer m.mu.Unlock()

	tid := m.nextIDLocked()

	rec, ok := m.sessions[userID]
	if !ok {
		m.sessions[userID] = &record{session: s, transientID: tid}
		m.byTID[tid] = userID
		metrics.RegisteredSessions.Set(float64(len(m.sessions)))
		logging.Info(s.ctx(), "session registered",
			logging.User(userID), logging.Session(tid))
		return tid
	}

	// Reconnection hand-off: room first, then stop the predecessor.
	old := rec.session
	oldTID := rec.transientID
	if rec.room != nil {
		rec.room.ClientReconnection(oldTID, tid, s)
		metrics.Reconnections.Inc()
	}
	old.Stop()

	rec.session = s
	rec.transientID = tid
	delete(m.byTID, oldTID)
	m.byTID[tid] = userID

	logging.Info(s.ctx(), "session reconnected",
		logging.User(userID),
		zap.Uint64("replacee", uint64(oldTID)),
		logging.Session(tid))
	return tid
}

// Unregister removes a session's registry entries. If the user was in a
// room, the room is told to vacate the seat with the given reason.
func (m *Manager) Unregister(tid types.TransientID, reason protocol.RemoveReason) {
	m.mu.Lock()
	userID, ok := m.byTID[tid]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.byTID, tid)
	rec := m.sessions[userID]
	delete(m.sessions, userID)
	metrics.RegisteredSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	if rec != nil && rec.room != nil {
		rec.room.RemovePlayer(tid, reason)
	}
}

// UpdateSessionRoomInfo sets or clears a record's room back-pointer.
// Sessions notify the manager when they join or leave a room.
func (m *Manager) UpdateSessionRoomInfo(tid types.TransientID, r *room.Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	userID, ok := m.byTID[tid]
	if !ok {
		return
	}
	if rec, ok := m.sessions[userID]; ok {
		rec.room = r
	}
}

// GetUser resolves a transient id to its durable user identity.
func (m *Manager) GetUser(tid types.TransientID) (types.UserID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	userID, ok := m.byTID[tid]
	return userID, ok
}

// ServeWs upgrades an HTTP request into a WebSocket stream and births a
// Session for it. Identity arrives later over the stream via Login.
func (m *Manager) ServeWs(c *gin.Context) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // non-browser clients
			}
			originURL, err := url.Parse(origin)
			if err != nil {
				return false
			}
			for _, allowed := range m.allowedOrigins {
				allowedURL, err := url.Parse(allowed)
				if err != nil {
					continue
				}
				if originURL.Scheme == allowedURL.Scheme && originURL.Host == allowedURL.Host {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Error(c.Request.Context(), "failed to upgrade connection", zap.Error(err))
		return
	}

	// The stream inherits the upgrade request's correlation id so its log
	// lines trace back to the request that opened it.
	s := newSession(conn, m, m.rooms, m.timings, middleware.FromContext(c))
	metrics.IncConnection()
	logging.Info(s.ctx(), "client connected")
	s.run()
}
