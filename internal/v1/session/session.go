// Package session implements the per-stream Session and the SessionManager
// that owns the durable-identity registry and the reconnection hand-off.
//
// Each Session runs two goroutines, a readPump and a writePump, plus a
// liveness checker ticking on the heartbeat interval. The session moves
// through three liveness states: alive, waiting (grace window open after
// detected staleness or stream loss) and dead (terminator fired). A fresh
// stream presenting the same user id within the grace window takes over the
// registry record and the room seat; the superseded session is stopped
// without ever unregistering.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/asifZaman0362/zgm-srv/internal/v1/logging"
	"github.com/asifZaman0362/zgm-srv/internal/v1/metrics"
	"github.com/asifZaman0362/zgm-srv/internal/v1/protocol"
	"github.com/asifZaman0362/zgm-srv/internal/v1/room"
	"github.com/asifZaman0362/zgm-srv/internal/v1/types"

	"github.com/gorilla/websocket"
)

const (
	writeWait   = 10 * time.Second
	maxMsgSize  = 4096
	sendBufSize = 64
)

// Timings are the liveness parameters of a session.
type Timings struct {
	// HBCheckInterval is how often staleness is evaluated.
	HBCheckInterval time.Duration
	// HBTimeLimit is how stale the last heartbeat may be before the
	// reconnection window opens.
	HBTimeLimit time.Duration
	// ReconnectionTimeLimit is the grace window measured from detected
	// staleness; when it elapses the session is torn down for good.
	ReconnectionTimeLimit time.Duration
}

// DefaultTimings returns the production liveness parameters.
func DefaultTimings() Timings {
	return Timings{
		HBCheckInterval:       5 * time.Second,
		HBTimeLimit:           2 * time.Second,
		ReconnectionTimeLimit: 15 * time.Second,
	}
}

// wsConnection is the subset of *websocket.Conn a session uses. Tests
// substitute mock connections.
type wsConnection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
}

// Session owns one client stream: it terminates the heartbeat, decodes
// incoming frames, and forwards outgoing frames. It dies on explicit
// Logout, on supersedure by a reconnecting stream, or when the grace
// window elapses.
type Session struct {
	conn          wsConnection
	send          chan []byte
	done          chan struct{}
	closeOnce     sync.Once
	mgr           *Manager
	rooms         *room.Manager
	timings       Timings
	correlationID string

	mu             sync.Mutex
	userID         types.UserID
	transientID    types.TransientID
	hb             time.Time
	waiting        bool
	reconnectTimer *time.Timer
	room           *room.Room
	terminated     bool
}

func newSession(conn wsConnection, mgr *Manager, rooms *room.Manager, timings Timings, correlationID string) *Session {
	return &Session{
		conn:          conn,
		send:          make(chan []byte, sendBufSize),
		done:          make(chan struct{}),
		mgr:           mgr,
		rooms:         rooms,
		timings:       timings,
		correlationID: correlationID,
		hb:            time.Now(),
	}
}

func (s *Session) ctx() context.Context {
	ctx := context.WithValue(context.Background(), logging.CorrelationIDKey, s.correlationID)
	if uid := s.UserID(); uid != "" {
		ctx = context.WithValue(ctx, logging.UserIDKey, string(uid))
	}
	return ctx
}

// UserID returns the durable identity, empty until Login.
func (s *Session) UserID() types.UserID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// TransientID returns the stream id, zero until registered.
func (s *Session) TransientID() types.TransientID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transientID
}

// Room returns the room the session is currently in, if any.
func (s *Session) Room() *room.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// run starts the session's goroutines.
func (s *Session) run() {
	go s.writePump()
	go s.livenessChecker()
	go s.readPump()
}

// --- pumps ---

func (s *Session) readPump() {
	defer s.onStreamClosed()

	s.conn.SetReadLimit(maxMsgSize)
	s.conn.SetPongHandler(func(string) error {
		s.touch()
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.touch()

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logging.Error(s.ctx(), "failed to deserialize message", zap.Error(err))
			continue
		}
		s.handleFrame(env, data)
	}
}

func (s *Session) writePump() {
	// Ping at half the heartbeat limit so a healthy client always has a
	// pong in flight before staleness can be detected.
	ticker := time.NewTicker(s.timings.HBTimeLimit / 2)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// livenessChecker evaluates staleness every HBCheckInterval. Detecting a
// heartbeat older than HBTimeLimit opens the reconnection window by
// scheduling the one-shot terminator.
func (s *Session) livenessChecker() {
	ticker := time.NewTicker(s.timings.HBCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			if !s.terminated && !s.waiting && time.Since(s.hb) >= s.timings.HBTimeLimit {
				s.openGraceWindowLocked()
			}
			s.mu.Unlock()
		case <-s.done:
			return
		}
	}
}

// touch records a heartbeat. A pong or any data frame closes an open grace
// window and cancels the terminator.
func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hb = time.Now()
	if s.waiting {
		s.waiting = false
		if s.reconnectTimer != nil {
			s.reconnectTimer.Stop()
			s.reconnectTimer = nil
		}
	}
}

// openGraceWindowLocked schedules the terminator. Caller holds s.mu, so the
// log context is built from the fields directly rather than through ctx().
func (s *Session) openGraceWindowLocked() {
	s.waiting = true
	s.reconnectTimer = time.AfterFunc(s.timings.ReconnectionTimeLimit, s.expire)
	ctx := context.WithValue(context.Background(), logging.CorrelationIDKey, s.correlationID)
	if s.userID != "" {
		ctx = context.WithValue(ctx, logging.UserIDKey, string(s.userID))
	}
	logging.Info(ctx, "client stale, reconnection window open",
		zap.Duration("window", s.timings.ReconnectionTimeLimit))
}

// expire is the one-shot terminator: the grace window elapsed with no
// reconnection, so the session unregisters and dies.
func (s *Session) expire() {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return
	}
	s.terminated = true
	tid := s.transientID
	s.transientID = 0
	s.userID = ""
	s.mu.Unlock()

	if tid != 0 {
		logging.Info(s.ctx(), "reconnection window elapsed, unregistering", logging.Session(tid))
		s.mgr.Unregister(tid, protocol.ReasonDisconnected)
	}
	s.shutdown()
}

// onStreamClosed runs when the read pump exits. An unauthenticated or
// already-terminated session is cleaned up immediately; a registered one
// keeps its record alive for the remainder of the grace window so a new
// stream can take over.
func (s *Session) onStreamClosed() {
	metrics.DecConnection()

	s.mu.Lock()
	if s.terminated || s.transientID == 0 {
		s.mu.Unlock()
		s.shutdown()
		return
	}
	if !s.waiting {
		s.openGraceWindowLocked()
	}
	s.mu.Unlock()
}

// Stop retires a session superseded by a reconnecting stream: the
// replacement owns the registry record now, so no Unregister is ever sent.
// Any open reconnection window is cancelled first.
func (s *Session) Stop() {
	s.mu.Lock()
	s.terminated = true
	s.transientID = 0
	s.userID = ""
	s.waiting = false
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	s.mu.Unlock()
	s.shutdown()
}

func (s *Session) shutdown() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// --- room.ClientSession ---

// Send serializes and queues an outgoing frame. Errors are logged, never
// surfaced; a full buffer drops the frame rather than blocking the room.
func (s *Session) Send(env protocol.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		logging.Error(s.ctx(), "error serializing message", zap.Error(err))
		return
	}
	select {
	case s.send <- data:
	default:
		logging.Warn(s.ctx(), "send buffer full, dropping frame", zap.String("kind", string(env.Kind)))
	}
}

// ClearRoom handles eviction by the room: drop the local reference, tell
// the client, and update the session manager. Repeated calls re-emit the
// client frame but never duplicate the manager update.
func (s *Session) ClearRoom(reason protocol.RemoveReason) {
	s.mu.Lock()
	hadRoom := s.room != nil
	s.room = nil
	tid := s.transientID
	s.mu.Unlock()

	env, err := protocol.NewEnvelope(protocol.KindRemoveFromRoom, protocol.RemoveFromRoomPayload{Reason: reason})
	if err != nil {
		logging.Error(s.ctx(), "error serializing message", zap.Error(err))
	} else {
		s.Send(env)
	}

	if hadRoom && tid != 0 {
		s.mgr.UpdateSessionRoomInfo(tid, nil)
	}
}

// Reconnected attaches the session to the room it re-entered through the
// reconnection hand-off and seeds the client with RestoreState.
func (s *Session) Reconnected(r *room.Room, code types.RoomCode, state json.RawMessage) {
	s.mu.Lock()
	s.room = r
	s.mu.Unlock()

	env, err := protocol.NewEnvelope(protocol.KindRestoreState, protocol.RestoreStatePayload{
		Code: code,
		Game: state,
	})
	if err != nil {
		logging.Error(s.ctx(), "game state serialization failed", zap.Error(err))
		return
	}
	s.Send(env)
}
