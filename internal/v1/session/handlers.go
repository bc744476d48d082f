package session

import (
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/asifZaman0362/zgm-srv/internal/v1/logging"
	"github.com/asifZaman0362/zgm-srv/internal/v1/metrics"
	"github.com/asifZaman0362/zgm-srv/internal/v1/protocol"
	"github.com/asifZaman0362/zgm-srv/internal/v1/room"
	"github.com/asifZaman0362/zgm-srv/internal/v1/types"
)

// handleFrame routes one decoded client frame. A failing frame is logged
// and dropped; it never terminates the session, because the stream is the
// player's only link to a room other clients share.
func (s *Session) handleFrame(env protocol.Envelope, raw []byte) {
	switch env.Kind {
	case protocol.KindLogin:
		s.handleLogin(env)
	case protocol.KindLogout:
		s.handleLogout()
	case protocol.KindJoinRoom:
		s.handleJoinRoom(env)
	case protocol.KindCreateRoom:
		s.handleCreateRoom(env)
	case protocol.KindLeaveRoom:
		s.handleLeaveRoom()
	case protocol.KindRequestStart:
		s.handleRequestStart()
	default:
		// Anything else is game input, delivered opaquely to the room.
		if r := s.Room(); r != nil {
			r.OnInput(s.TransientID(), json.RawMessage(raw))
			metrics.FramesProcessed.WithLabelValues(string(env.Kind), "forwarded").Inc()
			return
		}
		logging.Warn(s.ctx(), "dropping frame with no room to route to", zap.String("kind", string(env.Kind)))
		metrics.FramesProcessed.WithLabelValues(string(env.Kind), "dropped").Inc()
	}
}

func (s *Session) handleLogin(env protocol.Envelope) {
	var payload protocol.LoginPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil || payload.UserID == "" {
		logging.Error(s.ctx(), "malformed Login frame", zap.Error(err))
		metrics.FramesProcessed.WithLabelValues(string(protocol.KindLogin), "error").Inc()
		return
	}
	if s.UserID() != "" {
		// A second Login on a live session is rejected with no state change.
		logging.Error(s.ctx(), "attempting to re-login", logging.User(types.UserID(payload.UserID)))
		metrics.FramesProcessed.WithLabelValues(string(protocol.KindLogin), "error").Inc()
		return
	}

	uid := types.UserID(payload.UserID)
	tid := s.mgr.Register(s, uid)

	s.mu.Lock()
	s.userID = uid
	s.transientID = tid
	s.mu.Unlock()
	metrics.FramesProcessed.WithLabelValues(string(protocol.KindLogin), "ok").Inc()
}

func (s *Session) handleLogout() {
	s.mu.Lock()
	s.terminated = true
	tid := s.transientID
	s.transientID = 0
	s.userID = ""
	s.room = nil
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	s.mu.Unlock()

	if tid != 0 {
		s.mgr.Unregister(tid, protocol.ReasonLogout)
	}
	metrics.FramesProcessed.WithLabelValues(string(protocol.KindLogout), "ok").Inc()
	s.shutdown()
}

func (s *Session) handleJoinRoom(env protocol.Envelope) {
	var payload protocol.JoinRoomPayload
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			logging.Error(s.ctx(), "malformed JoinRoom frame", zap.Error(err))
			metrics.FramesProcessed.WithLabelValues(string(protocol.KindJoinRoom), "error").Inc()
			return
		}
	}

	tid := s.TransientID()
	if tid == 0 {
		s.sendResult(protocol.ResultOfJoinRoom, false, protocol.ErrNotSignedIn)
		return
	}

	var code *types.RoomCode
	if payload.Code != nil {
		// Malformed codes are rejected here, before the room manager is
		// ever contacted.
		if !types.ValidRoomCode(*payload.Code) {
			metrics.JoinResults.WithLabelValues(string(protocol.ErrInvalidCode)).Inc()
			s.sendResult(protocol.ResultOfJoinRoom, false, protocol.ErrInvalidCode)
			return
		}
		c := types.RoomCode(*payload.Code)
		code = &c
	}

	acquired, r, err := s.rooms.JoinRoom(tid, s, code)
	if err != nil {
		tag := joinErrorTag(err)
		metrics.JoinResults.WithLabelValues(string(tag)).Inc()
		s.sendResult(protocol.ResultOfJoinRoom, false, tag)
		return
	}

	s.attachRoom(tid, r)
	metrics.JoinResults.WithLabelValues("ok").Inc()
	s.sendResult(protocol.ResultOfJoinRoom, true, acquired)
}

func (s *Session) handleCreateRoom(env protocol.Envelope) {
	var payload protocol.CreateRoomPayload
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			logging.Error(s.ctx(), "malformed CreateRoom frame", zap.Error(err))
			metrics.FramesProcessed.WithLabelValues(string(protocol.KindCreateRoom), "error").Inc()
			return
		}
	}

	tid := s.TransientID()
	if tid == 0 {
		s.sendResult(protocol.ResultOfCreateRoom, false, protocol.ErrNotSignedIn)
		return
	}
	if s.Room() != nil {
		s.sendResult(protocol.ResultOfCreateRoom, false, protocol.ErrAlreadyInRoom)
		return
	}

	code, r, err := s.rooms.CreateRoom(tid, s, room.Config{
		Public:     payload.Public,
		MaxPlayers: payload.MaxPlayers,
	})
	if err != nil {
		s.sendResult(protocol.ResultOfCreateRoom, false, joinErrorTag(err))
		return
	}

	s.attachRoom(tid, r)
	s.sendResult(protocol.ResultOfCreateRoom, true, code)
}

func (s *Session) handleLeaveRoom() {
	s.mu.Lock()
	r := s.room
	s.room = nil
	tid := s.transientID
	s.mu.Unlock()

	if r == nil || tid == 0 {
		return
	}
	// The local reference is cleared before the room hears about the
	// leave, so the LeaveRequested removal sends no ClearRoom back.
	s.mgr.UpdateSessionRoomInfo(tid, nil)
	r.RemovePlayer(tid, protocol.ReasonLeaveRequested)
	metrics.FramesProcessed.WithLabelValues(string(protocol.KindLeaveRoom), "ok").Inc()
}

func (s *Session) handleRequestStart() {
	r := s.Room()
	if r == nil {
		logging.Warn(s.ctx(), "start requested outside a room")
		return
	}
	if err := r.RequestStart(s.TransientID()); err != nil {
		var startErr protocol.StartGameError
		if errors.As(err, &startErr) {
			s.sendResult(protocol.ResultOfStartGame, false, startErr)
			return
		}
		s.sendResult(protocol.ResultOfStartGame, false, protocol.ErrInternalServerError)
	}
}

// attachRoom stores the acquired room and mirrors it into the manager's
// record.
func (s *Session) attachRoom(tid types.TransientID, r *room.Room) {
	s.mu.Lock()
	s.room = r
	s.mu.Unlock()
	s.mgr.UpdateSessionRoomInfo(tid, r)
}

func (s *Session) sendResult(of protocol.ResultOf, success bool, info any) {
	env, err := protocol.Result(of, success, info)
	if err != nil {
		logging.Error(s.ctx(), "error serializing result", zap.Error(err))
		return
	}
	s.Send(env)
}

func joinErrorTag(err error) protocol.JoinRoomError {
	var joinErr protocol.JoinRoomError
	if errors.As(err, &joinErr) {
		return joinErr
	}
	return protocol.ErrInternalServerError
}
