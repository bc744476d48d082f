// Package room implements the Room and RoomManager halves of the
// coordination core: bounded membership with stable seat indices, game
// lifecycle, and the free/open/reserved matching pools.
package room

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/asifZaman0362/zgm-srv/internal/v1/game"
	"github.com/asifZaman0362/zgm-srv/internal/v1/logging"
	"github.com/asifZaman0362/zgm-srv/internal/v1/metrics"
	"github.com/asifZaman0362/zgm-srv/internal/v1/protocol"
	"github.com/asifZaman0362/zgm-srv/internal/v1/types"
)

// ClientSession is the surface a Room needs from a player's session. In
// production it is implemented by session.Session; tests substitute mocks.
type ClientSession interface {
	// Send queues an outgoing frame. It must never block.
	Send(env protocol.Envelope)
	// ClearRoom tells the session its membership was revoked. The session
	// drops its room reference, forwards RemoveFromRoom to the client and
	// updates the session manager.
	ClearRoom(reason protocol.RemoveReason)
	// Reconnected attaches the session to the room it re-entered via the
	// reconnection hand-off and forwards RestoreState to the client.
	Reconnected(r *Room, code types.RoomCode, state json.RawMessage)
}

// Config is the per-room configuration fixed at creation.
type Config struct {
	// Public rooms enter the matchmaking pool and let any member start the
	// game. Private rooms are joinable by code only and leader-started.
	Public bool
	// MaxPlayers bounds the slot vector.
	MaxPlayers int
}

// DefaultMaxPlayers is the room capacity when the client does not ask for
// a specific one.
const DefaultMaxPlayers = 6

// Player occupies one slot of a room. The session reference may be swapped
// by a reconnection without disturbing the slot index; the index is the
// public seat number, so turn order depends on it staying put.
type Player struct {
	TransientID types.TransientID
	Session     ClientSession
}

// Room owns a lobby and, once started, its game. All state is guarded by
// mu; cross-component notifications that could re-enter another lock run
// on fresh goroutines.
type Room struct {
	mu sync.Mutex

	code   types.RoomCode
	cfg    Config
	mgr    *Manager
	mode   game.Mode
	leader types.TransientID

	players []*Player // nil entries are empty slots
	index   map[types.TransientID]int
	count   int

	game   *game.Game
	closed bool
}

func newRoom(code types.RoomCode, mgr *Manager, mode game.Mode, leaderID types.TransientID, leaderSession ClientSession, cfg Config) *Room {
	if cfg.MaxPlayers <= 0 {
		cfg.MaxPlayers = DefaultMaxPlayers
	}
	r := &Room{
		code:    code,
		cfg:     cfg,
		mgr:     mgr,
		mode:    mode,
		leader:  leaderID,
		players: make([]*Player, 0, cfg.MaxPlayers),
		index:   make(map[types.TransientID]int, cfg.MaxPlayers),
	}
	r.players = append(r.players, &Player{TransientID: leaderID, Session: leaderSession})
	r.index[leaderID] = 0
	r.count = 1
	metrics.ActiveRooms.Inc()
	metrics.RoomOccupancy.WithLabelValues(string(code)).Set(1)
	return r
}

// Code returns the room's public handle.
func (r *Room) Code() types.RoomCode { return r.code }

// PlayerCount returns the number of occupied slots.
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// AddPlayer admits a player into the lobby. It fails while a game runs, at
// capacity, or on a duplicate transient id.
func (r *Room) AddPlayer(id types.TransientID, cs ClientSession) (types.RoomCode, *Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return "", nil, protocol.ErrRoomNotFound
	}
	if r.game != nil {
		return "", nil, protocol.ErrGameInProgress
	}
	if r.count >= r.cfg.MaxPlayers {
		return "", nil, protocol.ErrRoomFull
	}
	if _, ok := r.index[id]; ok {
		return "", nil, protocol.ErrAlreadyInRoom
	}

	slot := -1
	for i, p := range r.players {
		if p == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		r.players = append(r.players, nil)
		slot = len(r.players) - 1
	}
	r.players[slot] = &Player{TransientID: id, Session: cs}
	r.index[id] = slot
	r.count++
	metrics.RoomOccupancy.WithLabelValues(string(r.code)).Set(float64(r.count))

	if r.count >= r.cfg.MaxPlayers {
		r.mgr.UpdateRoomMatchAvailability(r.code, UnavailableFull)
	}
	return r.code, r, nil
}

// RemovePlayer vacates a player's slot. On LeaveRequested the client has
// already cleared its local room reference, so no ClearRoom is sent (an
// extra message would desync it); every other reason notifies the evicted
// session. The last player out closes the room.
func (r *Room) RemovePlayer(id types.TransientID, reason protocol.RemoveReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	slot, ok := r.index[id]
	if !ok {
		return
	}
	p := r.players[slot]
	r.players[slot] = nil
	delete(r.index, id)
	wasFull := r.count >= r.cfg.MaxPlayers
	r.count--
	metrics.RoomOccupancy.WithLabelValues(string(r.code)).Set(float64(r.count))

	if r.game != nil {
		r.game.VacateSeat(slot)
	}

	if reason != protocol.ReasonLeaveRequested && p != nil {
		cs := p.Session
		go cs.ClearRoom(reason)
	}

	if r.count == 0 {
		r.closeLocked()
		return
	}
	if wasFull && r.game == nil {
		r.mgr.UpdateRoomMatchAvailability(r.code, Available)
	}
}

// ClientReconnection rewires a slot from the replacee's stale session to
// the replacer, keeping the slot index unchanged, and seeds the new session
// with RestoreState. Unknown replacees are a tolerated race with a
// concurrent RemovePlayer and no-op silently.
func (r *Room) ClientReconnection(replacee types.TransientID, id types.TransientID, cs ClientSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	slot, ok := r.index[replacee]
	if !ok {
		return
	}
	delete(r.index, replacee)
	r.index[id] = slot
	r.players[slot] = &Player{TransientID: id, Session: cs}

	var state json.RawMessage
	if r.game != nil {
		r.game.ReplaceSeat(slot, id)
		var err error
		state, err = r.game.StateFor(slot)
		if err != nil {
			logging.Error(context.Background(), "game state serialization failed",
				logging.Room(r.code), zap.Error(err))
			state = nil
		}
	}
	cs.Reconnected(r, r.code, state)
}

// RequestStart begins the game. Public rooms let any member start; private
// rooms restrict starting to the leader.
func (r *Room) RequestStart(id types.TransientID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return protocol.ErrGameAlreadyRunning
	}
	if r.game != nil {
		return protocol.ErrGameAlreadyRunning
	}
	if !r.cfg.Public && id != r.leader {
		return protocol.ErrNotLeader
	}

	seats := make([]types.TransientID, len(r.players))
	for i, p := range r.players {
		if p != nil {
			seats[i] = p.TransientID
		}
	}
	g, err := game.New(r.mode, &roomHooks{r}, seats)
	if err != nil {
		logging.Error(context.Background(), "failed to construct game",
			logging.Room(r.code), zap.Error(err))
		return protocol.ErrInternalServerError
	}
	r.game = g
	r.mgr.UpdateRoomMatchAvailability(r.code, UnavailableGameStarted)
	metrics.GamesStarted.Inc()

	r.broadcastLocked(protocol.Envelope{Kind: protocol.KindGameStarted})
	g.Begin()
	return nil
}

// OnInput routes an opaque game frame to the active game by seat index.
// Frames with no active game or an unknown sender are dropped.
func (r *Room) OnInput(id types.TransientID, frame json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.game == nil {
		return
	}
	slot, ok := r.index[id]
	if !ok {
		return
	}
	r.game.Input(slot, frame)
}

// CloseRoom shuts the room down, evicting every remaining player.
func (r *Room) CloseRoom() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
}

func (r *Room) closeLocked() {
	if r.closed {
		return
	}
	r.closed = true

	if g := r.game; g != nil {
		r.game = nil
		g.End()
	}
	for _, p := range r.players {
		if p != nil {
			cs := p.Session
			go cs.ClearRoom(protocol.ReasonRoomClosed)
		}
	}
	r.players = nil
	r.index = map[types.TransientID]int{}
	r.count = 0

	metrics.ActiveRooms.Dec()
	metrics.RoomOccupancy.DeleteLabelValues(string(r.code))
	logging.Info(context.Background(), "room closed", logging.Room(r.code))

	r.mgr.OnRoomClosed(r.code)
}

// broadcastLocked fans a frame out to every occupied slot.
func (r *Room) broadcastLocked(env protocol.Envelope) {
	for _, p := range r.players {
		if p != nil {
			p.Session.Send(env)
		}
	}
}

func (r *Room) notifySeatLocked(seat int, env protocol.Envelope) error {
	if seat < 0 || seat >= len(r.players) || r.players[seat] == nil {
		return protocol.ErrInternalServerError
	}
	r.players[seat].Session.Send(env)
	return nil
}

// roomHooks adapts the Room to the game.Hooks contract. Hook methods are
// invoked by the controller while the room's lock is already held.
type roomHooks struct{ r *Room }

func (h *roomHooks) Broadcast(env protocol.Envelope) {
	h.r.broadcastLocked(env)
}

func (h *roomHooks) NotifySeat(seat int, env protocol.Envelope) error {
	return h.r.notifySeatLocked(seat, env)
}

func (h *roomHooks) EndGame() {
	r := h.r
	if g := r.game; g != nil {
		r.game = nil
		g.End()
	}
	r.broadcastLocked(protocol.Envelope{Kind: protocol.KindGameEnd})
	r.closeLocked()
}
