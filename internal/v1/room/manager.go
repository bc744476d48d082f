package room

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/asifZaman0362/zgm-srv/internal/v1/game"
	"github.com/asifZaman0362/zgm-srv/internal/v1/logging"
	"github.com/asifZaman0362/zgm-srv/internal/v1/metrics"
	"github.com/asifZaman0362/zgm-srv/internal/v1/protocol"
	"github.com/asifZaman0362/zgm-srv/internal/v1/types"
)

// Availability is a room's matching-pool signal.
type Availability int

const (
	// Available: the room is joinable from the matchmaking queue again.
	Available Availability = iota
	// UnavailableFull: the room reached capacity.
	UnavailableFull
	// UnavailableGameStarted: a game is running in the room.
	UnavailableGameStarted
)

// RoomInfo is the manager's view of one room. Its lifecycle sits in exactly
// one of the three pools: free (drained, code ready for re-use), open
// (joinable from the matching queue) or reserved (existing but out of the
// queue: private, full, or playing).
type RoomInfo struct {
	room    *Room
	full    bool
	playing bool
	public  bool
}

// Full reports whether the room last announced itself at capacity.
func (i *RoomInfo) Full() bool { return i.full }

// Playing reports whether the room last announced a running game.
func (i *RoomInfo) Playing() bool { return i.playing }

// Matchmaker picks a room code out of the open pool for a code-less join.
// Returning false falls through to creating a fresh room.
type Matchmaker func(open map[types.RoomCode]*RoomInfo) (types.RoomCode, bool)

func firstOpen(open map[types.RoomCode]*RoomInfo) (types.RoomCode, bool) {
	for code := range open {
		return code, true
	}
	return "", false
}

// Manager allocates room codes, tracks every room's pool membership and
// routes join requests. It resolves targets under its own lock but calls
// into rooms only after releasing it: admission reports availability
// transitions back here, and the resulting join-vs-fill race is tolerated
// because pool transitions are idempotent and rooms re-issue availability
// whenever they cross a threshold.
type Manager struct {
	mu sync.Mutex

	free     map[types.RoomCode]*RoomInfo
	open     map[types.RoomCode]*RoomInfo
	reserved map[types.RoomCode]*RoomInfo

	defaults Config
	mode     game.Mode
	pick     Matchmaker
}

// NewManager constructs a room manager. The defaults apply to rooms created
// through code-less matchmaking.
func NewManager(defaults Config, mode game.Mode) *Manager {
	if defaults.MaxPlayers <= 0 {
		defaults.MaxPlayers = DefaultMaxPlayers
	}
	return &Manager{
		free:     make(map[types.RoomCode]*RoomInfo),
		open:     make(map[types.RoomCode]*RoomInfo),
		reserved: make(map[types.RoomCode]*RoomInfo),
		defaults: defaults,
		mode:     mode,
		pick:     firstOpen,
	}
}

// SetMatchmaker replaces the open-pool selection strategy.
func (m *Manager) SetMatchmaker(pick Matchmaker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pick != nil {
		m.pick = pick
	}
}

// RoomCount returns the number of live rooms (open + reserved).
func (m *Manager) RoomCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.open) + len(m.reserved)
}

// CreateRoom allocates a code, constructs a room with the leader in slot 0
// and registers it. Fresh rooms enter reserved; public rooms immediately
// announce themselves available and move to open.
func (m *Manager) CreateRoom(leaderID types.TransientID, leader ClientSession, cfg Config) (types.RoomCode, *Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createRoomLocked(leaderID, leader, cfg)
}

func (m *Manager) createRoomLocked(leaderID types.TransientID, leader ClientSession, cfg Config) (types.RoomCode, *Room, error) {
	code, err := m.allocateCodeLocked()
	if err != nil {
		return "", nil, protocol.ErrInternalServerError
	}
	if cfg.MaxPlayers <= 0 {
		cfg.MaxPlayers = m.defaults.MaxPlayers
	}
	r := newRoom(code, m, m.mode, leaderID, leader, cfg)
	info := &RoomInfo{room: r, public: cfg.Public}
	m.reserved[code] = info
	if cfg.Public {
		delete(m.reserved, code)
		m.open[code] = info
	}
	m.updatePoolMetricsLocked()
	logging.Info(context.Background(), "room created",
		logging.Room(code), zap.Bool("public", cfg.Public))
	return code, r, nil
}

// JoinRoom resolves a join request. With a code the room is looked up in
// reserved then open; a reserved hit short-circuits on its flags before the
// room is contacted. Without a code, any open room is picked, or a fresh
// public room is created with the joiner as leader.
func (m *Manager) JoinRoom(id types.TransientID, cs ClientSession, code *types.RoomCode) (types.RoomCode, *Room, error) {
	if code != nil {
		m.mu.Lock()
		info, inReserved := m.reserved[*code]
		if !inReserved {
			info = m.open[*code]
		}
		if info == nil {
			m.mu.Unlock()
			return "", nil, protocol.ErrRoomNotFound
		}
		if inReserved {
			if info.playing {
				m.mu.Unlock()
				return "", nil, protocol.ErrGameInProgress
			}
			if info.full {
				m.mu.Unlock()
				return "", nil, protocol.ErrRoomFull
			}
		}
		target := info.room
		m.mu.Unlock()
		return target.AddPlayer(id, cs)
	}

	m.mu.Lock()
	if picked, ok := m.pick(m.open); ok {
		if info := m.open[picked]; info != nil {
			target := info.room
			m.mu.Unlock()
			return target.AddPlayer(id, cs)
		}
	}
	// Nothing joinable: open a fresh public room with the joiner as leader.
	roomCode, r, err := m.createRoomLocked(id, cs, Config{Public: true, MaxPlayers: m.defaults.MaxPlayers})
	m.mu.Unlock()
	return roomCode, r, err
}

// UpdateRoomMatchAvailability applies a room's availability signal to the
// pool state machine. Transitions are idempotent with respect to flags
// already set, which is what makes the join/fill race benign.
func (m *Manager) UpdateRoomMatchAvailability(code types.RoomCode, availability Availability) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, inReserved := m.reserved[code]
	if !inReserved {
		info = m.open[code]
	}
	if info == nil {
		return
	}

	switch availability {
	case Available:
		// Rooms announce Available only after dropping below capacity, so
		// the full flag clears here; a running game keeps it reserved.
		info.full = false
		if inReserved && info.public && !info.playing {
			delete(m.reserved, code)
			m.open[code] = info
		}
	case UnavailableFull:
		info.full = true
		if !inReserved {
			delete(m.open, code)
			m.reserved[code] = info
		}
	case UnavailableGameStarted:
		info.playing = true
		if !inReserved {
			delete(m.open, code)
			m.reserved[code] = info
		}
	}
	m.updatePoolMetricsLocked()
}

// OnRoomClosed recycles a room's code into the free pool. Idempotent with
// respect to free membership.
func (m *Manager) OnRoomClosed(code types.RoomCode) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.open, code)
	delete(m.reserved, code)
	m.free[code] = &RoomInfo{}
	m.updatePoolMetricsLocked()
}

func (m *Manager) updatePoolMetricsLocked() {
	metrics.RoomPoolSize.WithLabelValues("free").Set(float64(len(m.free)))
	metrics.RoomPoolSize.WithLabelValues("open").Set(float64(len(m.open)))
	metrics.RoomPoolSize.WithLabelValues("reserved").Set(float64(len(m.reserved)))
}
