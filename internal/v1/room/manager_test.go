package room

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asifZaman0362/zgm-srv/internal/v1/protocol"
	"github.com/asifZaman0362/zgm-srv/internal/v1/types"
)

// poolsOf reports which pools currently contain a code.
func poolsOf(m *Manager, code types.RoomCode) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pools []string
	if _, ok := m.free[code]; ok {
		pools = append(pools, "free")
	}
	if _, ok := m.open[code]; ok {
		pools = append(pools, "open")
	}
	if _, ok := m.reserved[code]; ok {
		pools = append(pools, "reserved")
	}
	return pools
}

func TestCreateRoomPublicEntersOpenPool(t *testing.T) {
	m := newTestManager()
	code, r, err := m.CreateRoom(1, &mockClientSession{}, Config{Public: true, MaxPlayers: 4})
	require.NoError(t, err)
	require.NotNil(t, r)

	assert.Equal(t, []string{"open"}, poolsOf(m, code))
	assert.Equal(t, 1, r.PlayerCount())
}

func TestCreateRoomPrivateStaysReserved(t *testing.T) {
	m := newTestManager()
	code, _, err := m.CreateRoom(1, &mockClientSession{}, Config{Public: false, MaxPlayers: 4})
	require.NoError(t, err)

	assert.Equal(t, []string{"reserved"}, poolsOf(m, code))
}

func TestPoolExclusivityThroughLifecycle(t *testing.T) {
	m := newTestManager()
	code, r, err := m.CreateRoom(1, &mockClientSession{}, Config{Public: true, MaxPlayers: 2})
	require.NoError(t, err)
	assert.Len(t, poolsOf(m, code), 1)

	_, _, err = r.AddPlayer(2, &mockClientSession{})
	require.NoError(t, err)
	assert.Len(t, poolsOf(m, code), 1)

	r.RemovePlayer(2, protocol.ReasonDisconnected)
	assert.Len(t, poolsOf(m, code), 1)

	r.CloseRoom()
	assert.Equal(t, []string{"free"}, poolsOf(m, code))
}

func TestJoinByCodePrivateRoom(t *testing.T) {
	m := newTestManager()
	code, _, err := m.CreateRoom(1, &mockClientSession{}, Config{Public: false, MaxPlayers: 4})
	require.NoError(t, err)

	got, r, err := m.JoinRoom(2, &mockClientSession{}, &code)
	require.NoError(t, err)
	assert.Equal(t, code, got)
	assert.Equal(t, 2, r.PlayerCount())
}

func TestJoinByCodeUnknown(t *testing.T) {
	m := newTestManager()
	code := types.RoomCode("ZZ99")
	_, _, err := m.JoinRoom(2, &mockClientSession{}, &code)
	assert.ErrorIs(t, err, protocol.ErrRoomNotFound)
}

func TestJoinByCodeShortCircuitsOnFlags(t *testing.T) {
	m := newTestManager()
	code, r, err := m.CreateRoom(1, &mockClientSession{}, Config{Public: false, MaxPlayers: 2})
	require.NoError(t, err)
	_, _, err = r.AddPlayer(2, &mockClientSession{})
	require.NoError(t, err)

	// Full flag short-circuits before the room is contacted.
	_, _, err = m.JoinRoom(3, &mockClientSession{}, &code)
	assert.ErrorIs(t, err, protocol.ErrRoomFull)

	r.RemovePlayer(2, protocol.ReasonDisconnected)
	require.NoError(t, r.RequestStart(1))

	_, _, err = m.JoinRoom(3, &mockClientSession{}, &code)
	assert.ErrorIs(t, err, protocol.ErrGameInProgress)
}

func TestMatchmakingJoinsOpenRoom(t *testing.T) {
	m := newTestManager()
	code, _, err := m.CreateRoom(1, &mockClientSession{}, Config{Public: true, MaxPlayers: 4})
	require.NoError(t, err)

	got, r, err := m.JoinRoom(2, &mockClientSession{}, nil)
	require.NoError(t, err)
	assert.Equal(t, code, got)
	assert.Equal(t, 2, r.PlayerCount())
}

func TestMatchmakingCreatesRoomWhenPoolEmpty(t *testing.T) {
	m := newTestManager()
	code, r, err := m.JoinRoom(7, &mockClientSession{}, nil)
	require.NoError(t, err)
	require.NotNil(t, r)

	// The joiner became the leader of a fresh public room.
	assert.Equal(t, 1, r.PlayerCount())
	assert.Equal(t, []string{"open"}, poolsOf(m, code))
	r.mu.Lock()
	assert.Equal(t, types.TransientID(7), r.leader)
	r.mu.Unlock()
}

func TestMatchmakingSkipsPrivateRooms(t *testing.T) {
	m := newTestManager()
	private, _, err := m.CreateRoom(1, &mockClientSession{}, Config{Public: false, MaxPlayers: 4})
	require.NoError(t, err)

	code, _, err := m.JoinRoom(2, &mockClientSession{}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, private, code)
}

func TestCustomMatchmaker(t *testing.T) {
	m := newTestManager()
	codeA, _, err := m.CreateRoom(1, &mockClientSession{}, Config{Public: true, MaxPlayers: 4})
	require.NoError(t, err)
	_, _, err = m.CreateRoom(2, &mockClientSession{}, Config{Public: true, MaxPlayers: 4})
	require.NoError(t, err)

	m.SetMatchmaker(func(open map[types.RoomCode]*RoomInfo) (types.RoomCode, bool) {
		_, ok := open[codeA]
		return codeA, ok
	})

	got, _, err := m.JoinRoom(3, &mockClientSession{}, nil)
	require.NoError(t, err)
	assert.Equal(t, codeA, got)
}

func TestAvailabilityFullRoundTrip(t *testing.T) {
	m := newTestManager()
	code, _, err := m.CreateRoom(1, &mockClientSession{}, Config{Public: true, MaxPlayers: 4})
	require.NoError(t, err)

	m.UpdateRoomMatchAvailability(code, UnavailableFull)
	assert.Equal(t, []string{"reserved"}, poolsOf(m, code))

	// Available returns the room to open and clears the full flag.
	m.UpdateRoomMatchAvailability(code, Available)
	assert.Equal(t, []string{"open"}, poolsOf(m, code))
}

func TestAvailabilityWhilePlayingStaysReserved(t *testing.T) {
	m := newTestManager()
	code, _, err := m.CreateRoom(1, &mockClientSession{}, Config{Public: true, MaxPlayers: 4})
	require.NoError(t, err)

	m.UpdateRoomMatchAvailability(code, UnavailableGameStarted)
	m.UpdateRoomMatchAvailability(code, Available)
	assert.Equal(t, []string{"reserved"}, poolsOf(m, code))
}

func TestAvailabilityIdempotentFlags(t *testing.T) {
	m := newTestManager()
	code, _, err := m.CreateRoom(1, &mockClientSession{}, Config{Public: true, MaxPlayers: 4})
	require.NoError(t, err)

	m.UpdateRoomMatchAvailability(code, UnavailableFull)
	m.UpdateRoomMatchAvailability(code, UnavailableFull)
	assert.Equal(t, []string{"reserved"}, poolsOf(m, code))

	m.mu.Lock()
	info := m.reserved[code]
	m.mu.Unlock()
	assert.True(t, info.Full())
}

func TestOnRoomClosedIdempotent(t *testing.T) {
	m := newTestManager()
	code, _, err := m.CreateRoom(1, &mockClientSession{}, Config{Public: true, MaxPlayers: 4})
	require.NoError(t, err)

	m.OnRoomClosed(code)
	m.OnRoomClosed(code)
	assert.Equal(t, []string{"free"}, poolsOf(m, code))
}

func TestClosedCodeIsReused(t *testing.T) {
	m := newTestManager()
	code, r, err := m.CreateRoom(1, &mockClientSession{}, Config{Public: true, MaxPlayers: 4})
	require.NoError(t, err)
	r.CloseRoom()

	reused, _, err := m.CreateRoom(2, &mockClientSession{}, Config{Public: true, MaxPlayers: 4})
	require.NoError(t, err)
	assert.Equal(t, code, reused)
}

func TestRoomCount(t *testing.T) {
	m := newTestManager()
	assert.Equal(t, 0, m.RoomCount())

	_, r, err := m.CreateRoom(1, &mockClientSession{}, Config{Public: true, MaxPlayers: 4})
	require.NoError(t, err)
	_, _, err = m.CreateRoom(2, &mockClientSession{}, Config{Public: false, MaxPlayers: 4})
	require.NoError(t, err)
	assert.Equal(t, 2, m.RoomCount())

	r.CloseRoom()
	assert.Equal(t, 1, m.RoomCount())
}

func TestGeneratedCodesAreWellFormed(t *testing.T) {
	m := newTestManager()
	seen := map[types.RoomCode]bool{}
	for i := 0; i < 50; i++ {
		code, _, err := m.CreateRoom(types.TransientID(i+1), &mockClientSession{}, Config{Public: false, MaxPlayers: 4})
		require.NoError(t, err)
		require.Len(t, string(code), types.RoomCodeLength)
		for _, c := range string(code) {
			assert.True(t, strings.ContainsRune(types.RoomCodeCharset, c))
		}
		assert.False(t, seen[code], "code %s allocated twice", code)
		seen[code] = true
	}
}
