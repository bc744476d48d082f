package room

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/asifZaman0362/zgm-srv/internal/v1/protocol"
	"github.com/asifZaman0362/zgm-srv/internal/v1/types"
)

type reconnectEvent struct {
	room  *Room
	code  types.RoomCode
	state json.RawMessage
}

// mockClientSession records everything a room delivers to a player.
// ClearRoom arrives on fresh goroutines, so access is locked.
type mockClientSession struct {
	mu          sync.Mutex
	sent        []protocol.Envelope
	cleared     []protocol.RemoveReason
	reconnected []reconnectEvent
}

func (m *mockClientSession) Send(env protocol.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, env)
}

func (m *mockClientSession) ClearRoom(reason protocol.RemoveReason) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared = append(m.cleared, reason)
}

func (m *mockClientSession) Reconnected(r *Room, code types.RoomCode, state json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconnected = append(m.reconnected, reconnectEvent{room: r, code: code, state: state})
}

func (m *mockClientSession) sentKinds() []protocol.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	kinds := make([]protocol.Kind, 0, len(m.sent))
	for _, env := range m.sent {
		kinds = append(kinds, env.Kind)
	}
	return kinds
}

func (m *mockClientSession) clearReasons() []protocol.RemoveReason {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]protocol.RemoveReason(nil), m.cleared...)
}

func (m *mockClientSession) reconnections() []reconnectEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]reconnectEvent(nil), m.reconnected...)
}

func (m *mockClientSession) hasKind(kind protocol.Kind) bool {
	for _, k := range m.sentKinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// waitCleared blocks until the session saw a ClearRoom with the reason.
func (m *mockClientSession) waitCleared(t *testing.T, reason protocol.RemoveReason) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, r := range m.clearReasons() {
			if r == reason {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}
