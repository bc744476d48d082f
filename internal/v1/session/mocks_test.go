package session

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/asifZaman0362/zgm-srv/internal/v1/protocol"
)

var errConnClosed = errors.New("use of closed connection")

// mockConn is a scriptable wsConnection. Frames pushed with push() come out
// of ReadMessage; everything the session writes is recorded.
type mockConn struct {
	incoming chan []byte
	closeCh  chan struct{}

	mu        sync.Mutex
	written   [][]byte
	closed    bool
	closeOnce sync.Once
}

func newMockConn() *mockConn {
	return &mockConn{
		incoming: make(chan []byte, 32),
		closeCh:  make(chan struct{}),
	}
}

func (c *mockConn) push(t *testing.T, kind protocol.Kind, payload any) {
	t.Helper()
	env, err := protocol.NewEnvelope(kind, payload)
	require.NoError(t, err)
	data, err := json.Marshal(env)
	require.NoError(t, err)
	select {
	case c.incoming <- data:
	case <-time.After(time.Second):
		t.Fatal("mock connection inbox full")
	}
}

func (c *mockConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-c.incoming:
		return 1 /* TextMessage */, data, nil
	case <-c.closeCh:
		return 0, nil, errConnClosed
	}
}

func (c *mockConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	if messageType == 1 {
		c.written = append(c.written, append([]byte(nil), data...))
	}
	return nil
}

func (c *mockConn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.closeCh)
	})
	return nil
}

func (c *mockConn) SetWriteDeadline(time.Time) error  { return nil }
func (c *mockConn) SetReadLimit(int64)                {}
func (c *mockConn) SetPongHandler(func(string) error) {}

func (c *mockConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *mockConn) envelopes(t *testing.T) []protocol.Envelope {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	envs := make([]protocol.Envelope, 0, len(c.written))
	for _, data := range c.written {
		var env protocol.Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		envs = append(envs, env)
	}
	return envs
}

func (c *mockConn) hasKind(t *testing.T, kind protocol.Kind) bool {
	for _, env := range c.envelopes(t) {
		if env.Kind == kind {
			return true
		}
	}
	return false
}

// waitKind blocks until the session wrote a frame of the given kind and
// returns it.
func (c *mockConn) waitKind(t *testing.T, kind protocol.Kind) protocol.Envelope {
	t.Helper()
	var found protocol.Envelope
	require.Eventually(t, func() bool {
		for _, env := range c.envelopes(t) {
			if env.Kind == kind {
				found = env
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond, "no %s frame written", kind)
	return found
}

// waitResult blocks until a Result frame for the given request arrives.
func (c *mockConn) waitResult(t *testing.T, of protocol.ResultOf) protocol.ResultPayload {
	t.Helper()
	var found protocol.ResultPayload
	require.Eventually(t, func() bool {
		for _, env := range c.envelopes(t) {
			if env.Kind != protocol.KindResult {
				continue
			}
			var payload protocol.ResultPayload
			if err := json.Unmarshal(env.Data, &payload); err != nil {
				continue
			}
			if payload.ResultOf == of {
				found = payload
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond, "no %s result written", of)
	return found
}

// lenientTimings never detect staleness on their own; tests drive liveness
// transitions explicitly.
func lenientTimings() Timings {
	return Timings{
		HBCheckInterval:       time.Hour,
		HBTimeLimit:           time.Hour,
		ReconnectionTimeLimit: time.Hour,
	}
}
