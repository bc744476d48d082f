package room

import (
	"errors"
	"math/rand/v2"

	"github.com/asifZaman0362/zgm-srv/internal/v1/types"
)

// maxCodeAttempts bounds collision retries. 36^4 codes make collisions
// invisible to callers long before the space is meaningfully occupied.
const maxCodeAttempts = 128

var errCodeSpaceExhausted = errors.New("room code space exhausted")

// allocateCodeLocked hands out a room code, reusing a drained code from the
// free pool before generating a new one. Caller must hold m.mu.
func (m *Manager) allocateCodeLocked() (types.RoomCode, error) {
	for code := range m.free {
		delete(m.free, code)
		return code, nil
	}
	for i := 0; i < maxCodeAttempts; i++ {
		code := randomCode()
		if m.codeInUseLocked(code) {
			continue
		}
		return code, nil
	}
	return "", errCodeSpaceExhausted
}

func (m *Manager) codeInUseLocked(code types.RoomCode) bool {
	if _, ok := m.open[code]; ok {
		return true
	}
	if _, ok := m.reserved[code]; ok {
		return true
	}
	_, ok := m.free[code]
	return ok
}

func randomCode() types.RoomCode {
	buf := make([]byte, types.RoomCodeLength)
	for i := range buf {
		buf[i] = types.RoomCodeCharset[rand.IntN(len(types.RoomCodeCharset))]
	}
	return types.RoomCode(buf)
}
