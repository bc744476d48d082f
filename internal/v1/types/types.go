package types

// --- Core Domain Types ---

// UserID is the durable, client-supplied identity of a human. Equality is
// by value; the server accepts it as claimed.
type UserID string

// TransientID identifies a single client stream. It is assigned by the
// session manager, is unique for the lifetime of the manager, and is safe
// to serialize to clients (e.g. as "whose turn is it").
type TransientID uint64

// RoomCode is the public 4-character handle to a room.
type RoomCode string

const (
	// RoomCodeLength is the exact length of every room code.
	RoomCodeLength = 4

	// RoomCodeCharset is the alphabet room codes are drawn from.
	RoomCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// ValidRoomCode reports whether a client-supplied code has the literal
// 4-character form. Codes of any other length are rejected before the
// room manager is ever contacted.
func ValidRoomCode(s string) bool {
	return len(s) == RoomCodeLength
}
