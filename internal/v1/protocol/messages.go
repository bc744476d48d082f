// Package protocol defines the JSON wire format exchanged with clients.
//
// Every frame is an Envelope carrying a kind tag and an optional payload.
// The tagged-union layout (rather than one struct per connection state)
// keeps the client side trivial to deserialize regardless of technology.
package protocol

import (
	"encoding/json"

	"github.com/asifZaman0362/zgm-srv/internal/v1/types"
)

// Kind discriminates the frames of the wire protocol.
type Kind string

// Frames received from clients.
const (
	KindLogin        Kind = "Login"
	KindJoinRoom     Kind = "JoinRoom"
	KindCreateRoom   Kind = "CreateRoom"
	KindLeaveRoom    Kind = "LeaveRoom"
	KindRequestStart Kind = "RequestStart"
	KindLogout       Kind = "Logout"
)

// Frames sent to clients.
const (
	KindRemoveFromRoom  Kind = "RemoveFromRoom"
	KindForceDisconnect Kind = "ForceDisconnect"
	KindGameStarted     Kind = "GameStarted"
	KindGameEnd         Kind = "GameEnd"
	KindTurnUpdate      Kind = "TurnUpdate"
	KindResult          Kind = "Result"
	KindRestoreState    Kind = "RestoreState"
)

// Envelope is the outermost frame structure. Data holds the kind-specific
// payload and is absent for frames that carry none (Logout, GameStarted).
type Envelope struct {
	Kind Kind            `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope wraps a payload in an Envelope.
func NewEnvelope(kind Kind, payload any) (Envelope, error) {
	if payload == nil {
		return Envelope{Kind: kind}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Kind: kind, Data: data}, nil
}

// --- Incoming payloads ---

// LoginPayload authenticates the stream with a durable user identity.
type LoginPayload struct {
	UserID string `json:"user_id"`
}

// JoinRoomPayload requests room membership. A nil Code asks for random
// matchmaking.
type JoinRoomPayload struct {
	Code *string `json:"code,omitempty"`
}

// CreateRoomPayload opens a fresh room with the sender as leader.
type CreateRoomPayload struct {
	Public     bool `json:"public"`
	MaxPlayers int  `json:"max_players,omitempty"`
}

// --- Outgoing payloads ---

// RemoveReason explains why a client lost its room membership or stream.
type RemoveReason string

const (
	ReasonRoomClosed     RemoveReason = "RoomClosed"
	ReasonLogout         RemoveReason = "Logout"
	ReasonDisconnected   RemoveReason = "Disconnected"
	ReasonLeaveRequested RemoveReason = "LeaveRequested"
	ReasonIdMismatch     RemoveReason = "IdMismatch"
)

// RemoveFromRoomPayload accompanies KindRemoveFromRoom and KindForceDisconnect.
type RemoveFromRoomPayload struct {
	Reason RemoveReason `json:"reason"`
}

// TurnUpdatePayload announces whose turn it is by transient id.
type TurnUpdatePayload struct {
	TransientID types.TransientID `json:"transient_id"`
}

// RestoreStatePayload seeds a reconnecting client's UI with the room it is
// still a member of and, if a game is running, its serialized state.
type RestoreStatePayload struct {
	Code types.RoomCode  `json:"code"`
	Game json.RawMessage `json:"game,omitempty"`
}

// ResultOf names the request a Result frame answers.
type ResultOf string

const (
	ResultOfJoinRoom   ResultOf = "JoinRoom"
	ResultOfCreateRoom ResultOf = "CreateRoom"
	ResultOfStartGame  ResultOf = "StartGame"
)

// ResultPayload is the generic request outcome. Info is a JSON-serialized
// payload: a room code on success, an error tag on failure.
type ResultPayload struct {
	ResultOf ResultOf `json:"result_of"`
	Success  bool     `json:"success"`
	Info     string   `json:"info"`
}

// Result builds a Result envelope. The info value is serialized to JSON and
// embedded as a string, so clients decode it the same way regardless of
// whether it is a code or an error tag.
func Result(of ResultOf, success bool, info any) (Envelope, error) {
	raw, err := json.Marshal(info)
	if err != nil {
		return Envelope{}, err
	}
	return NewEnvelope(KindResult, ResultPayload{
		ResultOf: of,
		Success:  success,
		Info:     string(raw),
	})
}
