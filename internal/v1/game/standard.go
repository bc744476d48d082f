package game

import (
	"encoding/json"

	"github.com/asifZaman0362/zgm-srv/internal/v1/protocol"
)

// standardGame is a minimal round-robin turn engine. It announces the
// current turn holder, treats any input from the seated player as that
// player's move, and rotates to the next occupied seat. Real game modes
// replace the move handling; the rotation and restore plumbing carry over.
type standardGame struct {
	g    *Game
	turn int
}

type standardState struct {
	TurnTransientID uint64 `json:"turn_transient_id"`
}

func (s *standardGame) OnBegin() {
	s.turn = s.nextOccupied(-1)
	s.announceTurn()
}

func (s *standardGame) OnEnd()    {}
func (s *standardGame) OnPause()  {}
func (s *standardGame) OnResume() {}

func (s *standardGame) OnInput(seat int, _ json.RawMessage) {
	// Out-of-turn input is dropped rather than failing the actor; other
	// clients share the room.
	if seat != s.turn {
		return
	}
	next := s.nextOccupied(s.turn)
	if next < 0 {
		s.g.hooks.EndGame()
		return
	}
	s.turn = next
	s.announceTurn()
}

func (s *standardGame) State(int) (json.RawMessage, error) {
	return json.Marshal(standardState{
		TurnTransientID: uint64(s.g.SeatID(s.turn)),
	})
}

func (s *standardGame) announceTurn() {
	env, err := protocol.NewEnvelope(protocol.KindTurnUpdate, protocol.TurnUpdatePayload{
		TransientID: s.g.SeatID(s.turn),
	})
	if err != nil {
		return
	}
	s.g.hooks.Broadcast(env)
}

// nextOccupied returns the first non-vacated seat after from, wrapping
// around, or -1 if no seat other than from is occupied.
func (s *standardGame) nextOccupied(from int) int {
	n := len(s.g.seats)
	for i := 1; i <= n; i++ {
		seat := (from + i) % n
		if seat < 0 {
			seat += n
		}
		if s.g.seats[seat] != 0 && seat != from {
			return seat
		}
	}
	return -1
}
