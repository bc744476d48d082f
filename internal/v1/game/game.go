// Package game holds the mode-agnostic game shell and the controller
// contract game modes plug into. The room owns a Game for the duration of a
// match and drives it strictly under its own lock, so nothing in this
// package needs synchronization of its own.
package game

import (
	"encoding/json"
	"fmt"

	"github.com/asifZaman0362/zgm-srv/internal/v1/protocol"
	"github.com/asifZaman0362/zgm-srv/internal/v1/types"
)

// Mode selects a game controller. The set of modes is small and known at
// build time, so dispatch is a tagged switch rather than a plugin registry.
type Mode string

const ModeStandard Mode = "standard"

// Controller is the capability set a game mode implements. Seats are the
// stable slot indices of the owning room; they never change for the
// lifetime of a match, even across reconnections.
type Controller interface {
	OnBegin()
	OnEnd()
	OnPause()
	OnResume()
	OnInput(seat int, input json.RawMessage)
	// State serializes the game from one seat's perspective, for client
	// state restoration after a reconnect.
	State(seat int) (json.RawMessage, error)
}

// Hooks is the narrow surface a Game uses to reach its room. The room
// implements it with its lock already held, so hook implementations must
// not re-enter the room.
type Hooks interface {
	Broadcast(env protocol.Envelope)
	NotifySeat(seat int, env protocol.Envelope) error
	// EndGame asks the room to finish the match: broadcast GameEnd and
	// close the room.
	EndGame()
}

// Game binds a controller to the roster it was started with. The seat list
// mirrors the room's slot vector by index; a vacated seat holds zero.
type Game struct {
	mode  Mode
	hooks Hooks
	ctrl  Controller
	seats []types.TransientID
}

// New constructs a game for the given mode over a snapshot of the room's
// seats. An unknown mode is a programming error.
func New(mode Mode, hooks Hooks, seats []types.TransientID) (*Game, error) {
	g := &Game{
		mode:  mode,
		hooks: hooks,
		seats: append([]types.TransientID(nil), seats...),
	}
	switch mode {
	case ModeStandard:
		g.ctrl = &standardGame{g: g}
	default:
		return nil, fmt.Errorf("unknown game mode %q", mode)
	}
	return g, nil
}

func (g *Game) Mode() Mode { return g.mode }

// SeatID returns the transient id occupying a seat, or zero if vacated.
func (g *Game) SeatID(seat int) types.TransientID {
	if seat < 0 || seat >= len(g.seats) {
		return 0
	}
	return g.seats[seat]
}

// ReplaceSeat rewires a seat to a reconnecting player's new transient id.
// The seat index stays fixed, which is what keeps turn order intact.
func (g *Game) ReplaceSeat(seat int, id types.TransientID) {
	if seat >= 0 && seat < len(g.seats) {
		g.seats[seat] = id
	}
}

// VacateSeat marks a seat as permanently empty after its player was removed
// mid-game. Controllers skip vacated seats when rotating turns.
func (g *Game) VacateSeat(seat int) {
	if seat >= 0 && seat < len(g.seats) {
		g.seats[seat] = 0
	}
}

func (g *Game) Begin()  { g.ctrl.OnBegin() }
func (g *Game) End()    { g.ctrl.OnEnd() }
func (g *Game) Pause()  { g.ctrl.OnPause() }
func (g *Game) Resume() { g.ctrl.OnResume() }

func (g *Game) Input(seat int, input json.RawMessage) {
	g.ctrl.OnInput(seat, input)
}

func (g *Game) StateFor(seat int) (json.RawMessage, error) {
	return g.ctrl.State(seat)
}
