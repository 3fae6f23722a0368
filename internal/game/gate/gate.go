// Package gate generates dungeon runs and drives their room/depth state machine.
//
// A hunter has at most one gate. A gate starts on depth 1, room 1 with the room
// pending. Clearing marks the room cleared; advancing moves to the next pending
// room, or completes the run after the final room of the final depth. A gate
// past its expiry is treated as absent.
package gate

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"hunter-gate-bot/internal/model"
)

// Defaults for generated gates.
const (
	DefaultTTL      = 2 * time.Hour
	DefaultMinDepth = 3
	DefaultMaxDepth = 6
	DefaultMinRooms = 3
	DefaultMaxRooms = 6
)

// State machine errors.
var (
	ErrExpired        = errors.New("gate expired")
	ErrRoomNotCleared = errors.New("current room not cleared")
)

// Config bounds gate generation.
type Config struct {
	TTL      time.Duration
	MinDepth int
	MaxDepth int
	MinRooms int
	MaxRooms int
}

// DefaultConfig returns a 2h TTL with depth and rooms in [3,6].
func DefaultConfig() Config {
	return Config{
		TTL:      DefaultTTL,
		MinDepth: DefaultMinDepth,
		MaxDepth: DefaultMaxDepth,
		MinRooms: DefaultMinRooms,
		MaxRooms: DefaultMaxRooms,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.TTL <= 0 {
		c.TTL = d.TTL
	}
	if c.MinDepth < 1 {
		c.MinDepth = d.MinDepth
	}
	if c.MaxDepth < c.MinDepth {
		c.MaxDepth = c.MinDepth
	}
	if c.MinRooms < 1 {
		c.MinRooms = d.MinRooms
	}
	if c.MaxRooms < c.MinRooms {
		c.MaxRooms = c.MinRooms
	}
	return c
}

// Rand is the randomness source used for generation.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// DefaultRand draws from the process-wide math/rand/v2 source, which is safe
// for concurrent use.
var DefaultRand Rand = globalRand{}

func between(rng Rand, lo, hi int) int {
	return lo + rng.IntN(hi-lo+1)
}

// Generate creates a fresh gate for a hunter of the given rank. The gate
// carries the hunter's rank as is; only the type pool falls back to E.
func Generate(hunterID int64, rank model.Rank, pools *Pools, cfg Config, rng Rand, now time.Time) *model.Gate {
	cfg = cfg.normalized()

	types := pools.ForRank(rank)
	t := types[rng.IntN(len(types))]

	depth := between(rng, cfg.MinDepth, cfg.MaxDepth)
	rooms := make([]int, depth)
	for i := range rooms {
		rooms[i] = between(rng, cfg.MinRooms, cfg.MaxRooms)
	}

	return &model.Gate{
		ID:            uuid.New(),
		HunterID:      hunterID,
		Type:          t.ID,
		Rank:          rank,
		TotalDepth:    depth,
		RoomsPerDepth: rooms,
		CurrentDepth:  1,
		CurrentRoom:   1,
		RoomStatus:    model.RoomPending,
		CreatedAt:     now,
		ExpiresAt:     now.Add(cfg.TTL),
	}
}

// State is a gate's lifecycle state.
type State string

const (
	StateAbsent  State = "absent"
	StatePending State = "pending"
	StateCleared State = "cleared"
)

// StateOf returns the state of g at now. Nil and expired gates are absent.
func StateOf(g *model.Gate, now time.Time) State {
	if g == nil || g.IsExpired(now) {
		return StateAbsent
	}
	if g.RoomStatus == model.RoomCleared {
		return StateCleared
	}
	return StatePending
}

// Clear marks the current room cleared. It reports whether anything changed.
func Clear(g *model.Gate) bool {
	if g.RoomStatus == model.RoomCleared {
		return false
	}
	g.RoomStatus = model.RoomCleared
	return true
}

// Position is a depth/room pair.
type Position struct {
	Depth int
	Room  int
}

// PositionOf returns the gate's current position.
func PositionOf(g *model.Gate) Position {
	return Position{Depth: g.CurrentDepth, Room: g.CurrentRoom}
}

// Step is the outcome of advancing past a cleared room.
type Step struct {
	From      Position
	To        Position
	Completed bool
}

// Next computes the step from a cleared room at now without changing g.
func Next(g *model.Gate, now time.Time) (Step, error) {
	if g.IsExpired(now) {
		return Step{}, ErrExpired
	}
	if g.RoomStatus != model.RoomCleared {
		return Step{}, ErrRoomNotCleared
	}

	from := PositionOf(g)
	to := Position{Depth: from.Depth, Room: from.Room + 1}
	if to.Room > g.RoomsInCurrentDepth() {
		to = Position{Depth: from.Depth + 1, Room: 1}
	}
	if to.Depth > g.TotalDepth {
		return Step{From: from, Completed: true}, nil
	}
	return Step{From: from, To: to}, nil
}

// Apply moves g to the step's destination with the new room pending.
// Completed steps leave g unchanged; the run is over and the gate is removed.
func (s Step) Apply(g *model.Gate) {
	if s.Completed {
		return
	}
	g.CurrentDepth = s.To.Depth
	g.CurrentRoom = s.To.Room
	g.RoomStatus = model.RoomPending
}

// TotalRooms returns the number of rooms across all depths.
func TotalRooms(g *model.Gate) int {
	n := 0
	for _, r := range g.RoomsPerDepth {
		n += r
	}
	return n
}

// RoomsCleared returns how many rooms lie behind the hunter, counting the
// current room if it is cleared.
func RoomsCleared(g *model.Gate) int {
	n := g.CurrentRoom - 1
	for d := 0; d < g.CurrentDepth-1 && d < len(g.RoomsPerDepth); d++ {
		n += g.RoomsPerDepth[d]
	}
	if g.RoomStatus == model.RoomCleared {
		n++
	}
	return n
}

// RoomExperience is the experience granted for clearing the current room:
// base scaled by gate rank, plus a quarter of base per depth below the first.
func RoomExperience(g *model.Gate, base int64) int64 {
	if base <= 0 {
		return 0
	}
	mult := int64(max(g.Rank.Order(), 0) + 1)
	return base*mult + base/4*int64(g.CurrentDepth-1)
}

// CompletionGold is the bonus paid when a run is completed.
func CompletionGold(g *model.Gate, base int64) int64 {
	if base <= 0 {
		return 0
	}
	return base * int64(max(g.Rank.Order(), 0)+1) * int64(g.TotalDepth)
}
