// Package model defines the data models for the hunter gate bot.
package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Hunter is a player-owned character.
// CurrentHP and CurrentMP are nil when the resource is at its maximum.
type Hunter struct {
	ID          int64      `db:"id"`
	UserID      int64      `db:"user_id"`
	Name        string     `db:"name"`
	Class       Class      `db:"class"`
	Rank        Rank       `db:"rank"`
	Level       int        `db:"level"`
	Experience  int64      `db:"experience"`
	StatPoints  int        `db:"stat_points"`
	SkillPoints int        `db:"skill_points"`
	Attributes  Attributes `db:"-"`
	CurrentHP   *int       `db:"current_hp"`
	CurrentMP   *int       `db:"current_mp"`
	Gold        int64      `db:"gold"`
	Diamonds    int64      `db:"diamonds"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`

	UnlockedSkills []SkillID `db:"-"`
	EquippedSkills []SkillID `db:"-"`
}

// HasUnlocked reports whether the skill is in the hunter's unlocked set.
func (h *Hunter) HasUnlocked(id SkillID) bool {
	return slices.Contains(h.UnlockedSkills, id)
}

// IsEquipped reports whether the skill is currently equipped.
func (h *Hunter) IsEquipped(id SkillID) bool {
	return slices.Contains(h.EquippedSkills, id)
}

// Clone returns a deep copy of the hunter.
func (h *Hunter) Clone() *Hunter {
	c := *h
	c.UnlockedSkills = slices.Clone(h.UnlockedSkills)
	c.EquippedSkills = slices.Clone(h.EquippedSkills)
	if h.CurrentHP != nil {
		hp := *h.CurrentHP
		c.CurrentHP = &hp
	}
	if h.CurrentMP != nil {
		mp := *h.CurrentMP
		c.CurrentMP = &mp
	}
	return &c
}

// RoomStatus is the clear state of the gate's current room.
type RoomStatus string

const (
	RoomPending RoomStatus = "pending"
	RoomCleared RoomStatus = "cleared"
)

// Gate is a time-limited dungeon instance owned by exactly one hunter.
// Positions are 1-based.
type Gate struct {
	ID            uuid.UUID  `db:"id"`
	HunterID      int64      `db:"hunter_id"`
	OwnerUserID   int64      `db:"-"`
	Type          string     `db:"gate_type"`
	Rank          Rank       `db:"gate_rank"`
	TotalDepth    int        `db:"total_depth"`
	RoomsPerDepth []int      `db:"rooms_per_depth"`
	CurrentDepth  int        `db:"current_depth"`
	CurrentRoom   int        `db:"current_room"`
	RoomStatus    RoomStatus `db:"room_status"`
	CreatedAt     time.Time  `db:"created_at"`
	ExpiresAt     time.Time  `db:"expires_at"`
}

// IsExpired reports whether the gate is past its expiry at now.
func (g *Gate) IsExpired(now time.Time) bool {
	return now.After(g.ExpiresAt)
}

// RoomsInCurrentDepth returns the room count of the depth the hunter is on.
func (g *Gate) RoomsInCurrentDepth() int {
	if g.CurrentDepth < 1 || g.CurrentDepth > len(g.RoomsPerDepth) {
		return 0
	}
	return g.RoomsPerDepth[g.CurrentDepth-1]
}

// IsFinalRoom reports whether the current room is the last room of the last depth.
func (g *Gate) IsFinalRoom() bool {
	return g.CurrentDepth == g.TotalDepth && g.CurrentRoom == g.RoomsInCurrentDepth()
}

// ItemStack is a quantity of one item, either dropped or held in inventory.
type ItemStack struct {
	ItemID   string `db:"item_id"`
	Quantity int    `db:"quantity"`
}

// Balances is a hunter's currency after a mutation.
type Balances struct {
	Gold     int64 `db:"gold"`
	Diamonds int64 `db:"diamonds"`
}

// LedgerEntry records a single currency change.
type LedgerEntry struct {
	ID           int64     `db:"id"`
	HunterID     int64     `db:"hunter_id"`
	GoldDelta    int64     `db:"gold_delta"`
	DiamondDelta int64     `db:"diamond_delta"`
	Type         string    `db:"type"`
	Description  *string   `db:"description"`
	CreatedAt    time.Time `db:"created_at"`
}

// Ledger entry types.
const (
	LedgerTypeLoot       = "loot"        // Gold dropped by an enemy
	LedgerTypeAdminGrant = "admin_grant" // Admin adjusted currency
	LedgerTypeGateReward = "gate_reward" // Completion bonus for a gate
)

// LeaderboardEntry is a hunter's standing on the experience leaderboard.
type LeaderboardEntry struct {
	Position   int64  `json:"position"`
	HunterID   int64  `json:"hunter_id"`
	Name       string `json:"name"`
	Experience int64  `json:"experience"`
	Level      int    `json:"level"`
}
