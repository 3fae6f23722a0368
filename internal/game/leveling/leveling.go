// Package leveling converts accumulated experience into levels and rewards.
// Everything here is pure and safe for concurrent use.
package leveling

import (
	"errors"
	"math"

	"hunter-gate-bot/internal/model"
)

// MaxLevel is the level cap. LevelFromExp saturates here.
const MaxLevel = 999

// Default rewards granted for each level gained.
const (
	DefaultStatPointsPerLevel  = 5
	DefaultSkillPointsPerLevel = 5
)

// ErrInvalidExperience is returned when an experience gain is not positive.
var ErrInvalidExperience = errors.New("experience gain must be positive")

// ExpNeededForLevelGain returns the experience needed to go from level target-1
// to level target: floor(100 + 25*(target-1)^2). Level 1 costs nothing.
func ExpNeededForLevelGain(target int) int64 {
	if target <= 1 {
		return 0
	}
	d := int64(target - 1)
	return 100 + 25*d*d
}

// CumulativeExpForLevelStart returns the total experience at which level begins.
func CumulativeExpForLevelStart(level int) int64 {
	if level <= 1 {
		return 0
	}
	// sum_{L=2..level} (100 + 25(L-1)^2) with k = level-1.
	k := int64(level - 1)
	return 100*k + 25*(k*(k+1)*(2*k+1)/6)
}

// LevelFromExp returns the highest level whose start is at or below exp,
// capped at MaxLevel.
func LevelFromExp(exp int64) int {
	if exp <= 0 {
		return 1
	}
	lo, hi := 1, MaxLevel
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if CumulativeExpForLevelStart(mid) <= exp {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// Progress describes where a hunter stands inside the current level.
type Progress struct {
	Level         int
	IntoLevel     int64
	NeededForNext int64
}

// ProgressOf returns the level progress for exp. At MaxLevel NeededForNext is 0.
func ProgressOf(exp int64) Progress {
	level := LevelFromExp(exp)
	p := Progress{
		Level:     level,
		IntoLevel: exp - CumulativeExpForLevelStart(level),
	}
	if level < MaxLevel {
		p.NeededForNext = ExpNeededForLevelGain(level + 1)
	}
	return p
}

// Rewards configures the points granted per level gained.
type Rewards struct {
	StatPointsPerLevel  int
	SkillPointsPerLevel int
}

// DefaultRewards returns five stat and five skill points per level.
func DefaultRewards() Rewards {
	return Rewards{
		StatPointsPerLevel:  DefaultStatPointsPerLevel,
		SkillPointsPerLevel: DefaultSkillPointsPerLevel,
	}
}

// Report is the outcome of applying an experience gain.
type Report struct {
	OldExperience     int64
	NewExperience     int64
	OldLevel          int
	NewLevel          int
	LevelsGained      int
	LevelChanged      bool
	StatPointsGained  int
	SkillPointsGained int
	OldRank           model.Rank
	NewRank           model.Rank
}

// LeveledUp reports whether the gain crossed at least one level boundary.
func (r Report) LeveledUp() bool {
	return r.LevelsGained > 0
}

// RankedUp reports whether the gain promoted the hunter's rank.
func (r Report) RankedUp() bool {
	return r.NewRank != r.OldRank
}

// Apply computes the effect of gaining experience on h. Levels are derived from
// experience; LevelChanged reports whether the stored level needs rewriting.
// It does not mutate h.
func Apply(h *model.Hunter, gained int64, rewards Rewards) (Report, error) {
	if gained <= 0 {
		return Report{}, ErrInvalidExperience
	}

	newExp := h.Experience + gained
	if newExp < h.Experience {
		newExp = math.MaxInt64
	}

	oldLevel := LevelFromExp(h.Experience)
	newLevel := LevelFromExp(newExp)
	gainedLevels := newLevel - oldLevel

	r := Report{
		OldExperience: h.Experience,
		NewExperience: newExp,
		OldLevel:      oldLevel,
		NewLevel:      newLevel,
		LevelsGained:  gainedLevels,
		LevelChanged:  newLevel != h.Level,
		OldRank:       h.Rank,
		NewRank:       PromoteRank(h.Rank, newLevel),
	}
	if gainedLevels > 0 {
		r.StatPointsGained = gainedLevels * rewards.StatPointsPerLevel
		r.SkillPointsGained = gainedLevels * rewards.SkillPointsPerLevel
	}
	return r, nil
}
