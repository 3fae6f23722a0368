// Package stats derives combat values from a hunter's base attributes and
// applies stat point spends.
package stats

import (
	"errors"

	"hunter-gate-bot/internal/model"
)

// Hard ceilings on derived values.
const (
	MaxCritRate          = 100
	MaxEvasion           = 75
	MaxPrecision         = 100
	MaxCooldownReduction = 50
)

// Derived holds the combat-usable values computed from attributes and level.
type Derived struct {
	MaxHP             int
	MaxMP             int
	Defense           int
	CritRate          int
	CritDamage        int
	Speed             int
	Evasion           int
	Precision         int
	BasicAttack       int
	CooldownReduction int
}

// Derive computes derived stats. Negative inputs are treated as zero.
func Derive(a model.Attributes, level int) Derived {
	str := max(a.Strength, 0)
	agi := max(a.Agility, 0)
	per := max(a.Perception, 0)
	intel := max(a.Intelligence, 0)
	vit := max(a.Vitality, 0)
	level = max(level, 1)

	return Derived{
		MaxHP:             100 + vit*10 + level*5,
		MaxMP:             50 + intel*5 + level*2,
		Defense:           5 + vit/2,
		CritRate:          min(MaxCritRate, 5+agi/5),
		CritDamage:        150 + agi,
		Speed:             10 + agi,
		Evasion:           min(MaxEvasion, 5+agi*15/100),
		Precision:         min(MaxPrecision, 75+per/4),
		BasicAttack:       10 + str*3/2,
		CooldownReduction: min(MaxCooldownReduction, intel/2),
	}
}

// Resources returns current HP and MP. Absent values default to the maxima
// and reported values never exceed them.
func Resources(h *model.Hunter, d Derived) (hp, mp int) {
	hp, mp = d.MaxHP, d.MaxMP
	if h.CurrentHP != nil {
		hp = clamp(*h.CurrentHP, 0, d.MaxHP)
	}
	if h.CurrentMP != nil {
		mp = clamp(*h.CurrentMP, 0, d.MaxMP)
	}
	return hp, mp
}

// Combat is the pre-combat snapshot handed to the combat UI.
// It is built from Derive so both views share one formula set.
type Combat struct {
	MaxHP       int
	CurrentHP   int
	MaxMP       int
	CurrentMP   int
	AttackPower int
	Defense     int
	Speed       int
	CritRate    int
	Evasion     int
}

// CombatSnapshot returns the combat view of a hunter.
func CombatSnapshot(h *model.Hunter) Combat {
	d := Derive(h.Attributes, h.Level)
	hp, mp := Resources(h, d)
	return Combat{
		MaxHP:       d.MaxHP,
		CurrentHP:   hp,
		MaxMP:       d.MaxMP,
		CurrentMP:   mp,
		AttackPower: d.BasicAttack,
		Defense:     d.Defense,
		Speed:       d.Speed,
		CritRate:    d.CritRate,
		Evasion:     d.Evasion,
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// Allocation errors.
var (
	ErrNoStatPoints = errors.New("no stat points available")
	ErrUnknownStat  = errors.New("unknown stat")
)

// Allocate spends one stat point on s. It returns the new attributes and the
// remaining points; on error the inputs are returned unchanged.
func Allocate(a model.Attributes, points int, s model.Stat) (model.Attributes, int, error) {
	if !s.Valid() {
		return a, points, ErrUnknownStat
	}
	if points <= 0 {
		return a, points, ErrNoStatPoints
	}
	return a.With(s, 1), points - 1, nil
}
