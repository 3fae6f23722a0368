package model

import "strings"

// Rank is an ordered hunter/gate/skill tier, E lowest and S highest.
type Rank string

const (
	RankE Rank = "E"
	RankD Rank = "D"
	RankC Rank = "C"
	RankB Rank = "B"
	RankA Rank = "A"
	RankS Rank = "S"
)

var rankOrder = map[Rank]int{
	RankE: 0,
	RankD: 1,
	RankC: 2,
	RankB: 3,
	RankA: 4,
	RankS: 5,
}

// Ranks returns all ranks in ascending order.
func Ranks() []Rank {
	return []Rank{RankE, RankD, RankC, RankB, RankA, RankS}
}

// ParseRank parses a rank letter, case-insensitively.
func ParseRank(s string) (Rank, bool) {
	r := Rank(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := rankOrder[r]
	return r, ok
}

// Valid reports whether r is a known rank.
func (r Rank) Valid() bool {
	_, ok := rankOrder[r]
	return ok
}

// Order returns the position of r in E..S, or -1 for an unknown rank.
func (r Rank) Order() int {
	if o, ok := rankOrder[r]; ok {
		return o
	}
	return -1
}

// AtLeast reports whether r is ranked equal to or above other.
func (r Rank) AtLeast(other Rank) bool {
	return r.Order() >= other.Order()
}

// Attributes are a hunter's five allocatable base stats.
type Attributes struct {
	Strength     int `db:"strength"`
	Agility      int `db:"agility"`
	Perception   int `db:"perception"`
	Intelligence int `db:"intelligence"`
	Vitality     int `db:"vitality"`
}

// Get returns the value of one attribute.
func (a Attributes) Get(s Stat) int {
	switch s {
	case StatStrength:
		return a.Strength
	case StatAgility:
		return a.Agility
	case StatPerception:
		return a.Perception
	case StatIntelligence:
		return a.Intelligence
	case StatVitality:
		return a.Vitality
	}
	return 0
}

// With returns a copy of a with one attribute changed by delta.
func (a Attributes) With(s Stat, delta int) Attributes {
	switch s {
	case StatStrength:
		a.Strength += delta
	case StatAgility:
		a.Agility += delta
	case StatPerception:
		a.Perception += delta
	case StatIntelligence:
		a.Intelligence += delta
	case StatVitality:
		a.Vitality += delta
	}
	return a
}

// Sum returns the total of all attributes.
func (a Attributes) Sum() int {
	return a.Strength + a.Agility + a.Perception + a.Intelligence + a.Vitality
}

// Stat names one allocatable attribute. The set is closed.
type Stat int

const (
	StatStrength Stat = iota + 1
	StatAgility
	StatPerception
	StatIntelligence
	StatVitality
)

var statNames = map[Stat]string{
	StatStrength:     "strength",
	StatAgility:      "agility",
	StatPerception:   "perception",
	StatIntelligence: "intelligence",
	StatVitality:     "vitality",
}

// Stats returns every allocatable stat.
func Stats() []Stat {
	return []Stat{StatStrength, StatAgility, StatPerception, StatIntelligence, StatVitality}
}

// ParseStat maps a stat name (or its three-letter short form) to a Stat.
func ParseStat(s string) (Stat, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for stat, name := range statNames {
		if s == name || (len(s) == 3 && strings.HasPrefix(name, s)) {
			return stat, true
		}
	}
	return 0, false
}

// String returns the stat's storage name.
func (s Stat) String() string {
	if name, ok := statNames[s]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether s is one of the five stats.
func (s Stat) Valid() bool {
	_, ok := statNames[s]
	return ok
}

// Class is a hunter's archetype.
type Class string

const (
	ClassFighter  Class = "fighter"
	ClassAssassin Class = "assassin"
	ClassMage     Class = "mage"
	ClassTank     Class = "tank"
	ClassHealer   Class = "healer"
	ClassRanger   Class = "ranger"
)

var classTemplates = map[Class]Attributes{
	ClassFighter:  {Strength: 14, Agility: 10, Perception: 8, Intelligence: 6, Vitality: 12},
	ClassAssassin: {Strength: 10, Agility: 15, Perception: 12, Intelligence: 6, Vitality: 7},
	ClassMage:     {Strength: 5, Agility: 8, Perception: 10, Intelligence: 16, Vitality: 11},
	ClassTank:     {Strength: 12, Agility: 6, Perception: 7, Intelligence: 5, Vitality: 20},
	ClassHealer:   {Strength: 5, Agility: 8, Perception: 9, Intelligence: 14, Vitality: 14},
	ClassRanger:   {Strength: 9, Agility: 13, Perception: 15, Intelligence: 7, Vitality: 6},
}

// Classes returns the playable classes in display order.
func Classes() []Class {
	return []Class{ClassFighter, ClassAssassin, ClassMage, ClassTank, ClassHealer, ClassRanger}
}

// ParseClass parses a class name, case-insensitively.
func ParseClass(s string) (Class, bool) {
	c := Class(strings.ToLower(strings.TrimSpace(s)))
	_, ok := classTemplates[c]
	return c, ok
}

// Valid reports whether c is a playable class.
func (c Class) Valid() bool {
	_, ok := classTemplates[c]
	return ok
}

// BaseAttributes returns the starting attributes of a new hunter of class c.
func (c Class) BaseAttributes() Attributes {
	return classTemplates[c]
}
