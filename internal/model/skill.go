package model

import (
	"slices"
	"time"
)

// SkillID is a catalog key.
type SkillID string

// SkillType separates equippable actives from always-on passives.
type SkillType string

const (
	SkillActive  SkillType = "active"
	SkillPassive SkillType = "passive"
)

// EffectKind is the behaviour a skill has when used.
type EffectKind string

const (
	EffectDamage EffectKind = "damage"
	EffectHeal   EffectKind = "heal"
	EffectBuff   EffectKind = "buff"
)

// SkillEffect describes what a skill does.
type SkillEffect struct {
	Kind     EffectKind    `yaml:"kind"`
	Power    int           `yaml:"power,omitempty"`
	Heal     int           `yaml:"heal,omitempty"`
	Stat     string        `yaml:"stat,omitempty"`
	Amount   int           `yaml:"amount,omitempty"`
	Duration time.Duration `yaml:"duration,omitempty"`
}

// Skill is a catalog entry. Catalog entries are immutable once loaded.
type Skill struct {
	ID               SkillID       `yaml:"id"`
	Name             string        `yaml:"name"`
	Type             SkillType     `yaml:"type"`
	Rank             Rank          `yaml:"rank"`
	LevelRequirement int           `yaml:"level"`
	Classes          []Class       `yaml:"classes,omitempty"`
	Cost             int           `yaml:"cost"`
	ManaCost         int           `yaml:"mana"`
	Cooldown         time.Duration `yaml:"cooldown"`
	Effect           SkillEffect   `yaml:"effect"`
	Description      string        `yaml:"description"`
}

// AllowsClass reports whether hunters of class c may learn the skill.
// An empty class list means any class.
func (s *Skill) AllowsClass(c Class) bool {
	return len(s.Classes) == 0 || slices.Contains(s.Classes, c)
}
