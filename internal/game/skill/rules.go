package skill

import (
	"errors"
	"slices"

	"hunter-gate-bot/internal/model"
)

// MaxEquipped is the number of active skill slots.
const MaxEquipped = 4

// Rule violations. Unlock requirement failures all wrap ErrRequirementsNotMet.
var (
	ErrRequirementsNotMet = errors.New("skill requirements not met")
	ErrAlreadyUnlocked    = errors.New("skill already unlocked")
	ErrLevelTooLow        = errors.New("hunter level too low")
	ErrRankTooLow         = errors.New("hunter rank too low")
	ErrClassMismatch      = errors.New("class cannot learn this skill")
	ErrNotEnoughPoints    = errors.New("not enough skill points")

	ErrPassive         = errors.New("passive skills cannot be equipped")
	ErrNotUnlocked     = errors.New("skill not unlocked")
	ErrAlreadyEquipped = errors.New("skill already equipped")
	ErrSlotsFull       = errors.New("all skill slots are in use")
	ErrNotEquipped     = errors.New("skill not equipped")
)

type requirementError struct {
	cause error
}

func (e requirementError) Error() string { return ErrRequirementsNotMet.Error() + ": " + e.cause.Error() }
func (e requirementError) Unwrap() []error {
	return []error{ErrRequirementsNotMet, e.cause}
}

func unmet(cause error) error {
	return requirementError{cause: cause}
}

// CheckUnlock returns nil if h may unlock s, or the first failed requirement.
func CheckUnlock(h *model.Hunter, s model.Skill) error {
	switch {
	case h.HasUnlocked(s.ID):
		return unmet(ErrAlreadyUnlocked)
	case h.Level < s.LevelRequirement:
		return unmet(ErrLevelTooLow)
	case !h.Rank.AtLeast(s.Rank):
		return unmet(ErrRankTooLow)
	case !s.AllowsClass(h.Class):
		return unmet(ErrClassMismatch)
	case h.SkillPoints < s.Cost:
		return unmet(ErrNotEnoughPoints)
	}
	return nil
}

// CanUnlock reports whether h satisfies every unlock requirement of s.
func CanUnlock(h *model.Hunter, s model.Skill) bool {
	return CheckUnlock(h, s) == nil
}

// Unlock deducts the cost and records the skill on h.
func Unlock(h *model.Hunter, s model.Skill) error {
	if err := CheckUnlock(h, s); err != nil {
		return err
	}
	h.SkillPoints -= s.Cost
	h.UnlockedSkills = append(h.UnlockedSkills, s.ID)
	return nil
}

// CheckEquip returns nil if s can be placed in a free slot on h.
func CheckEquip(h *model.Hunter, s model.Skill) error {
	switch {
	case s.Type != model.SkillActive:
		return ErrPassive
	case !h.HasUnlocked(s.ID):
		return ErrNotUnlocked
	case h.IsEquipped(s.ID):
		return ErrAlreadyEquipped
	case len(h.EquippedSkills) >= MaxEquipped:
		return ErrSlotsFull
	case !h.Rank.AtLeast(s.Rank):
		return unmet(ErrRankTooLow)
	}
	return nil
}

// CanEquip reports whether s can be equipped on h.
func CanEquip(h *model.Hunter, s model.Skill) bool {
	return CheckEquip(h, s) == nil
}

// Equip adds s to h's equipped set.
func Equip(h *model.Hunter, s model.Skill) error {
	if err := CheckEquip(h, s); err != nil {
		return err
	}
	h.EquippedSkills = append(h.EquippedSkills, s.ID)
	return nil
}

// CheckUnequip returns nil if s is currently equipped on h.
func CheckUnequip(h *model.Hunter, s model.Skill) error {
	if s.Type != model.SkillActive {
		return ErrPassive
	}
	if !h.IsEquipped(s.ID) {
		return ErrNotEquipped
	}
	return nil
}

// Unequip removes s from h's equipped set.
func Unequip(h *model.Hunter, s model.Skill) error {
	if err := CheckUnequip(h, s); err != nil {
		return err
	}
	h.EquippedSkills = slices.DeleteFunc(h.EquippedSkills, func(id model.SkillID) bool {
		return id == s.ID
	})
	return nil
}
