package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"hunter-gate-bot/internal/game/skill"
	"hunter-gate-bot/internal/model"
)

// SkillStatus is a catalog skill as seen by one hunter.
type SkillStatus struct {
	Skill      model.Skill
	Unlocked   bool
	Equipped   bool
	Unlockable bool
}

// SkillService unlocks and equips skills.
type SkillService struct {
	hunters HunterStore
	skills  SkillStore
	catalog *skill.Catalog
}

// NewSkillService creates a new SkillService instance.
func NewSkillService(hunters HunterStore, skills SkillStore, catalog *skill.Catalog) *SkillService {
	return &SkillService{hunters: hunters, skills: skills, catalog: catalog}
}

// Resolve finds the catalog skill a query names: its id, its name or a
// prefix no other skill shares. Near misses are ErrUnknownSkill.
func (s *SkillService) Resolve(query string) (model.Skill, error) {
	if sk, ok := s.catalog.Find(query); ok {
		return sk, nil
	}
	return model.Skill{}, ErrUnknownSkill
}

// Suggest returns the skill closest to a query Resolve rejected.
func (s *SkillService) Suggest(query string) (model.Skill, bool) {
	return s.catalog.Suggest(query)
}

// ruleError maps a rule violation from the skill package to a service error.
func ruleError(err error) error {
	switch {
	case errors.Is(err, skill.ErrRequirementsNotMet):
		return ErrRequirementsNotMet.Wrap(err)
	case errors.Is(err, skill.ErrPassive):
		return ErrPassiveSkill.Wrap(err)
	case errors.Is(err, skill.ErrNotUnlocked):
		return ErrNotUnlocked.Wrap(err)
	case errors.Is(err, skill.ErrAlreadyEquipped):
		return ErrAlreadyEquipped.Wrap(err)
	case errors.Is(err, skill.ErrSlotsFull):
		return ErrSlotsFull.Wrap(err)
	case errors.Is(err, skill.ErrNotEquipped):
		return ErrNotEquipped.Wrap(err)
	}
	return err
}

// Unlock spends skill points to learn a skill.
func (s *SkillService) Unlock(ctx context.Context, userID, hunterID int64, query string) (*model.Hunter, model.Skill, error) {
	sk, err := s.Resolve(query)
	if err != nil {
		return nil, model.Skill{}, err
	}
	h, err := loadOwned(ctx, s.hunters, userID, hunterID)
	if err != nil {
		return nil, sk, err
	}
	if err := skill.CheckUnlock(h, sk); err != nil {
		return nil, sk, ruleError(err)
	}

	if err := s.skills.Unlock(ctx, h.ID, sk.ID, sk.Cost); err != nil {
		return nil, sk, translate(err, "unlock_skill_failed")
	}
	log.Info().Int64("hunter_id", h.ID).Str("skill", string(sk.ID)).Msg("Skill unlocked")
	return s.reload(ctx, h.ID, sk)
}

// Equip places an unlocked active skill in a free slot.
func (s *SkillService) Equip(ctx context.Context, userID, hunterID int64, query string) (*model.Hunter, model.Skill, error) {
	sk, err := s.Resolve(query)
	if err != nil {
		return nil, model.Skill{}, err
	}
	h, err := loadOwned(ctx, s.hunters, userID, hunterID)
	if err != nil {
		return nil, sk, err
	}
	if err := skill.CheckEquip(h, sk); err != nil {
		return nil, sk, ruleError(err)
	}

	if err := s.skills.Equip(ctx, h.ID, sk.ID, skill.MaxEquipped); err != nil {
		return nil, sk, translate(err, "equip_skill_failed")
	}
	return s.reload(ctx, h.ID, sk)
}

// Unequip frees the slot held by a skill.
func (s *SkillService) Unequip(ctx context.Context, userID, hunterID int64, query string) (*model.Hunter, model.Skill, error) {
	sk, err := s.Resolve(query)
	if err != nil {
		return nil, model.Skill{}, err
	}
	h, err := loadOwned(ctx, s.hunters, userID, hunterID)
	if err != nil {
		return nil, sk, err
	}
	if err := skill.CheckUnequip(h, sk); err != nil {
		return nil, sk, ruleError(err)
	}

	if err := s.skills.Unequip(ctx, h.ID, sk.ID); err != nil {
		return nil, sk, translate(err, "unequip_skill_failed")
	}
	return s.reload(ctx, h.ID, sk)
}

// Available lists the skills the hunter's class can learn with their status.
func (s *SkillService) Available(ctx context.Context, userID, hunterID int64) (*model.Hunter, []SkillStatus, error) {
	h, err := loadOwned(ctx, s.hunters, userID, hunterID)
	if err != nil {
		return nil, nil, err
	}
	var out []SkillStatus
	for _, sk := range s.catalog.ForClass(h.Class) {
		out = append(out, SkillStatus{
			Skill:      sk,
			Unlocked:   h.HasUnlocked(sk.ID),
			Equipped:   h.IsEquipped(sk.ID),
			Unlockable: skill.CanUnlock(h, sk),
		})
	}
	return h, out, nil
}

func (s *SkillService) reload(ctx context.Context, hunterID int64, sk model.Skill) (*model.Hunter, model.Skill, error) {
	h, err := s.hunters.GetByID(ctx, hunterID)
	if err != nil {
		return nil, sk, translate(err, "load_hunter_failed")
	}
	return h, sk, nil
}
