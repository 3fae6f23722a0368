package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"hunter-gate-bot/internal/model"
	"hunter-gate-bot/internal/pkg/apperr"
)

func veteran(h *model.Hunter) {
	h.Level = 99
	h.Rank = model.RankS
	h.SkillPoints = 200
}

func TestSkillService_Unlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.hunter(1)

	_, _, err := f.skills.Unlock(ctx, 1, h.ID, "quick_slash")
	assert.ErrorIs(t, err, ErrRequirementsNotMet, "no skill points")
	assert.Equal(t, apperr.CodeInsufficientResource, apperr.CodeOf(err))

	f.store.hunters[h.ID].SkillPoints = 3

	updated, sk, err := f.skills.Unlock(ctx, 1, h.ID, "Quick Slash")
	require.NoError(t, err)
	assert.Equal(t, model.SkillID("quick_slash"), sk.ID)
	assert.True(t, updated.HasUnlocked("quick_slash"))
	assert.Equal(t, 2, updated.SkillPoints)

	_, _, err = f.skills.Unlock(ctx, 1, h.ID, "quick_slash")
	assert.ErrorIs(t, err, ErrRequirementsNotMet, "already unlocked")

	_, _, err = f.skills.Unlock(ctx, 1, h.ID, "fireball")
	assert.ErrorIs(t, err, ErrRequirementsNotMet, "wrong class, level and rank")

	_, _, err = f.skills.Unlock(ctx, 1, h.ID, "zzzzqqq")
	assert.ErrorIs(t, err, ErrUnknownSkill)
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	_, _, err = f.skills.Unlock(ctx, 2, h.ID, "quick_slash")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSkillService_RejectsNearMisses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.hunter(1, veteran)

	for _, q := range []string{"a", "fir", "shdwstp"} {
		_, _, err := f.skills.Unlock(ctx, 1, h.ID, q)
		assert.ErrorIs(t, err, ErrUnknownSkill, q)
	}
	stored := f.reload(t, h.ID)
	assert.Equal(t, 200, stored.SkillPoints, "nothing was spent")
	assert.Empty(t, stored.UnlockedSkills)

	_, _, err := f.skills.Equip(ctx, 1, h.ID, "a")
	assert.ErrorIs(t, err, ErrUnknownSkill)
	_, _, err = f.skills.Unequip(ctx, 1, h.ID, "a")
	assert.ErrorIs(t, err, ErrUnknownSkill)

	sk, ok := f.skills.Suggest("shdwstp")
	require.True(t, ok)
	assert.Equal(t, model.SkillID("shadow_step"), sk.ID)

	_, sk, err = f.skills.Unlock(ctx, 1, h.ID, "quick")
	require.NoError(t, err, "a unique prefix still resolves")
	assert.Equal(t, model.SkillID("quick_slash"), sk.ID)
}

func TestSkillService_EquipRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.hunter(1, veteran)

	_, _, err := f.skills.Equip(ctx, 1, h.ID, "first_aid")
	assert.ErrorIs(t, err, ErrNotUnlocked)

	_, _, err = f.skills.Unlock(ctx, 1, h.ID, "sprint")
	require.NoError(t, err)
	_, _, err = f.skills.Equip(ctx, 1, h.ID, "sprint")
	assert.ErrorIs(t, err, ErrPassiveSkill)

	actives := []string{"quick_slash", "first_aid", "taunt", "blade_storm", "monarchs_domain"}
	for _, id := range actives {
		_, _, err := f.skills.Unlock(ctx, 1, h.ID, id)
		require.NoError(t, err, id)
	}
	for _, id := range actives[:4] {
		_, _, err := f.skills.Equip(ctx, 1, h.ID, id)
		require.NoError(t, err, id)
	}

	_, _, err = f.skills.Equip(ctx, 1, h.ID, "quick_slash")
	assert.ErrorIs(t, err, ErrAlreadyEquipped)
	_, _, err = f.skills.Equip(ctx, 1, h.ID, "monarchs_domain")
	assert.ErrorIs(t, err, ErrSlotsFull)
	assert.Equal(t, "slots_full", apperr.ReasonOf(err))

	_, _, err = f.skills.Unequip(ctx, 1, h.ID, "monarchs_domain")
	assert.ErrorIs(t, err, ErrNotEquipped)

	updated, _, err := f.skills.Unequip(ctx, 1, h.ID, "taunt")
	require.NoError(t, err)
	assert.False(t, updated.IsEquipped("taunt"))
	assert.True(t, updated.HasUnlocked("taunt"), "unequip keeps the skill unlocked")

	_, _, err = f.skills.Equip(ctx, 1, h.ID, "monarchs_domain")
	require.NoError(t, err)
}

func TestSkillService_Available(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.hunter(1, func(h *model.Hunter) { h.SkillPoints = 1 })

	_, list, err := f.skills.Available(ctx, 1, h.ID)
	require.NoError(t, err)
	require.NotEmpty(t, list)

	byID := map[model.SkillID]SkillStatus{}
	for _, s := range list {
		assert.True(t, s.Skill.AllowsClass(model.ClassFighter))
		byID[s.Skill.ID] = s
	}
	assert.True(t, byID["quick_slash"].Unlockable)
	assert.False(t, byID["first_aid"].Unlockable, "level 2 required")
	assert.NotContains(t, byID, model.SkillID("fireball"))
}

// *For any* sequence of unlock, equip and unequip calls, equipped skills stay
// a subset of unlocked skills and never exceed four.
func TestSkillSlotsInvariantProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := newFixture(t)
		ctx := context.Background()
		h := f.hunter(1, veteran)

		ids := []string{"quick_slash", "first_aid", "taunt", "blade_storm", "monarchs_domain", "sprint", "iron_body"}

		t.Repeat(map[string]func(*rapid.T){
			"unlock": func(t *rapid.T) {
				_, _, _ = f.skills.Unlock(ctx, 1, h.ID, rapid.SampledFrom(ids).Draw(t, "id"))
			},
			"equip": func(t *rapid.T) {
				_, _, _ = f.skills.Equip(ctx, 1, h.ID, rapid.SampledFrom(ids).Draw(t, "id"))
			},
			"unequip": func(t *rapid.T) {
				_, _, _ = f.skills.Unequip(ctx, 1, h.ID, rapid.SampledFrom(ids).Draw(t, "id"))
			},
			"": func(t *rapid.T) {
				cur, err := f.store.GetByID(ctx, h.ID)
				if err != nil {
					t.Fatal(err)
				}
				if len(cur.EquippedSkills) > 4 {
					t.Fatalf("%d skills equipped", len(cur.EquippedSkills))
				}
				for _, id := range cur.EquippedSkills {
					if !cur.HasUnlocked(id) {
						t.Fatalf("%s equipped but not unlocked", id)
					}
				}
			},
		})
	})
}
