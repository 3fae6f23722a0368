package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"hunter-gate-bot/internal/game/leveling"
	"hunter-gate-bot/internal/model"
	"hunter-gate-bot/internal/pkg/apperr"
)

func TestGainExperience_LevelUpScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.hunter(1)

	updated, report, err := f.progression.GainExperience(ctx, h.ID, 100)
	require.NoError(t, err)
	assert.False(t, report.LeveledUp())
	assert.Equal(t, 1, updated.Level)
	assert.Equal(t, int64(100), updated.Experience)

	updated, report, err = f.progression.GainExperience(ctx, h.ID, 25)
	require.NoError(t, err)
	assert.True(t, report.LeveledUp())
	assert.Equal(t, 2, report.NewLevel)
	assert.Equal(t, 5, report.StatPointsGained)
	assert.Equal(t, 5, report.SkillPointsGained)
	assert.Equal(t, 2, updated.Level)
	assert.Equal(t, 5, updated.StatPoints)
	assert.Equal(t, 5, updated.SkillPoints)

	pos, err := f.board.Position(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pos)
}

func TestGainExperience_InvalidAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, gained := range []int64{0, -5} {
		_, _, err := f.progression.GainExperience(ctx, 999, gained)
		assert.ErrorIs(t, err, ErrInvalidExperience, "validated before the hunter is read")
		assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))
	}
}

func TestGainExperience_MultiLevelJumpPromotesAndRestores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hp := 1
	h := f.hunter(1, func(h *model.Hunter) { h.CurrentHP = &hp })

	gain := leveling.CumulativeExpForLevelStart(10)
	updated, report, err := f.progression.GainExperience(ctx, h.ID, gain)
	require.NoError(t, err)
	assert.Equal(t, 9, report.LevelsGained)
	assert.Equal(t, 45, updated.StatPoints)
	assert.Equal(t, 45, updated.SkillPoints)
	assert.Equal(t, model.RankD, updated.Rank)
	assert.Nil(t, updated.CurrentHP, "level-up restores to max")
}

func TestGainExperience_RetriesStaleWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.hunter(1)

	f.store.staleWrites = maxExperienceAttempts - 1
	updated, _, err := f.progression.GainExperience(ctx, h.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), updated.Experience)

	f.store.staleWrites = maxExperienceAttempts
	_, _, err = f.progression.GainExperience(ctx, h.ID, 10)
	assert.ErrorIs(t, err, ErrConcurrentUpdate)
	assert.Equal(t, int64(10), f.reload(t, h.ID).Experience)
}

// *For any* sequence of gains, level, points and experience never decrease
// and the stored level always matches experience.
func TestGainExperienceMonotonicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := newFixture(t)
		ctx := context.Background()
		h := f.hunter(1)

		gains := rapid.SliceOfN(rapid.Int64Range(1, 50_000), 1, 20).Draw(t, "gains")
		prev, _ := f.store.GetByID(ctx, h.ID)
		for _, g := range gains {
			next, _, err := f.progression.GainExperience(ctx, h.ID, g)
			if err != nil {
				t.Fatalf("gain %d: %v", g, err)
			}
			if next.Experience < prev.Experience || next.Level < prev.Level ||
				next.StatPoints < prev.StatPoints || next.SkillPoints < prev.SkillPoints {
				t.Fatalf("progress decreased: %+v -> %+v", prev, next)
			}
			if next.Level != leveling.LevelFromExp(next.Experience) {
				t.Fatalf("level %d does not match experience %d", next.Level, next.Experience)
			}
			if next.Rank.Order() < prev.Rank.Order() {
				t.Fatalf("rank demoted %s -> %s", prev.Rank, next.Rank)
			}
			prev = next
		}
	})
}

func TestAllocateStat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.hunter(1, func(h *model.Hunter) { h.StatPoints = 1 })

	updated, err := f.progression.AllocateStat(ctx, 1, h.ID, "Vitality")
	require.NoError(t, err)
	assert.Equal(t, h.Attributes.Vitality+1, updated.Attributes.Vitality)
	assert.Zero(t, updated.StatPoints)

	_, err = f.progression.AllocateStat(ctx, 1, h.ID, "vit")
	assert.ErrorIs(t, err, ErrInsufficientPoints)
	assert.Equal(t, apperr.CodeInsufficientResource, apperr.CodeOf(err))
	assert.Equal(t, updated.Attributes, f.reload(t, h.ID).Attributes, "failed spend leaves attributes unchanged")
}

func TestAllocateStat_InvalidStatBeforeRead(t *testing.T) {
	f := newFixture(t)
	_, err := f.progression.AllocateStat(context.Background(), 1, 999, "charisma")
	assert.ErrorIs(t, err, ErrInvalidStat)
	assert.Equal(t, "invalid_stat", apperr.ReasonOf(err))
}

func TestAllocateStat_Forbidden(t *testing.T) {
	f := newFixture(t)
	h := f.hunter(1, func(h *model.Hunter) { h.StatPoints = 3 })

	_, err := f.progression.AllocateStat(context.Background(), 2, h.ID, "str")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, 3, f.reload(t, h.ID).StatPoints)
}
