package leveling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"hunter-gate-bot/internal/model"
)

func TestExpNeededForLevelGain(t *testing.T) {
	tests := []struct {
		target   int
		expected int64
	}{
		{0, 0},
		{1, 0},
		{2, 125},
		{3, 200},
		{4, 325},
		{11, 2600},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ExpNeededForLevelGain(tt.target), "target %d", tt.target)
	}
}

func TestCumulativeExpForLevelStart(t *testing.T) {
	assert.Equal(t, int64(0), CumulativeExpForLevelStart(1))
	assert.Equal(t, int64(125), CumulativeExpForLevelStart(2))
	assert.Equal(t, int64(325), CumulativeExpForLevelStart(3))
	assert.Equal(t, int64(650), CumulativeExpForLevelStart(4))

	// Closed form agrees with the running sum.
	var sum int64
	for level := 2; level <= MaxLevel; level++ {
		sum += ExpNeededForLevelGain(level)
		require.Equal(t, sum, CumulativeExpForLevelStart(level), "level %d", level)
	}
}

func TestLevelFromExp(t *testing.T) {
	tests := []struct {
		name     string
		exp      int64
		expected int
	}{
		{"negative", -5, 1},
		{"zero", 0, 1},
		{"just below level 2", 124, 1},
		{"exactly level 2", 125, 2},
		{"between 2 and 3", 300, 2},
		{"exactly level 3", 325, 3},
		{"saturates", 1 << 62, MaxLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, LevelFromExp(tt.exp))
		})
	}
}

// For any level L in [1, MaxLevel], LevelFromExp(CumulativeExpForLevelStart(L)) == L.
func TestLevelRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		level := rapid.IntRange(1, MaxLevel).Draw(t, "level")
		if got := LevelFromExp(CumulativeExpForLevelStart(level)); got != level {
			t.Fatalf("round trip for level %d returned %d", level, got)
		}
		if level > 1 {
			if got := LevelFromExp(CumulativeExpForLevelStart(level) - 1); got != level-1 {
				t.Fatalf("one below level %d start returned %d", level, got)
			}
		}
	})
}

// LevelFromExp is monotonically non-decreasing in exp.
func TestLevelMonotonicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Int64Range(0, CumulativeExpForLevelStart(MaxLevel)+1000).Draw(t, "a")
		b := rapid.Int64Range(a, CumulativeExpForLevelStart(MaxLevel)+2000).Draw(t, "b")
		if LevelFromExp(a) > LevelFromExp(b) {
			t.Fatalf("LevelFromExp(%d)=%d > LevelFromExp(%d)=%d", a, LevelFromExp(a), b, LevelFromExp(b))
		}
	})
}

func TestApply_LevelUpScenario(t *testing.T) {
	h := &model.Hunter{Level: 1, Experience: 100, Rank: model.RankE}

	report, err := Apply(h, 25, DefaultRewards())
	require.NoError(t, err)

	assert.Equal(t, int64(125), report.NewExperience)
	assert.Equal(t, 2, report.NewLevel)
	assert.Equal(t, 1, report.LevelsGained)
	assert.Equal(t, 5, report.StatPointsGained)
	assert.Equal(t, 5, report.SkillPointsGained)
	assert.True(t, report.LeveledUp())
	assert.False(t, report.RankedUp())
}

func TestApply_NoLevelUp(t *testing.T) {
	h := &model.Hunter{Level: 1, Experience: 0, Rank: model.RankE}

	report, err := Apply(h, 50, DefaultRewards())
	require.NoError(t, err)
	assert.False(t, report.LeveledUp())
	assert.Zero(t, report.StatPointsGained)
	assert.Zero(t, report.SkillPointsGained)
	assert.Equal(t, 1, report.NewLevel)
}

func TestApply_RejectsNonPositive(t *testing.T) {
	h := &model.Hunter{Level: 1}
	for _, gained := range []int64{0, -1, -1000} {
		_, err := Apply(h, gained, DefaultRewards())
		assert.ErrorIs(t, err, ErrInvalidExperience)
	}
}

func TestApply_MultipleLevelsAndRank(t *testing.T) {
	h := &model.Hunter{Level: 1, Experience: 0, Rank: model.RankE}

	report, err := Apply(h, CumulativeExpForLevelStart(12), DefaultRewards())
	require.NoError(t, err)
	assert.Equal(t, 12, report.NewLevel)
	assert.Equal(t, 11, report.LevelsGained)
	assert.Equal(t, 55, report.StatPointsGained)
	assert.Equal(t, model.RankD, report.NewRank)
	assert.True(t, report.RankedUp())
}

// Gains never decrease level, and points granted always equal levels gained times the reward.
func TestApplyNonDecreasingProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		exp := rapid.Int64Range(0, CumulativeExpForLevelStart(200)).Draw(t, "exp")
		gained := rapid.Int64Range(1, 1_000_000).Draw(t, "gained")
		perLevel := rapid.IntRange(0, 10).Draw(t, "perLevel")

		h := &model.Hunter{Experience: exp, Level: LevelFromExp(exp), Rank: model.RankE}
		report, err := Apply(h, gained, Rewards{StatPointsPerLevel: perLevel, SkillPointsPerLevel: perLevel})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.NewLevel < h.Level {
			t.Fatalf("level decreased from %d to %d", h.Level, report.NewLevel)
		}
		if report.NewExperience != exp+gained {
			t.Fatalf("experience %d, want %d", report.NewExperience, exp+gained)
		}
		if report.StatPointsGained != report.LevelsGained*perLevel {
			t.Fatalf("stat points %d for %d levels", report.StatPointsGained, report.LevelsGained)
		}
		if report.NewRank.Order() < h.Rank.Order() {
			t.Fatalf("rank decreased from %s to %s", h.Rank, report.NewRank)
		}
	})
}

func TestProgressOf(t *testing.T) {
	p := ProgressOf(200)
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, int64(75), p.IntoLevel)
	assert.Equal(t, int64(200), p.NeededForNext)

	top := ProgressOf(CumulativeExpForLevelStart(MaxLevel) + 5)
	assert.Equal(t, MaxLevel, top.Level)
	assert.Zero(t, top.NeededForNext)
}

func TestPromoteRank(t *testing.T) {
	assert.Equal(t, model.RankE, RankForLevel(1))
	assert.Equal(t, model.RankD, RankForLevel(10))
	assert.Equal(t, model.RankS, RankForLevel(MaxLevel))

	// Never demotes.
	assert.Equal(t, model.RankA, PromoteRank(model.RankA, 3))
	assert.Equal(t, model.RankC, PromoteRank(model.RankD, 25))
	assert.Equal(t, model.RankE, PromoteRank("", 1))
}
