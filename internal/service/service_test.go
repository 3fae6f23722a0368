package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hunter-gate-bot/internal/game/gate"
	"hunter-gate-bot/internal/game/leveling"
	"hunter-gate-bot/internal/game/loot"
	"hunter-gate-bot/internal/game/skill"
	"hunter-gate-bot/internal/model"
)

// firstRand always picks the lowest option.
type firstRand struct{}

func (firstRand) IntN(int) int { return 0 }

// noDrops fails every loot chance roll.
type noDrops struct{}

func (noDrops) Float64() float64 { return 1 }
func (noDrops) IntN(int) int     { return 0 }

type fixture struct {
	store       *memStore
	board       *memBoard
	hunters     *HunterService
	progression *ProgressionService
	skills      *SkillService
	gates       *GateService
	ranking     *RankingService
	now         time.Time
}

func newFixture(t require.TestingT) *fixture {
	catalog, err := skill.DefaultCatalog()
	require.NoError(t, err)
	pools, err := gate.DefaultPools()
	require.NoError(t, err)
	tables, err := loot.DefaultTables()
	require.NoError(t, err)

	f := &fixture{
		store: newMemStore(),
		board: newMemBoard(),
		now:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.hunters = NewHunterService(f.store, f.store, f.store, f.board, HunterConfig{})
	f.progression = NewProgressionService(f.store, f.board, ProgressionConfig{
		Rewards:          leveling.DefaultRewards(),
		RestoreOnLevelUp: true,
	})
	f.skills = NewSkillService(f.store, memSkills{f.store}, catalog)
	f.gates = f.gateService(pools, loot.NewResolver(tables, noDrops{}))
	f.ranking = NewRankingService(f.board)
	return f
}

// gateService builds a GateService over the fixture's store and clock.
func (f *fixture) gateService(pools *gate.Pools, resolver *loot.Resolver) *GateService {
	return NewGateService(f.store, memGates{f.store}, f.progression, pools, resolver, GateConfig{
		Gate:           gate.DefaultConfig(),
		RoomExperience: 40,
		CompletionGold: 50,
	}, WithClock(func() time.Time { return f.now }), WithGateRand(firstRand{}))
}

// hunter stores a hunter owned by userID with the fighter template.
func (f *fixture) hunter(userID int64, mutate ...func(h *model.Hunter)) *model.Hunter {
	h := &model.Hunter{
		UserID:     userID,
		Name:       "Hunter",
		Class:      model.ClassFighter,
		Rank:       model.RankE,
		Level:      1,
		Attributes: model.ClassFighter.BaseAttributes(),
	}
	for _, m := range mutate {
		m(h)
	}
	return f.store.put(h)
}

func (f *fixture) reload(t *testing.T, id int64) *model.Hunter {
	t.Helper()
	h, err := f.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	return h
}
