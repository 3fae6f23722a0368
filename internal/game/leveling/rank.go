package leveling

import "hunter-gate-bot/internal/model"

// rankThresholds lists the minimum level for each rank, ascending.
var rankThresholds = []struct {
	rank  model.Rank
	level int
}{
	{model.RankE, 1},
	{model.RankD, 10},
	{model.RankC, 20},
	{model.RankB, 35},
	{model.RankA, 50},
	{model.RankS, 70},
}

// RankForLevel returns the highest rank whose level threshold is met.
func RankForLevel(level int) model.Rank {
	rank := model.RankE
	for _, t := range rankThresholds {
		if level >= t.level {
			rank = t.rank
		}
	}
	return rank
}

// PromoteRank returns the rank a hunter at level should hold. Rank never decreases.
func PromoteRank(current model.Rank, level int) model.Rank {
	earned := RankForLevel(level)
	if !current.Valid() || earned.Order() > current.Order() {
		return earned
	}
	return current
}
