package service

import (
	"context"

	"hunter-gate-bot/internal/game/leveling"
	"hunter-gate-bot/internal/model"
)

// Leaderboard page bounds.
const (
	DefaultTopLimit = 10
	MaxTopLimit     = 50
)

// RankingService handles leaderboard queries.
type RankingService struct {
	board Leaderboard
}

// NewRankingService creates a new RankingService instance.
func NewRankingService(board Leaderboard) *RankingService {
	return &RankingService{board: board}
}

// Top returns the highest experience hunters with their levels.
func (s *RankingService) Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	limit = min(limit, MaxTopLimit)

	entries, err := s.board.Top(ctx, int64(limit))
	if err != nil {
		return nil, translate(err, "leaderboard_failed")
	}
	for i := range entries {
		entries[i].Level = leveling.LevelFromExp(entries[i].Experience)
	}
	return entries, nil
}
