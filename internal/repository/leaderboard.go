package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"hunter-gate-bot/internal/model"
)

const (
	leaderboardExpKey   = "leaderboard:experience"
	leaderboardNamesKey = "leaderboard:names"
)

// Leaderboard ranks hunters by total experience in a Redis sorted set.
// A nil client makes every method a no-op, so the bot runs without Redis.
type Leaderboard struct {
	rdb *redis.Client
}

// NewLeaderboard creates a Leaderboard backed by rdb, which may be nil.
func NewLeaderboard(rdb *redis.Client) *Leaderboard {
	return &Leaderboard{rdb: rdb}
}

// Enabled reports whether a Redis client is configured.
func (l *Leaderboard) Enabled() bool {
	return l != nil && l.rdb != nil
}

func member(hunterID int64) string {
	return strconv.FormatInt(hunterID, 10)
}

// Record sets a hunter's score and display name.
func (l *Leaderboard) Record(ctx context.Context, hunterID int64, name string, experience int64) error {
	if !l.Enabled() {
		return nil
	}
	m := member(hunterID)
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, leaderboardExpKey, redis.Z{Score: float64(experience), Member: m})
		pipe.HSet(ctx, leaderboardNamesKey, m, name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record leaderboard score: %w", err)
	}
	return nil
}

// Remove drops a hunter from the leaderboard.
func (l *Leaderboard) Remove(ctx context.Context, hunterID int64) error {
	if !l.Enabled() {
		return nil
	}
	m := member(hunterID)
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, leaderboardExpKey, m)
		pipe.HDel(ctx, leaderboardNamesKey, m)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove leaderboard entry: %w", err)
	}
	return nil
}

// Top returns the highest scoring hunters, best first. Level is left for
// the caller to derive from experience.
func (l *Leaderboard) Top(ctx context.Context, limit int64) ([]model.LeaderboardEntry, error) {
	if !l.Enabled() || limit <= 0 {
		return nil, nil
	}

	scores, err := l.rdb.ZRevRangeWithScores(ctx, leaderboardExpKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get top hunters: %w", err)
	}
	if len(scores) == 0 {
		return nil, nil
	}

	members := make([]string, len(scores))
	for i, z := range scores {
		members[i], _ = z.Member.(string)
	}
	names, err := l.rdb.HMGet(ctx, leaderboardNamesKey, members...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get hunter names: %w", err)
	}

	entries := make([]model.LeaderboardEntry, 0, len(scores))
	for i, z := range scores {
		id, err := strconv.ParseInt(members[i], 10, 64)
		if err != nil {
			continue
		}
		name, _ := names[i].(string)
		entries = append(entries, model.LeaderboardEntry{
			Position:   int64(len(entries) + 1),
			HunterID:   id,
			Name:       name,
			Experience: int64(z.Score),
		})
	}
	return entries, nil
}

// Position returns a hunter's 1-based position, or 0 if unranked.
func (l *Leaderboard) Position(ctx context.Context, hunterID int64) (int64, error) {
	if !l.Enabled() {
		return 0, nil
	}
	rank, err := l.rdb.ZRevRank(ctx, leaderboardExpKey, member(hunterID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get leaderboard position: %w", err)
	}
	return rank + 1, nil
}
