package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"hunter-gate-bot/internal/game/leveling"
	"hunter-gate-bot/internal/game/stats"
	"hunter-gate-bot/internal/model"
	"hunter-gate-bot/internal/repository"
)

// maxExperienceAttempts bounds optimistic retries when concurrent gains race.
const maxExperienceAttempts = 3

// ProgressionConfig sets level-up rewards.
type ProgressionConfig struct {
	Rewards          leveling.Rewards
	RestoreOnLevelUp bool
}

// ProgressionService applies experience and stat allocation.
type ProgressionService struct {
	hunters HunterStore
	board   Leaderboard
	cfg     ProgressionConfig
}

// NewProgressionService creates a new ProgressionService instance.
func NewProgressionService(hunters HunterStore, board Leaderboard, cfg ProgressionConfig) *ProgressionService {
	return &ProgressionService{hunters: hunters, board: board, cfg: cfg}
}

// plan computes the write for h gaining gained experience.
func (s *ProgressionService) plan(h *model.Hunter, gained int64) (repository.ExperienceUpdate, leveling.Report, error) {
	report, err := leveling.Apply(h, gained, s.cfg.Rewards)
	if err != nil {
		return repository.ExperienceUpdate{}, leveling.Report{}, ErrInvalidExperience.Wrap(err)
	}

	update := repository.ExperienceUpdate{
		Experience:       report.NewExperience,
		StatPoints:       report.StatPointsGained,
		SkillPoints:      report.SkillPointsGained,
		RestoreResources: s.cfg.RestoreOnLevelUp && report.LeveledUp(),
	}
	if report.LevelChanged {
		level := report.NewLevel
		update.Level = &level
	}
	if report.RankedUp() {
		rank := report.NewRank
		update.Rank = &rank
	}
	return update, report, nil
}

// recordGain mirrors a stored gain to the leaderboard.
func (s *ProgressionService) recordGain(ctx context.Context, updated *model.Hunter, report leveling.Report) {
	if err := s.board.Record(ctx, updated.ID, updated.Name, updated.Experience); err != nil {
		log.Warn().Err(err).Int64("hunter_id", updated.ID).Msg("Failed to update leaderboard")
	}
	if report.LeveledUp() {
		log.Info().
			Int64("hunter_id", updated.ID).
			Int("old_level", report.OldLevel).
			Int("new_level", report.NewLevel).
			Str("rank", string(report.NewRank)).
			Msg("Hunter leveled up")
	}
}

// GainExperience adds gained experience to a hunter, granting points for
// every level crossed. The write is conditional on the experience read, and
// is retried from a fresh read if another gain landed first.
func (s *ProgressionService) GainExperience(ctx context.Context, hunterID, gained int64) (*model.Hunter, leveling.Report, error) {
	if gained <= 0 {
		return nil, leveling.Report{}, ErrInvalidExperience
	}

	for attempt := 0; attempt < maxExperienceAttempts; attempt++ {
		h, err := s.hunters.GetByID(ctx, hunterID)
		if err != nil {
			return nil, leveling.Report{}, translate(err, "load_hunter_failed")
		}

		update, report, err := s.plan(h, gained)
		if err != nil {
			return nil, leveling.Report{}, err
		}

		updated, err := s.hunters.ApplyExperience(ctx, h.ID, h.Experience, update)
		if errors.Is(err, repository.ErrStaleHunter) {
			log.Debug().Int64("hunter_id", h.ID).Int("attempt", attempt+1).Msg("Experience write raced, retrying")
			continue
		}
		if err != nil {
			return nil, leveling.Report{}, translate(err, "apply_experience_failed")
		}

		s.recordGain(ctx, updated, report)
		return updated, report, nil
	}
	return nil, leveling.Report{}, ErrConcurrentUpdate
}

// AllocateStat spends one stat point on the named stat.
func (s *ProgressionService) AllocateStat(ctx context.Context, userID, hunterID int64, statName string) (*model.Hunter, error) {
	stat, ok := model.ParseStat(statName)
	if !ok {
		return nil, ErrInvalidStat
	}

	h, err := loadOwned(ctx, s.hunters, userID, hunterID)
	if err != nil {
		return nil, err
	}
	if _, _, err := stats.Allocate(h.Attributes, h.StatPoints, stat); err != nil {
		return nil, ErrInsufficientPoints.Wrap(err)
	}

	updated, err := s.hunters.AllocateStat(ctx, h.ID, userID, stat)
	if err != nil {
		return nil, translate(err, "allocate_stat_failed")
	}
	log.Debug().Int64("hunter_id", h.ID).Str("stat", stat.String()).Msg("Stat point allocated")
	return updated, nil
}
