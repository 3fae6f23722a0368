package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"hunter-gate-bot/internal/game/gate"
	"hunter-gate-bot/internal/game/leveling"
	"hunter-gate-bot/internal/game/loot"
	"hunter-gate-bot/internal/model"
	"hunter-gate-bot/internal/pkg/apperr"
	"hunter-gate-bot/internal/repository"
)

// GateConfig bounds generation and sets run rewards.
type GateConfig struct {
	Gate           gate.Config
	RoomExperience int64
	CompletionGold int64
}

// ClearResult is the outcome of clearing a room. Loot and Balances are set
// when the defeated enemy dropped something.
type ClearResult struct {
	Gate       *model.Gate
	Enemy      string
	FirstClear bool
	Experience int64
	Hunter     *model.Hunter
	Report     leveling.Report
	Loot       loot.Drop
	Balances   model.Balances
}

// ProgressResult is the outcome of leaving a cleared room.
type ProgressResult struct {
	Gate      *model.Gate
	Enemy     string
	Completed bool
	Gold      int64
	Balances  model.Balances
}

// GateService drives gate runs.
type GateService struct {
	hunters     HunterStore
	gates       GateStore
	progression *ProgressionService
	pools       *gate.Pools
	loot        *loot.Resolver
	cfg         GateConfig
	now         func() time.Time
	rng         gate.Rand
}

// GateOption customizes a GateService.
type GateOption func(*GateService)

// WithClock sets the time source.
func WithClock(now func() time.Time) GateOption {
	return func(s *GateService) { s.now = now }
}

// WithGateRand sets the randomness used for generation.
func WithGateRand(rng gate.Rand) GateOption {
	return func(s *GateService) { s.rng = rng }
}

// NewGateService creates a new GateService instance.
func NewGateService(hunters HunterStore, gates GateStore, progression *ProgressionService, pools *gate.Pools, resolver *loot.Resolver, cfg GateConfig, opts ...GateOption) *GateService {
	s := &GateService{
		hunters:     hunters,
		gates:       gates,
		progression: progression,
		pools:       pools,
		loot:        resolver,
		cfg:         cfg,
		now:         time.Now,
		rng:         gate.DefaultRand,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// dropExpired deletes an expired gate. Failures are logged; readers already
// treat the row as absent.
func (s *GateService) dropExpired(ctx context.Context, g *model.Gate, now time.Time) {
	if _, err := s.gates.DeleteExpired(ctx, g.ID, now); err != nil {
		log.Warn().Err(err).Str("gate_id", g.ID.String()).Msg("Failed to delete expired gate")
		return
	}
	log.Debug().Str("gate_id", g.ID.String()).Int64("hunter_id", g.HunterID).Msg("Expired gate removed")
}

// Active returns the hunter's live gate. Expired gates read as absent.
func (s *GateService) Active(ctx context.Context, userID, hunterID int64) (*model.Gate, error) {
	h, err := loadOwned(ctx, s.hunters, userID, hunterID)
	if err != nil {
		return nil, err
	}
	g, err := s.gates.GetByHunter(ctx, h.ID)
	if err != nil {
		return nil, translate(err, "load_gate_failed")
	}
	if now := s.now(); g.IsExpired(now) {
		s.dropExpired(ctx, g, now)
		return nil, ErrNoActiveGate
	}
	return g, nil
}

// Locate opens a new gate for the hunter. An expired gate is removed first;
// a live one yields ErrGateActive.
func (s *GateService) Locate(ctx context.Context, userID, hunterID int64) (*model.Gate, error) {
	h, err := loadOwned(ctx, s.hunters, userID, hunterID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	existing, err := s.gates.GetByHunter(ctx, h.ID)
	switch {
	case errors.Is(err, repository.ErrGateNotFound):
	case err != nil:
		return nil, translate(err, "load_gate_failed")
	case !existing.IsExpired(now):
		return nil, ErrGateActive
	default:
		s.dropExpired(ctx, existing, now)
	}

	g := gate.Generate(h.ID, h.Rank, s.pools, s.cfg.Gate, s.rng, now)
	created, err := s.gates.Create(ctx, g, now)
	if err != nil {
		return nil, translate(err, "create_gate_failed")
	}

	log.Info().
		Int64("hunter_id", h.ID).
		Str("gate_id", created.ID.String()).
		Str("type", created.Type).
		Str("rank", string(created.Rank)).
		Int("depth", created.TotalDepth).
		Msg("Gate located")
	return created, nil
}

// loadGate loads a gate for a mutation by its owner. Expired gates are
// removed and reported as ErrGateExpired.
func (s *GateService) loadGate(ctx context.Context, userID int64, gateID uuid.UUID, now time.Time) (*model.Gate, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}
	g, err := s.gates.GetByID(ctx, gateID)
	if err != nil {
		return nil, translate(err, "load_gate_failed")
	}
	if g.OwnerUserID != userID {
		return nil, ErrForbidden
	}
	if g.IsExpired(now) {
		s.dropExpired(ctx, g, now)
		return nil, ErrGateExpired
	}
	return g, nil
}

// HunterOf returns the hunter running gateID, checking that userID owns it.
func (s *GateService) HunterOf(ctx context.Context, userID int64, gateID uuid.UUID) (int64, error) {
	g, err := s.loadGate(ctx, userID, gateID, s.now())
	if err != nil {
		return 0, err
	}
	return g.HunterID, nil
}

// ClearRoom clears the current room. The first clear grants room experience
// and the enemy's loot in the same write as the clear itself, so a failed
// clear leaves the room pending and can be retried. Clearing an already
// cleared room changes nothing and grants nothing.
func (s *GateService) ClearRoom(ctx context.Context, userID int64, gateID uuid.UUID) (*ClearResult, error) {
	now := s.now()
	g, err := s.loadGate(ctx, userID, gateID, now)
	if err != nil {
		return nil, err
	}

	result := &ClearResult{Gate: g, Enemy: s.pools.Encounter(g)}
	if g.RoomStatus == model.RoomCleared {
		return result, nil
	}

	pos := gate.PositionOf(g)
	exp := gate.RoomExperience(g, s.cfg.RoomExperience)
	var drop loot.Drop
	if result.Enemy != "" {
		drop = s.loot.Resolve(result.Enemy)
	}

	for attempt := 0; attempt < maxExperienceAttempts; attempt++ {
		reward := repository.RoomReward{
			HunterID:    g.HunterID,
			Items:       drop.Items,
			Gold:        drop.Gold,
			Description: result.Enemy,
		}
		var report leveling.Report
		if exp > 0 {
			h, err := s.hunters.GetByID(ctx, g.HunterID)
			if err != nil {
				return nil, translate(err, "load_hunter_failed")
			}
			update, r, err := s.progression.plan(h, exp)
			if err != nil {
				return nil, err
			}
			reward.Experience = &update
			reward.ExpectedExperience = h.Experience
			report = r
		}

		cleared, err := s.gates.ClearRoom(ctx, g.ID, pos, reward)
		if errors.Is(err, repository.ErrStaleHunter) {
			log.Debug().Str("gate_id", g.ID.String()).Int("attempt", attempt+1).Msg("Room clear raced an experience write, retrying")
			continue
		}
		if err != nil {
			return nil, translate(err, "clear_room_failed")
		}

		gate.Clear(g)
		if !cleared.FirstClear {
			return result, nil
		}
		result.FirstClear = true
		if cleared.Hunter != nil {
			result.Experience = exp
			result.Hunter = cleared.Hunter
			result.Report = report
			s.progression.recordGain(ctx, cleared.Hunter, report)
		}
		if !drop.Empty() {
			result.Loot = drop
			result.Balances = cleared.Balances
		}

		log.Debug().
			Str("gate_id", g.ID.String()).
			Int("depth", g.CurrentDepth).
			Int("room", g.CurrentRoom).
			Int64("exp", result.Experience).
			Int64("gold", drop.Gold).
			Int("items", len(drop.Items)).
			Msg("Room cleared")
		return result, nil
	}
	return nil, ErrConcurrentUpdate
}

// Progress leaves a cleared room. After the final room of the final depth
// the gate is deleted and the completion gold is paid in one write.
func (s *GateService) Progress(ctx context.Context, userID int64, gateID uuid.UUID) (*ProgressResult, error) {
	now := s.now()
	g, err := s.loadGate(ctx, userID, gateID, now)
	if err != nil {
		return nil, err
	}

	step, err := gate.Next(g, now)
	switch {
	case errors.Is(err, gate.ErrExpired):
		return nil, ErrGateExpired
	case errors.Is(err, gate.ErrRoomNotCleared):
		return nil, ErrRoomNotCleared
	case err != nil:
		return nil, apperr.Internal("progress_gate_failed", err)
	}

	if !step.Completed {
		updated, err := s.gates.Advance(ctx, g.ID, step.From, step.To)
		if err != nil {
			return nil, translate(err, "advance_gate_failed")
		}
		return &ProgressResult{Gate: updated, Enemy: s.pools.Encounter(updated)}, nil
	}

	gold := gate.CompletionGold(g, s.cfg.CompletionGold)
	b, err := s.gates.Complete(ctx, g.ID, step.From, repository.CompletionReward{
		HunterID:    g.HunterID,
		Gold:        gold,
		Description: fmt.Sprintf("completed %s", g.Type),
	})
	if err != nil {
		return nil, translate(err, "complete_gate_failed")
	}
	log.Info().
		Int64("hunter_id", g.HunterID).
		Str("gate_id", g.ID.String()).
		Str("type", g.Type).
		Int64("gold", gold).
		Msg("Gate completed")

	result := &ProgressResult{Completed: true}
	if gold > 0 {
		result.Gold = gold
		result.Balances = b
	}
	return result, nil
}

// Abandon deletes the hunter's gate. It reports whether one existed; having
// no gate is not an error.
func (s *GateService) Abandon(ctx context.Context, userID, hunterID int64) (bool, error) {
	h, err := loadOwned(ctx, s.hunters, userID, hunterID)
	if err != nil {
		return false, err
	}
	deleted, err := s.gates.DeleteByHunter(ctx, h.ID)
	if err != nil {
		return false, translate(err, "abandon_gate_failed")
	}
	if deleted {
		log.Info().Int64("hunter_id", h.ID).Msg("Gate abandoned")
	}
	return deleted, nil
}

// PurgeExpired removes every expired gate. Reads already treat expired gates
// as absent, so this only reclaims rows of hunters who never came back.
func (s *GateService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.gates.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, translate(err, "purge_gates_failed")
	}
	log.Info().Int64("count", n).Msg("Expired gates purged")
	return n, nil
}
