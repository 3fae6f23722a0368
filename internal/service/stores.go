package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"hunter-gate-bot/internal/game/gate"
	"hunter-gate-bot/internal/model"
	"hunter-gate-bot/internal/repository"
)

// HunterStore persists hunters. Mutations are conditional so concurrent
// callers cannot overspend points or currency.
type HunterStore interface {
	Create(ctx context.Context, p repository.CreateHunterParams, maxPerUser int) (*model.Hunter, error)
	GetByID(ctx context.Context, id int64) (*model.Hunter, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.Hunter, error)
	Delete(ctx context.Context, id, userID int64) error
	ApplyExperience(ctx context.Context, id, expected int64, u repository.ExperienceUpdate) (*model.Hunter, error)
	AllocateStat(ctx context.Context, id, userID int64, stat model.Stat) (*model.Hunter, error)
	AdjustCurrency(ctx context.Context, id, goldDelta, diamondDelta int64, entryType string, description *string) (model.Balances, error)
}

// LedgerStore reads currency history.
type LedgerStore interface {
	ListByHunter(ctx context.Context, hunterID int64, limit int) ([]*model.LedgerEntry, error)
}

// SkillStore persists unlocked and equipped skills.
type SkillStore interface {
	Unlock(ctx context.Context, hunterID int64, skillID model.SkillID, cost int) error
	Equip(ctx context.Context, hunterID int64, skillID model.SkillID, maxSlots int) error
	Unequip(ctx context.Context, hunterID int64, skillID model.SkillID) error
}

// GateStore persists gates. Advance and Complete only succeed from the
// expected cleared position. ClearRoom and Complete write the gate and its
// reward together or not at all.
type GateStore interface {
	Create(ctx context.Context, g *model.Gate, now time.Time) (*model.Gate, error)
	GetByHunter(ctx context.Context, hunterID int64) (*model.Gate, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Gate, error)
	ClearRoom(ctx context.Context, id uuid.UUID, pos gate.Position, reward repository.RoomReward) (repository.ClearedRoom, error)
	Advance(ctx context.Context, id uuid.UUID, from, to gate.Position) (*model.Gate, error)
	Complete(ctx context.Context, id uuid.UUID, from gate.Position, reward repository.CompletionReward) (model.Balances, error)
	DeleteExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	DeleteByHunter(ctx context.Context, hunterID int64) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// InventoryStore reads item stacks.
type InventoryStore interface {
	ListItems(ctx context.Context, hunterID int64) ([]model.ItemStack, error)
}

// Leaderboard ranks hunters by experience.
type Leaderboard interface {
	Record(ctx context.Context, hunterID int64, name string, experience int64) error
	Remove(ctx context.Context, hunterID int64) error
	Top(ctx context.Context, limit int64) ([]model.LeaderboardEntry, error)
	Position(ctx context.Context, hunterID int64) (int64, error)
}

// loadOwned loads a hunter and checks that userID owns it.
func loadOwned(ctx context.Context, hunters HunterStore, userID, hunterID int64) (*model.Hunter, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}
	h, err := hunters.GetByID(ctx, hunterID)
	if err != nil {
		return nil, translate(err, "load_hunter_failed")
	}
	if h.UserID != userID {
		return nil, ErrForbidden
	}
	return h, nil
}
