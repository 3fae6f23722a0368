package service

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"hunter-gate-bot/internal/game/leveling"
	"hunter-gate-bot/internal/game/stats"
	"hunter-gate-bot/internal/model"
	"hunter-gate-bot/internal/repository"
)

// Hunter creation defaults.
const (
	DefaultMaxHuntersPerUser = 2
	DefaultNameMaxLength     = 32
	DefaultHistoryLimit      = 10
)

// HunterConfig limits hunter creation.
type HunterConfig struct {
	MaxPerUser    int
	NameMaxLength int
}

// Profile is a hunter with everything derived from it.
type Profile struct {
	Hunter    *model.Hunter
	Derived   stats.Derived
	HP        int
	MP        int
	Progress  leveling.Progress
	Items     []model.ItemStack
	Placement int64
}

// HunterService handles hunter lifecycle and currency.
type HunterService struct {
	hunters   HunterStore
	ledger    LedgerStore
	inventory InventoryStore
	board     Leaderboard
	cfg       HunterConfig
}

// NewHunterService creates a new HunterService instance.
func NewHunterService(hunters HunterStore, ledger LedgerStore, inventory InventoryStore, board Leaderboard, cfg HunterConfig) *HunterService {
	if cfg.MaxPerUser <= 0 {
		cfg.MaxPerUser = DefaultMaxHuntersPerUser
	}
	if cfg.NameMaxLength <= 0 {
		cfg.NameMaxLength = DefaultNameMaxLength
	}
	return &HunterService{
		hunters:   hunters,
		ledger:    ledger,
		inventory: inventory,
		board:     board,
		cfg:       cfg,
	}
}

// normalizeName trims name and rejects empty, overlong or control-character names.
func normalizeName(name string, maxLen int) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxLen {
		return "", false
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", false
		}
	}
	return name, true
}

// Create makes a new level 1, rank E hunter with the class's base attributes.
func (s *HunterService) Create(ctx context.Context, userID int64, name, class string) (*model.Hunter, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}
	name, ok := normalizeName(name, s.cfg.NameMaxLength)
	if !ok {
		return nil, ErrInvalidName
	}
	cl, ok := model.ParseClass(class)
	if !ok {
		return nil, ErrInvalidClass
	}

	h, err := s.hunters.Create(ctx, repository.CreateHunterParams{
		UserID:     userID,
		Name:       name,
		Class:      cl,
		Attributes: cl.BaseAttributes(),
	}, s.cfg.MaxPerUser)
	if err != nil {
		return nil, translate(err, "create_hunter_failed")
	}

	if err := s.board.Record(ctx, h.ID, h.Name, h.Experience); err != nil {
		log.Warn().Err(err).Int64("hunter_id", h.ID).Msg("Failed to add hunter to leaderboard")
	}
	log.Info().
		Int64("user_id", userID).
		Int64("hunter_id", h.ID).
		Str("class", string(cl)).
		Msg("Hunter created")
	return h, nil
}

// List returns the user's hunters, oldest first.
func (s *HunterService) List(ctx context.Context, userID int64) ([]*model.Hunter, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}
	hunters, err := s.hunters.ListByUser(ctx, userID)
	if err != nil {
		return nil, translate(err, "list_hunters_failed")
	}
	return hunters, nil
}

// Get returns a hunter owned by userID.
func (s *HunterService) Get(ctx context.Context, userID, hunterID int64) (*model.Hunter, error) {
	return loadOwned(ctx, s.hunters, userID, hunterID)
}

// Delete removes a hunter owned by userID along with its gate, skills and items.
func (s *HunterService) Delete(ctx context.Context, userID, hunterID int64) error {
	h, err := loadOwned(ctx, s.hunters, userID, hunterID)
	if err != nil {
		return err
	}
	if err := s.hunters.Delete(ctx, h.ID, userID); err != nil {
		return translate(err, "delete_hunter_failed")
	}
	if err := s.board.Remove(ctx, h.ID); err != nil {
		log.Warn().Err(err).Int64("hunter_id", h.ID).Msg("Failed to remove hunter from leaderboard")
	}
	log.Info().Int64("user_id", userID).Int64("hunter_id", h.ID).Msg("Hunter deleted")
	return nil
}

// Profile returns a hunter with derived stats, resources, level progress,
// inventory and leaderboard placement.
func (s *HunterService) Profile(ctx context.Context, userID, hunterID int64) (*Profile, error) {
	h, err := loadOwned(ctx, s.hunters, userID, hunterID)
	if err != nil {
		return nil, err
	}

	items, err := s.inventory.ListItems(ctx, h.ID)
	if err != nil {
		return nil, translate(err, "list_items_failed")
	}

	placement, err := s.board.Position(ctx, h.ID)
	if err != nil {
		log.Warn().Err(err).Int64("hunter_id", h.ID).Msg("Failed to read leaderboard position")
		placement = 0
	}

	d := stats.Derive(h.Attributes, h.Level)
	hp, mp := stats.Resources(h, d)
	return &Profile{
		Hunter:    h,
		Derived:   d,
		HP:        hp,
		MP:        mp,
		Progress:  leveling.ProgressOf(h.Experience),
		Items:     items,
		Placement: placement,
	}, nil
}

// AdjustCurrency applies gold and diamond deltas. Balances never go negative.
func (s *HunterService) AdjustCurrency(ctx context.Context, hunterID, goldDelta, diamondDelta int64, entryType, description string) (model.Balances, error) {
	if goldDelta == 0 && diamondDelta == 0 {
		return model.Balances{}, ErrInvalidAmount
	}
	var desc *string
	if description != "" {
		desc = &description
	}
	b, err := s.hunters.AdjustCurrency(ctx, hunterID, goldDelta, diamondDelta, entryType, desc)
	if err != nil {
		return model.Balances{}, translate(err, "adjust_currency_failed")
	}
	log.Info().
		Int64("hunter_id", hunterID).
		Int64("gold_delta", goldDelta).
		Int64("diamond_delta", diamondDelta).
		Str("type", entryType).
		Msg("Currency adjusted")
	return b, nil
}

// History returns a hunter's recent currency changes, newest first.
func (s *HunterService) History(ctx context.Context, userID, hunterID int64, limit int) ([]*model.LedgerEntry, error) {
	h, err := loadOwned(ctx, s.hunters, userID, hunterID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	entries, err := s.ledger.ListByHunter(ctx, h.ID, limit)
	if err != nil {
		return nil, translate(err, "list_history_failed")
	}
	return entries, nil
}
