package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hunter-gate-bot/internal/model"
)

const hunterColumns = `id, user_id, name, class, rank, level, experience, stat_points, skill_points,
	strength, agility, perception, intelligence, vitality,
	current_hp, current_mp, gold, diamonds, created_at, updated_at`

// statColumns maps the closed stat enum to column names.
var statColumns = map[model.Stat]string{
	model.StatStrength:     "strength",
	model.StatAgility:      "agility",
	model.StatPerception:   "perception",
	model.StatIntelligence: "intelligence",
	model.StatVitality:     "vitality",
}

// CreateHunterParams describes a new hunter.
type CreateHunterParams struct {
	UserID     int64
	Name       string
	Class      model.Class
	Attributes model.Attributes
}

// ExperienceUpdate is the delta produced by an experience gain.
// Level and Rank are nil when unchanged.
type ExperienceUpdate struct {
	Experience       int64
	Level            *int
	Rank             *model.Rank
	StatPoints       int
	SkillPoints      int
	RestoreResources bool
}

// HunterRepository handles hunter persistence.
type HunterRepository struct {
	pool *pgxpool.Pool
}

// NewHunterRepository creates a new HunterRepository instance.
func NewHunterRepository(pool *pgxpool.Pool) *HunterRepository {
	return &HunterRepository{pool: pool}
}

func scanHunter(row pgx.Row) (*model.Hunter, error) {
	var h model.Hunter
	err := row.Scan(
		&h.ID,
		&h.UserID,
		&h.Name,
		&h.Class,
		&h.Rank,
		&h.Level,
		&h.Experience,
		&h.StatPoints,
		&h.SkillPoints,
		&h.Attributes.Strength,
		&h.Attributes.Agility,
		&h.Attributes.Perception,
		&h.Attributes.Intelligence,
		&h.Attributes.Vitality,
		&h.CurrentHP,
		&h.CurrentMP,
		&h.Gold,
		&h.Diamonds,
		&h.CreatedAt,
		&h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// loadSkills fills the unlocked and equipped skill sets.
func loadSkills(ctx context.Context, q querier, h *model.Hunter) error {
	const query = `
		SELECT skill_id, equipped
		FROM hunter_skills
		WHERE hunter_id = $1
		ORDER BY unlocked_at, skill_id
	`

	rows, err := q.Query(ctx, query, h.ID)
	if err != nil {
		return fmt.Errorf("failed to load skills: %w", err)
	}
	defer rows.Close()

	h.UnlockedSkills = nil
	h.EquippedSkills = nil
	for rows.Next() {
		var id model.SkillID
		var equipped bool
		if err := rows.Scan(&id, &equipped); err != nil {
			return fmt.Errorf("failed to scan skill: %w", err)
		}
		h.UnlockedSkills = append(h.UnlockedSkills, id)
		if equipped {
			h.EquippedSkills = append(h.EquippedSkills, id)
		}
	}
	return rows.Err()
}

// Create inserts a hunter unless the user already has maxPerUser of them.
// The count and insert run under a per-user transaction lock.
func (r *HunterRepository) Create(ctx context.Context, p CreateHunterParams, maxPerUser int) (*model.Hunter, error) {
	const insert = `
		INSERT INTO hunters (user_id, name, class, rank, strength, agility, perception, intelligence, vitality)
		VALUES ($1, $2, $3, 'E', $4, $5, $6, $7, $8)
		RETURNING ` + hunterColumns

	var hunter *model.Hunter
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, p.UserID); err != nil {
			return fmt.Errorf("failed to lock user: %w", err)
		}

		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM hunters WHERE user_id = $1`, p.UserID).Scan(&count); err != nil {
			return fmt.Errorf("failed to count hunters: %w", err)
		}
		if count >= maxPerUser {
			return ErrHunterLimit
		}

		h, err := scanHunter(tx.QueryRow(ctx, insert,
			p.UserID, p.Name, string(p.Class),
			p.Attributes.Strength, p.Attributes.Agility, p.Attributes.Perception,
			p.Attributes.Intelligence, p.Attributes.Vitality,
		))
		if err != nil {
			if isUniqueViolation(err, "idx_hunters_name") {
				return ErrNameTaken
			}
			return fmt.Errorf("failed to create hunter: %w", err)
		}
		hunter = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hunter, nil
}

// GetByID retrieves a hunter with its skills.
// Returns ErrHunterNotFound if the hunter does not exist.
func (r *HunterRepository) GetByID(ctx context.Context, id int64) (*model.Hunter, error) {
	const query = `SELECT ` + hunterColumns + ` FROM hunters WHERE id = $1`

	h, err := scanHunter(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHunterNotFound
		}
		return nil, fmt.Errorf("failed to get hunter: %w", err)
	}
	if err := loadSkills(ctx, r.pool, h); err != nil {
		return nil, err
	}
	return h, nil
}

// ListByUser returns a user's hunters, oldest first.
func (r *HunterRepository) ListByUser(ctx context.Context, userID int64) ([]*model.Hunter, error) {
	const query = `SELECT ` + hunterColumns + ` FROM hunters WHERE user_id = $1 ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list hunters: %w", err)
	}

	var hunters []*model.Hunter
	for rows.Next() {
		h, err := scanHunter(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan hunter: %w", err)
		}
		hunters = append(hunters, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hunters: %w", err)
	}

	for _, h := range hunters {
		if err := loadSkills(ctx, r.pool, h); err != nil {
			return nil, err
		}
	}
	return hunters, nil
}

// Delete removes a hunter owned by userID. Skills, items, ledger and gate cascade.
func (r *HunterRepository) Delete(ctx context.Context, id, userID int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM hunters WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete hunter: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrHunterNotFound
	}
	return nil
}

// applyExperience runs the optimistic experience write on q. It returns
// pgx.ErrNoRows when the hunter's experience is no longer expected.
func applyExperience(ctx context.Context, q querier, id, expected int64, u ExperienceUpdate) (*model.Hunter, error) {
	const query = `
		UPDATE hunters
		SET experience = $3,
			level = COALESCE($4, level),
			rank = COALESCE($5, rank),
			stat_points = stat_points + $6,
			skill_points = skill_points + $7,
			current_hp = CASE WHEN $8 THEN NULL ELSE current_hp END,
			current_mp = CASE WHEN $8 THEN NULL ELSE current_mp END,
			updated_at = NOW()
		WHERE id = $1 AND experience = $2
		RETURNING ` + hunterColumns

	var rank *string
	if u.Rank != nil {
		s := string(*u.Rank)
		rank = &s
	}

	h, err := scanHunter(q.QueryRow(ctx, query,
		id, expected, u.Experience, u.Level, rank, u.StatPoints, u.SkillPoints, u.RestoreResources,
	))
	if err != nil {
		return nil, err
	}
	if err := loadSkills(ctx, q, h); err != nil {
		return nil, err
	}
	return h, nil
}

// ApplyExperience writes an experience gain if the hunter's experience is
// still expected. Returns ErrStaleHunter if another gain landed first.
func (r *HunterRepository) ApplyExperience(ctx context.Context, id, expected int64, u ExperienceUpdate) (*model.Hunter, error) {
	h, err := applyExperience(ctx, r.pool, id, expected, u)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.missOrStale(ctx, id, ErrStaleHunter)
		}
		return nil, fmt.Errorf("failed to apply experience: %w", err)
	}
	return h, nil
}

// AllocateStat spends one stat point on stat. The point check and both
// writes happen in a single conditional UPDATE.
func (r *HunterRepository) AllocateStat(ctx context.Context, id, userID int64, stat model.Stat) (*model.Hunter, error) {
	col, ok := statColumns[stat]
	if !ok {
		return nil, fmt.Errorf("unknown stat %d", stat)
	}
	query := fmt.Sprintf(`
		UPDATE hunters
		SET %[1]s = %[1]s + 1, stat_points = stat_points - 1, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND stat_points > 0
		RETURNING `+hunterColumns, col)

	h, err := scanHunter(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.missOrStale(ctx, id, ErrNoStatPoints)
		}
		return nil, fmt.Errorf("failed to allocate stat: %w", err)
	}
	if err := loadSkills(ctx, r.pool, h); err != nil {
		return nil, err
	}
	return h, nil
}

// adjustCurrency applies currency deltas on q and records a ledger entry.
// It returns pgx.ErrNoRows when either balance would go negative or the
// hunter does not exist.
func adjustCurrency(ctx context.Context, q querier, id, goldDelta, diamondDelta int64, entryType string, description *string) (model.Balances, error) {
	const query = `
		UPDATE hunters
		SET gold = gold + $2, diamonds = diamonds + $3, updated_at = NOW()
		WHERE id = $1 AND gold + $2 >= 0 AND diamonds + $3 >= 0
		RETURNING gold, diamonds
	`

	var b model.Balances
	if err := q.QueryRow(ctx, query, id, goldDelta, diamondDelta).Scan(&b.Gold, &b.Diamonds); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Balances{}, err
		}
		return model.Balances{}, fmt.Errorf("failed to adjust currency: %w", err)
	}
	err := insertLedgerEntry(ctx, q, &model.LedgerEntry{
		HunterID:     id,
		GoldDelta:    goldDelta,
		DiamondDelta: diamondDelta,
		Type:         entryType,
		Description:  description,
	})
	if err != nil {
		return model.Balances{}, err
	}
	return b, nil
}

// AdjustCurrency applies gold and diamond deltas atomically and records a
// ledger entry. Returns ErrInsufficientFunds if either balance would go negative.
func (r *HunterRepository) AdjustCurrency(ctx context.Context, id, goldDelta, diamondDelta int64, entryType string, description *string) (model.Balances, error) {
	var b model.Balances
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		b, err = adjustCurrency(ctx, tx, id, goldDelta, diamondDelta, entryType, description)
		if errors.Is(err, pgx.ErrNoRows) {
			return r.missOrStale(ctx, id, ErrInsufficientFunds)
		}
		return err
	})
	if err != nil {
		return model.Balances{}, err
	}
	return b, nil
}

// missOrStale distinguishes a missing hunter from a failed condition after a
// conditional update matched no rows.
func (r *HunterRepository) missOrStale(ctx context.Context, id int64, conditionErr error) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM hunters WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check hunter existence: %w", err)
	}
	if !exists {
		return ErrHunterNotFound
	}
	return conditionErr
}
