package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hunter-gate-bot/internal/model"
)

// SkillRepository persists unlocked and equipped skills. Each write locks
// the hunter row so point spending and slot counting see a stable state.
type SkillRepository struct {
	pool *pgxpool.Pool
}

// NewSkillRepository creates a new SkillRepository instance.
func NewSkillRepository(pool *pgxpool.Pool) *SkillRepository {
	return &SkillRepository{pool: pool}
}

func lockHunter(ctx context.Context, tx pgx.Tx, hunterID int64) (skillPoints int, err error) {
	const query = `SELECT skill_points FROM hunters WHERE id = $1 FOR UPDATE`

	if err := tx.QueryRow(ctx, query, hunterID).Scan(&skillPoints); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrHunterNotFound
		}
		return 0, fmt.Errorf("failed to lock hunter: %w", err)
	}
	return skillPoints, nil
}

// Unlock records skillID as unlocked and spends cost skill points.
func (r *SkillRepository) Unlock(ctx context.Context, hunterID int64, skillID model.SkillID, cost int) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		points, err := lockHunter(ctx, tx, hunterID)
		if err != nil {
			return err
		}
		if points < cost {
			return ErrNoSkillPoints
		}

		result, err := tx.Exec(ctx, `
			INSERT INTO hunter_skills (hunter_id, skill_id)
			VALUES ($1, $2)
			ON CONFLICT (hunter_id, skill_id) DO NOTHING
		`, hunterID, string(skillID))
		if err != nil {
			return fmt.Errorf("failed to unlock skill: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrSkillUnlocked
		}

		if _, err := tx.Exec(ctx, `
			UPDATE hunters SET skill_points = skill_points - $2, updated_at = NOW() WHERE id = $1
		`, hunterID, cost); err != nil {
			return fmt.Errorf("failed to spend skill points: %w", err)
		}
		return nil
	})
}

// Equip marks an unlocked skill as equipped if fewer than maxSlots are in use.
func (r *SkillRepository) Equip(ctx context.Context, hunterID int64, skillID model.SkillID, maxSlots int) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := lockHunter(ctx, tx, hunterID); err != nil {
			return err
		}

		var equipped bool
		err := tx.QueryRow(ctx, `
			SELECT equipped FROM hunter_skills WHERE hunter_id = $1 AND skill_id = $2
		`, hunterID, string(skillID)).Scan(&equipped)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrSkillNotUnlocked
			}
			return fmt.Errorf("failed to get skill: %w", err)
		}
		if equipped {
			return ErrSkillEquipped
		}

		var inUse int
		if err := tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM hunter_skills WHERE hunter_id = $1 AND equipped
		`, hunterID).Scan(&inUse); err != nil {
			return fmt.Errorf("failed to count equipped skills: %w", err)
		}
		if inUse >= maxSlots {
			return ErrSlotsFull
		}

		if _, err := tx.Exec(ctx, `
			UPDATE hunter_skills SET equipped = TRUE, equipped_at = NOW()
			WHERE hunter_id = $1 AND skill_id = $2
		`, hunterID, string(skillID)); err != nil {
			return fmt.Errorf("failed to equip skill: %w", err)
		}
		return nil
	})
}

// Unequip frees the slot held by skillID.
func (r *SkillRepository) Unequip(ctx context.Context, hunterID int64, skillID model.SkillID) error {
	const query = `
		UPDATE hunter_skills SET equipped = FALSE, equipped_at = NULL
		WHERE hunter_id = $1 AND skill_id = $2 AND equipped
	`

	result, err := r.pool.Exec(ctx, query, hunterID, string(skillID))
	if err != nil {
		return fmt.Errorf("failed to unequip skill: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrSkillNotEquipped
	}
	return nil
}
