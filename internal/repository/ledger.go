package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"hunter-gate-bot/internal/model"
)

const defaultHistoryLimit = 10

// LedgerRepository reads the currency ledger.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository instance.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// insertLedgerEntry records a currency change. It runs on whatever querier
// the caller's balance update used so both commit together.
func insertLedgerEntry(ctx context.Context, q querier, e *model.LedgerEntry) error {
	const query = `
		INSERT INTO currency_ledger (hunter_id, gold_delta, diamond_delta, type, description, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`

	if err := q.QueryRow(ctx, query, e.HunterID, e.GoldDelta, e.DiamondDelta, e.Type, e.Description).Scan(&e.ID, &e.CreatedAt); err != nil {
		return fmt.Errorf("failed to record ledger entry: %w", err)
	}
	return nil
}

// ListByHunter returns a hunter's most recent ledger entries, newest first.
func (r *LedgerRepository) ListByHunter(ctx context.Context, hunterID int64, limit int) ([]*model.LedgerEntry, error) {
	const query = `
		SELECT id, hunter_id, gold_delta, diamond_delta, type, description, created_at
		FROM currency_ledger
		WHERE hunter_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	rows, err := r.pool.Query(ctx, query, hunterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		if err := rows.Scan(
			&e.ID,
			&e.HunterID,
			&e.GoldDelta,
			&e.DiamondDelta,
			&e.Type,
			&e.Description,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}

	return entries, nil
}
