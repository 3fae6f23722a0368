package repository

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hunter-gate-bot/internal/model"
)

// InventoryRepository reads item stacks. Loot is written by the room clear
// that earned it, see GateRepository.ClearRoom.
type InventoryRepository struct {
	pool *pgxpool.Pool
}

// NewInventoryRepository creates a new InventoryRepository instance
func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

// mergeStacks sums quantities per item, drops non-positive stacks and sorts
// by item id so concurrent writers take row locks in the same order.
func mergeStacks(items []model.ItemStack) []model.ItemStack {
	totals := make(map[string]int, len(items))
	for _, it := range items {
		if it.Quantity <= 0 || it.ItemID == "" {
			continue
		}
		totals[it.ItemID] += it.Quantity
	}

	merged := make([]model.ItemStack, 0, len(totals))
	for id, qty := range totals {
		merged = append(merged, model.ItemStack{ItemID: id, Quantity: qty})
	}
	slices.SortFunc(merged, func(a, b model.ItemStack) int {
		return cmp.Compare(a.ItemID, b.ItemID)
	})
	return merged
}

// applyLoot adds items and gold to a hunter on q and records the gold in the
// ledger. Callers run it inside the transaction that earned the loot.
func applyLoot(ctx context.Context, q querier, hunterID int64, items []model.ItemStack, gold int64, description string) (model.Balances, error) {
	const credit = `
		UPDATE hunters
		SET gold = gold + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING gold, diamonds
	`
	const upsert = `
		INSERT INTO hunter_items (hunter_id, item_id, quantity, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (hunter_id, item_id)
		DO UPDATE SET quantity = hunter_items.quantity + $3, updated_at = NOW()
	`

	if gold < 0 {
		return model.Balances{}, fmt.Errorf("negative loot gold %d", gold)
	}

	var b model.Balances
	if err := q.QueryRow(ctx, credit, hunterID, gold).Scan(&b.Gold, &b.Diamonds); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Balances{}, ErrHunterNotFound
		}
		return model.Balances{}, fmt.Errorf("failed to credit loot gold: %w", err)
	}

	for _, it := range mergeStacks(items) {
		if _, err := q.Exec(ctx, upsert, hunterID, it.ItemID, it.Quantity); err != nil {
			return model.Balances{}, fmt.Errorf("failed to add item %s: %w", it.ItemID, err)
		}
	}

	if gold == 0 {
		return b, nil
	}
	desc := description
	err := insertLedgerEntry(ctx, q, &model.LedgerEntry{
		HunterID:    hunterID,
		GoldDelta:   gold,
		Type:        model.LedgerTypeLoot,
		Description: &desc,
	})
	if err != nil {
		return model.Balances{}, err
	}
	return b, nil
}

// ListItems returns a hunter's item stacks ordered by item id.
func (r *InventoryRepository) ListItems(ctx context.Context, hunterID int64) ([]model.ItemStack, error) {
	const query = `
		SELECT item_id, quantity FROM hunter_items
		WHERE hunter_id = $1 AND quantity > 0
		ORDER BY item_id
	`

	rows, err := r.pool.Query(ctx, query, hunterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []model.ItemStack
	for rows.Next() {
		var it model.ItemStack
		if err := rows.Scan(&it.ItemID, &it.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
