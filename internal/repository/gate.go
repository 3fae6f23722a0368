package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hunter-gate-bot/internal/game/gate"
	"hunter-gate-bot/internal/model"
)

// gateSelect joins the owning user so ownership checks need no second read.
// Statements that modify a gate return its row through a CTE named g.
const gateSelect = `
	SELECT g.id, g.hunter_id, h.user_id, g.gate_type, g.gate_rank, g.total_depth,
		g.rooms_per_depth, g.current_depth, g.current_room, g.room_status,
		g.created_at, g.expires_at
	FROM g JOIN hunters h ON h.id = g.hunter_id
`

// GateRepository persists gates. Position changes are conditional updates on
// the expected position so concurrent advances cannot skip a room.
type GateRepository struct {
	pool *pgxpool.Pool
}

// NewGateRepository creates a new GateRepository instance.
func NewGateRepository(pool *pgxpool.Pool) *GateRepository {
	return &GateRepository{pool: pool}
}

func scanGate(row pgx.Row) (*model.Gate, error) {
	var g model.Gate
	err := row.Scan(
		&g.ID,
		&g.HunterID,
		&g.OwnerUserID,
		&g.Type,
		&g.Rank,
		&g.TotalDepth,
		&g.RoomsPerDepth,
		&g.CurrentDepth,
		&g.CurrentRoom,
		&g.RoomStatus,
		&g.CreatedAt,
		&g.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// Create stores a new gate. An expired gate held by the hunter is replaced;
// a live one yields ErrGateExists.
func (r *GateRepository) Create(ctx context.Context, g *model.Gate, now time.Time) (*model.Gate, error) {
	const query = `
		WITH g AS (
			INSERT INTO gates (id, hunter_id, gate_type, gate_rank, total_depth, rooms_per_depth,
				current_depth, current_room, room_status, created_at, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING *
		)` + gateSelect

	var created *model.Gate
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM gates WHERE hunter_id = $1 AND expires_at < $2`, g.HunterID, now); err != nil {
			return fmt.Errorf("failed to purge expired gate: %w", err)
		}

		c, err := scanGate(tx.QueryRow(ctx, query,
			g.ID, g.HunterID, g.Type, string(g.Rank), g.TotalDepth, g.RoomsPerDepth,
			g.CurrentDepth, g.CurrentRoom, string(g.RoomStatus), g.CreatedAt, g.ExpiresAt,
		))
		if err != nil {
			if isUniqueViolation(err, "") {
				return ErrGateExists
			}
			if isForeignKeyViolation(err) {
				return ErrHunterNotFound
			}
			return fmt.Errorf("failed to create gate: %w", err)
		}
		created = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetByHunter returns the hunter's gate, expired or not.
// Returns ErrGateNotFound if the hunter has none.
func (r *GateRepository) GetByHunter(ctx context.Context, hunterID int64) (*model.Gate, error) {
	const query = `WITH g AS (SELECT * FROM gates WHERE hunter_id = $1)` + gateSelect
	return r.getOne(ctx, query, hunterID)
}

// GetByID returns a gate by id.
func (r *GateRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Gate, error) {
	const query = `WITH g AS (SELECT * FROM gates WHERE id = $1)` + gateSelect
	return r.getOne(ctx, query, id)
}

func (r *GateRepository) getOne(ctx context.Context, query string, arg any) (*model.Gate, error) {
	g, err := scanGate(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGateNotFound
		}
		return nil, fmt.Errorf("failed to get gate: %w", err)
	}
	return g, nil
}

// RoomReward is credited in the transaction that clears a room.
type RoomReward struct {
	HunterID int64
	// Experience is written only if the hunter still has ExpectedExperience.
	// Nil grants none.
	Experience         *ExperienceUpdate
	ExpectedExperience int64
	Items              []model.ItemStack
	Gold               int64
	Description        string
}

func (rw RoomReward) hasLoot() bool {
	return len(rw.Items) > 0 || rw.Gold > 0
}

// ClearedRoom is what a room clear wrote. Hunter is set when experience was
// applied and Balances when loot was.
type ClearedRoom struct {
	FirstClear bool
	Hunter     *model.Hunter
	Balances   model.Balances
}

// errRoomNotPending rolls back a clear whose room was not pending.
var errRoomNotPending = errors.New("room not pending")

// ClearRoom clears the room at pos and credits reward in one transaction.
// Either the room is cleared with its whole reward or nothing changes, so a
// failed clear can be retried. An already cleared room reports FirstClear
// false and credits nothing. Returns ErrStaleHunter if the hunter's
// experience moved since the reward was computed.
func (r *GateRepository) ClearRoom(ctx context.Context, id uuid.UUID, pos gate.Position, reward RoomReward) (ClearedRoom, error) {
	const mark = `
		UPDATE gates SET room_status = 'cleared'
		WHERE id = $1 AND current_depth = $2 AND current_room = $3 AND room_status = 'pending'
	`

	var out ClearedRoom
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, mark, id, pos.Depth, pos.Room)
		if err != nil {
			return fmt.Errorf("failed to clear room: %w", err)
		}
		if result.RowsAffected() == 0 {
			return errRoomNotPending
		}
		out.FirstClear = true

		if reward.Experience != nil {
			h, err := applyExperience(ctx, tx, reward.HunterID, reward.ExpectedExperience, *reward.Experience)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return ErrStaleHunter
				}
				return fmt.Errorf("failed to apply room experience: %w", err)
			}
			out.Hunter = h
		}

		if reward.hasLoot() {
			b, err := applyLoot(ctx, tx, reward.HunterID, reward.Items, reward.Gold, reward.Description)
			if err != nil {
				return err
			}
			out.Balances = b
		}
		return nil
	})
	if errors.Is(err, errRoomNotPending) {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return ClearedRoom{}, err
		}
		if gate.PositionOf(current) == pos && current.RoomStatus == model.RoomCleared {
			return ClearedRoom{}, nil
		}
		return ClearedRoom{}, ErrGatePositionChanged
	}
	if err != nil {
		return ClearedRoom{}, err
	}
	return out, nil
}

// Advance moves a gate from a cleared room at from to a pending room at to.
func (r *GateRepository) Advance(ctx context.Context, id uuid.UUID, from, to gate.Position) (*model.Gate, error) {
	const query = `
		WITH g AS (
			UPDATE gates SET current_depth = $4, current_room = $5, room_status = 'pending'
			WHERE id = $1 AND current_depth = $2 AND current_room = $3 AND room_status = 'cleared'
			RETURNING *
		)` + gateSelect

	g, err := scanGate(r.pool.QueryRow(ctx, query, id, from.Depth, from.Room, to.Depth, to.Room))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGatePositionChanged
		}
		return nil, fmt.Errorf("failed to advance gate: %w", err)
	}
	return g, nil
}

// CompletionReward is paid in the transaction that completes a gate.
type CompletionReward struct {
	HunterID    int64
	Gold        int64
	Description string
}

// Complete removes a gate whose final room at from is cleared and pays the
// reward in the same transaction. If the payment fails the gate stays.
func (r *GateRepository) Complete(ctx context.Context, id uuid.UUID, from gate.Position, reward CompletionReward) (model.Balances, error) {
	const query = `
		DELETE FROM gates
		WHERE id = $1 AND current_depth = $2 AND current_room = $3 AND room_status = 'cleared'
	`

	var b model.Balances
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, query, id, from.Depth, from.Room)
		if err != nil {
			return fmt.Errorf("failed to complete gate: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrGatePositionChanged
		}
		if reward.Gold <= 0 {
			return nil
		}

		desc := reward.Description
		b, err = adjustCurrency(ctx, tx, reward.HunterID, reward.Gold, 0, model.LedgerTypeGateReward, &desc)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrHunterNotFound
		}
		return err
	})
	if err != nil {
		return model.Balances{}, err
	}
	return b, nil
}

// DeleteExpired removes the gate if it expired before now.
func (r *GateRepository) DeleteExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM gates WHERE id = $1 AND expires_at < $2`, id, now)
	if err != nil {
		return false, fmt.Errorf("failed to delete expired gate: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// DeleteByHunter removes the hunter's gate and reports whether one existed.
func (r *GateRepository) DeleteByHunter(ctx context.Context, hunterID int64) (bool, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM gates WHERE hunter_id = $1`, hunterID)
	if err != nil {
		return false, fmt.Errorf("failed to delete gate: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// PurgeExpired removes every gate that expired before now.
func (r *GateRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM gates WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired gates: %w", err)
	}
	return result.RowsAffected(), nil
}
