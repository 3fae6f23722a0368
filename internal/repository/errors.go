// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Common errors for repository operations.
var (
	ErrHunterNotFound      = errors.New("hunter not found")
	ErrHunterLimit         = errors.New("hunter limit reached")
	ErrNameTaken           = errors.New("hunter name taken")
	ErrStaleHunter         = errors.New("hunter changed concurrently")
	ErrNoStatPoints        = errors.New("no stat points")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrNoSkillPoints       = errors.New("not enough skill points")
	ErrSkillUnlocked       = errors.New("skill already unlocked")
	ErrSkillNotUnlocked    = errors.New("skill not unlocked")
	ErrSkillEquipped       = errors.New("skill already equipped")
	ErrSkillNotEquipped    = errors.New("skill not equipped")
	ErrSlotsFull           = errors.New("skill slots full")
	ErrGateNotFound        = errors.New("gate not found")
	ErrGateExists          = errors.New("hunter already has a gate")
	ErrGatePositionChanged = errors.New("gate position or status changed")
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// withTx runs fn in a transaction, committing on success.
func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
