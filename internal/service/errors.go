// Package service orchestrates the pure game rules over the storage ports.
package service

import (
	"errors"

	"hunter-gate-bot/internal/pkg/apperr"
	"hunter-gate-bot/internal/repository"
)

// Errors returned by services. Each carries a stable code and reason.
var (
	ErrUnauthorized = apperr.New(apperr.CodeUnauthorized, "unauthorized")
	ErrForbidden    = apperr.New(apperr.CodeForbidden, "not_owner")

	ErrHunterNotFound = apperr.New(apperr.CodeNotFound, "hunter_not_found")
	ErrHunterLimit    = apperr.New(apperr.CodeConflict, "hunter_limit")
	ErrNameTaken      = apperr.New(apperr.CodeConflict, "name_taken")
	ErrInvalidName    = apperr.New(apperr.CodeInvalidInput, "invalid_name")
	ErrInvalidClass   = apperr.New(apperr.CodeInvalidInput, "invalid_class")

	ErrInvalidExperience  = apperr.New(apperr.CodeInvalidInput, "invalid_experience")
	ErrInvalidStat        = apperr.New(apperr.CodeInvalidInput, "invalid_stat")
	ErrInvalidAmount      = apperr.New(apperr.CodeInvalidInput, "invalid_amount")
	ErrInsufficientPoints = apperr.New(apperr.CodeInsufficientResource, "insufficient_points")
	ErrInsufficientFunds  = apperr.New(apperr.CodeInsufficientResource, "insufficient_funds")
	ErrConcurrentUpdate   = apperr.New(apperr.CodeConflict, "concurrent_update")

	ErrUnknownSkill       = apperr.New(apperr.CodeInvalidInput, "unknown_skill")
	ErrRequirementsNotMet = apperr.New(apperr.CodeInsufficientResource, "requirements_not_met")
	ErrPassiveSkill       = apperr.New(apperr.CodeInvalidInput, "passive_skill")
	ErrNotUnlocked        = apperr.New(apperr.CodeConflict, "not_unlocked")
	ErrAlreadyEquipped    = apperr.New(apperr.CodeConflict, "already_equipped")
	ErrNotEquipped        = apperr.New(apperr.CodeConflict, "not_equipped")
	ErrSlotsFull          = apperr.New(apperr.CodeConflict, "slots_full")

	ErrNoActiveGate   = apperr.New(apperr.CodeNotFound, "no_active_gate")
	ErrGateActive     = apperr.New(apperr.CodeConflict, "gate_active")
	ErrGateExpired    = apperr.New(apperr.CodeExpired, "gate_expired")
	ErrRoomNotCleared = apperr.New(apperr.CodeConflict, "room_not_cleared")
	ErrGateChanged    = apperr.New(apperr.CodeConflict, "gate_changed")
)

// storeErrors maps repository sentinels onto service errors.
var storeErrors = []struct {
	from error
	to   *apperr.Error
}{
	{repository.ErrHunterNotFound, ErrHunterNotFound},
	{repository.ErrHunterLimit, ErrHunterLimit},
	{repository.ErrNameTaken, ErrNameTaken},
	{repository.ErrStaleHunter, ErrConcurrentUpdate},
	{repository.ErrNoStatPoints, ErrInsufficientPoints},
	{repository.ErrInsufficientFunds, ErrInsufficientFunds},
	{repository.ErrNoSkillPoints, ErrRequirementsNotMet},
	{repository.ErrSkillUnlocked, ErrRequirementsNotMet},
	{repository.ErrSkillNotUnlocked, ErrNotUnlocked},
	{repository.ErrSkillEquipped, ErrAlreadyEquipped},
	{repository.ErrSkillNotEquipped, ErrNotEquipped},
	{repository.ErrSlotsFull, ErrSlotsFull},
	{repository.ErrGateNotFound, ErrNoActiveGate},
	{repository.ErrGateExists, ErrGateActive},
	{repository.ErrGatePositionChanged, ErrGateChanged},
}

// translate converts a storage error into a service error. Unknown errors
// become internal with the given reason so driver text never reaches users.
func translate(err error, reason string) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	for _, m := range storeErrors {
		if errors.Is(err, m.from) {
			return m.to.Wrap(err)
		}
	}
	return apperr.Internal(reason, err)
}
