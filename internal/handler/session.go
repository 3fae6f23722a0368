package handler

import (
	"context"
	"errors"

	lru "github.com/hashicorp/golang-lru"

	"hunter-gate-bot/internal/model"
)

// errNoHunter is returned when the sender has no hunter to act with.
var errNoHunter = errors.New("no hunter")

// DefaultSelectionSize is used when the configured cache size is not positive.
const DefaultSelectionSize = 4096

// hunterLister is the part of HunterService the selection needs.
type hunterLister interface {
	List(ctx context.Context, userID int64) ([]*model.Hunter, error)
}

// Selection remembers which hunter each user is playing. Entries are
// evicted least-recently-used; an evicted user falls back to their first hunter.
type Selection struct {
	cache   *lru.Cache
	hunters hunterLister
}

// NewSelection creates a selection cache holding up to size users.
func NewSelection(size int, hunters hunterLister) (*Selection, error) {
	if size <= 0 {
		size = DefaultSelectionSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Selection{cache: cache, hunters: hunters}, nil
}

// Select makes hunterID the user's active hunter.
func (s *Selection) Select(userID, hunterID int64) {
	s.cache.Add(userID, hunterID)
}

// Forget clears the selection if it points at hunterID.
func (s *Selection) Forget(userID, hunterID int64) {
	if v, ok := s.cache.Peek(userID); ok && v.(int64) == hunterID {
		s.cache.Remove(userID)
	}
}

// Current returns the user's active hunter id. With nothing selected the
// oldest hunter is chosen and remembered. ok is false when the user has none.
func (s *Selection) Current(ctx context.Context, userID int64) (int64, bool, error) {
	if v, ok := s.cache.Get(userID); ok {
		return v.(int64), true, nil
	}
	hunters, err := s.hunters.List(ctx, userID)
	if err != nil {
		return 0, false, err
	}
	if len(hunters) == 0 {
		return 0, false, nil
	}
	s.cache.Add(userID, hunters[0].ID)
	return hunters[0].ID, true, nil
}

// Require returns the user's active hunter id or errNoHunter.
func (s *Selection) Require(ctx context.Context, userID int64) (int64, error) {
	id, ok, err := s.Current(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errNoHunter
	}
	return id, nil
}
