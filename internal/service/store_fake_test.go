package service

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hunter-gate-bot/internal/game/gate"
	"hunter-gate-bot/internal/model"
	"hunter-gate-bot/internal/repository"
)

// memStore is an in-memory implementation of every storage port with the
// same conditional semantics as the Postgres repositories.
type memStore struct {
	mu      sync.Mutex
	nextID  int64
	hunters map[int64]*model.Hunter
	gates   map[int64]*model.Gate
	items   map[int64]map[string]int
	ledger  []*model.LedgerEntry

	staleWrites  int
	applyLootErr error
	completeErr  error
}

func newMemStore() *memStore {
	return &memStore{
		hunters: make(map[int64]*model.Hunter),
		gates:   make(map[int64]*model.Gate),
		items:   make(map[int64]map[string]int),
	}
}

func cloneGate(g *model.Gate) *model.Gate {
	c := *g
	c.RoomsPerDepth = slices.Clone(g.RoomsPerDepth)
	return &c
}

// put stores a hunter directly, for test setup.
func (m *memStore) put(h *model.Hunter) *model.Hunter {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h.ID == 0 {
		m.nextID++
		h.ID = m.nextID
	}
	m.hunters[h.ID] = h.Clone()
	return h
}

// ========== HunterStore ==========

func (m *memStore) Create(_ context.Context, p repository.CreateHunterParams, maxPerUser int) (*model.Hunter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, h := range m.hunters {
		if strings.EqualFold(h.Name, p.Name) {
			return nil, repository.ErrNameTaken
		}
		if h.UserID == p.UserID {
			count++
		}
	}
	if count >= maxPerUser {
		return nil, repository.ErrHunterLimit
	}

	m.nextID++
	h := &model.Hunter{
		ID:         m.nextID,
		UserID:     p.UserID,
		Name:       p.Name,
		Class:      p.Class,
		Rank:       model.RankE,
		Level:      1,
		Attributes: p.Attributes,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	m.hunters[h.ID] = h
	return h.Clone(), nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (*model.Hunter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hunters[id]
	if !ok {
		return nil, repository.ErrHunterNotFound
	}
	return h.Clone(), nil
}

func (m *memStore) ListByUser(_ context.Context, userID int64) ([]*model.Hunter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Hunter
	for _, h := range m.hunters {
		if h.UserID == userID {
			out = append(out, h.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *model.Hunter) int { return int(a.ID - b.ID) })
	return out, nil
}

func (m *memStore) Delete(_ context.Context, id, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hunters[id]
	if !ok || h.UserID != userID {
		return repository.ErrHunterNotFound
	}
	delete(m.hunters, id)
	delete(m.gates, id)
	delete(m.items, id)
	return nil
}

func (m *memStore) ApplyExperience(_ context.Context, id, expected int64, u repository.ExperienceUpdate) (*model.Hunter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hunters[id]
	if !ok {
		return nil, repository.ErrHunterNotFound
	}
	if err := m.checkExperience(h, expected); err != nil {
		return nil, err
	}
	applyExperience(h, u)
	return h.Clone(), nil
}

// checkExperience consumes one injected stale write, then compares.
func (m *memStore) checkExperience(h *model.Hunter, expected int64) error {
	if m.staleWrites > 0 {
		m.staleWrites--
		return repository.ErrStaleHunter
	}
	if h.Experience != expected {
		return repository.ErrStaleHunter
	}
	return nil
}

func applyExperience(h *model.Hunter, u repository.ExperienceUpdate) {
	h.Experience = u.Experience
	if u.Level != nil {
		h.Level = *u.Level
	}
	if u.Rank != nil {
		h.Rank = *u.Rank
	}
	h.StatPoints += u.StatPoints
	h.SkillPoints += u.SkillPoints
	if u.RestoreResources {
		h.CurrentHP, h.CurrentMP = nil, nil
	}
}

func (m *memStore) AllocateStat(_ context.Context, id, userID int64, stat model.Stat) (*model.Hunter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hunters[id]
	if !ok || h.UserID != userID {
		return nil, repository.ErrHunterNotFound
	}
	if h.StatPoints <= 0 {
		return nil, repository.ErrNoStatPoints
	}
	h.Attributes = h.Attributes.With(stat, 1)
	h.StatPoints--
	return h.Clone(), nil
}

func (m *memStore) AdjustCurrency(_ context.Context, id, goldDelta, diamondDelta int64, entryType string, description *string) (model.Balances, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hunters[id]
	if !ok {
		return model.Balances{}, repository.ErrHunterNotFound
	}
	if h.Gold+goldDelta < 0 || h.Diamonds+diamondDelta < 0 {
		return model.Balances{}, repository.ErrInsufficientFunds
	}
	h.Gold += goldDelta
	h.Diamonds += diamondDelta
	m.record(id, goldDelta, diamondDelta, entryType, description)
	return model.Balances{Gold: h.Gold, Diamonds: h.Diamonds}, nil
}

func (m *memStore) record(id, gold, diamonds int64, entryType string, description *string) {
	m.ledger = append(m.ledger, &model.LedgerEntry{
		ID:           int64(len(m.ledger) + 1),
		HunterID:     id,
		GoldDelta:    gold,
		DiamondDelta: diamonds,
		Type:         entryType,
		Description:  description,
		CreatedAt:    time.Now(),
	})
}

// ========== LedgerStore ==========

func (m *memStore) ListByHunter(_ context.Context, hunterID int64, limit int) ([]*model.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.LedgerEntry
	for i := len(m.ledger) - 1; i >= 0 && len(out) < limit; i-- {
		if m.ledger[i].HunterID == hunterID {
			out = append(out, m.ledger[i])
		}
	}
	return out, nil
}

// ========== SkillStore ==========

type memSkills struct{ *memStore }

func (m memSkills) Unlock(_ context.Context, hunterID int64, skillID model.SkillID, cost int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hunters[hunterID]
	if !ok {
		return repository.ErrHunterNotFound
	}
	if h.SkillPoints < cost {
		return repository.ErrNoSkillPoints
	}
	if h.HasUnlocked(skillID) {
		return repository.ErrSkillUnlocked
	}
	h.UnlockedSkills = append(h.UnlockedSkills, skillID)
	h.SkillPoints -= cost
	return nil
}

func (m memSkills) Equip(_ context.Context, hunterID int64, skillID model.SkillID, maxSlots int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hunters[hunterID]
	switch {
	case !ok:
		return repository.ErrHunterNotFound
	case !h.HasUnlocked(skillID):
		return repository.ErrSkillNotUnlocked
	case h.IsEquipped(skillID):
		return repository.ErrSkillEquipped
	case len(h.EquippedSkills) >= maxSlots:
		return repository.ErrSlotsFull
	}
	h.EquippedSkills = append(h.EquippedSkills, skillID)
	return nil
}

func (m memSkills) Unequip(_ context.Context, hunterID int64, skillID model.SkillID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hunters[hunterID]
	if !ok || !h.IsEquipped(skillID) {
		return repository.ErrSkillNotEquipped
	}
	h.EquippedSkills = slices.DeleteFunc(h.EquippedSkills, func(id model.SkillID) bool { return id == skillID })
	return nil
}

// ========== GateStore ==========

type memGates struct{ *memStore }

func (m memGates) Create(_ context.Context, g *model.Gate, now time.Time) (*model.Gate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hunters[g.HunterID]
	if !ok {
		return nil, repository.ErrHunterNotFound
	}
	if existing, ok := m.gates[g.HunterID]; ok {
		if !existing.ExpiresAt.Before(now) {
			return nil, repository.ErrGateExists
		}
		delete(m.gates, g.HunterID)
	}
	c := cloneGate(g)
	c.OwnerUserID = h.UserID
	m.gates[g.HunterID] = c
	return cloneGate(c), nil
}

func (m memGates) GetByHunter(_ context.Context, hunterID int64) (*model.Gate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.gates[hunterID]
	if !ok {
		return nil, repository.ErrGateNotFound
	}
	return cloneGate(g), nil
}

func (m memGates) byID(id uuid.UUID) *model.Gate {
	for _, g := range m.gates {
		if g.ID == id {
			return g
		}
	}
	return nil
}

func (m memGates) GetByID(_ context.Context, id uuid.UUID) (*model.Gate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.byID(id)
	if g == nil {
		return nil, repository.ErrGateNotFound
	}
	return cloneGate(g), nil
}

// ClearRoom validates everything before writing anything, like the
// transaction it stands in for.
func (m memGates) ClearRoom(_ context.Context, id uuid.UUID, pos gate.Position, reward repository.RoomReward) (repository.ClearedRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.byID(id)
	switch {
	case g == nil:
		return repository.ClearedRoom{}, repository.ErrGateNotFound
	case gate.PositionOf(g) != pos:
		return repository.ClearedRoom{}, repository.ErrGatePositionChanged
	case g.RoomStatus == model.RoomCleared:
		return repository.ClearedRoom{}, nil
	}
	h, ok := m.hunters[reward.HunterID]
	if !ok {
		return repository.ClearedRoom{}, repository.ErrHunterNotFound
	}
	if reward.Experience != nil {
		if err := m.checkExperience(h, reward.ExpectedExperience); err != nil {
			return repository.ClearedRoom{}, err
		}
	}
	hasLoot := len(reward.Items) > 0 || reward.Gold > 0
	if hasLoot && m.applyLootErr != nil {
		return repository.ClearedRoom{}, m.applyLootErr
	}

	g.RoomStatus = model.RoomCleared
	out := repository.ClearedRoom{FirstClear: true}
	if reward.Experience != nil {
		applyExperience(h, *reward.Experience)
		out.Hunter = h.Clone()
	}
	if hasLoot {
		out.Balances = m.applyLoot(h, reward.Items, reward.Gold, reward.Description)
	}
	return out, nil
}

func (m memGates) Advance(_ context.Context, id uuid.UUID, from, to gate.Position) (*model.Gate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.byID(id)
	if g == nil || gate.PositionOf(g) != from || g.RoomStatus != model.RoomCleared {
		return nil, repository.ErrGatePositionChanged
	}
	g.CurrentDepth, g.CurrentRoom, g.RoomStatus = to.Depth, to.Room, model.RoomPending
	return cloneGate(g), nil
}

func (m memGates) Complete(_ context.Context, id uuid.UUID, from gate.Position, reward repository.CompletionReward) (model.Balances, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.byID(id)
	if g == nil || gate.PositionOf(g) != from || g.RoomStatus != model.RoomCleared {
		return model.Balances{}, repository.ErrGatePositionChanged
	}
	if m.completeErr != nil {
		return model.Balances{}, m.completeErr
	}
	h, ok := m.hunters[reward.HunterID]
	if !ok {
		return model.Balances{}, repository.ErrHunterNotFound
	}
	delete(m.gates, g.HunterID)
	if reward.Gold <= 0 {
		return model.Balances{}, nil
	}
	h.Gold += reward.Gold
	desc := reward.Description
	m.record(h.ID, reward.Gold, 0, model.LedgerTypeGateReward, &desc)
	return model.Balances{Gold: h.Gold, Diamonds: h.Diamonds}, nil
}

func (m memGates) DeleteExpired(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.byID(id)
	if g == nil || !g.ExpiresAt.Before(now) {
		return false, nil
	}
	delete(m.gates, g.HunterID)
	return true, nil
}

func (m memGates) DeleteByHunter(_ context.Context, hunterID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.gates[hunterID]
	delete(m.gates, hunterID)
	return ok, nil
}

func (m memGates) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for hunterID, g := range m.gates {
		if g.ExpiresAt.Before(now) {
			delete(m.gates, hunterID)
			n++
		}
	}
	return n, nil
}

// ========== InventoryStore ==========

func (m *memStore) applyLoot(h *model.Hunter, items []model.ItemStack, gold int64, description string) model.Balances {
	inv := m.items[h.ID]
	if inv == nil {
		inv = make(map[string]int)
		m.items[h.ID] = inv
	}
	for _, it := range items {
		inv[it.ItemID] += it.Quantity
	}
	h.Gold += gold
	if gold > 0 {
		m.record(h.ID, gold, 0, model.LedgerTypeLoot, &description)
	}
	return model.Balances{Gold: h.Gold, Diamonds: h.Diamonds}
}

func (m *memStore) ListItems(_ context.Context, hunterID int64) ([]model.ItemStack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ItemStack
	for id, qty := range m.items[hunterID] {
		out = append(out, model.ItemStack{ItemID: id, Quantity: qty})
	}
	slices.SortFunc(out, func(a, b model.ItemStack) int { return strings.Compare(a.ItemID, b.ItemID) })
	return out, nil
}

// ========== Leaderboard ==========

type memBoard struct {
	mu      sync.Mutex
	entries map[int64]model.LeaderboardEntry
}

func newMemBoard() *memBoard {
	return &memBoard{entries: make(map[int64]model.LeaderboardEntry)}
}

func (b *memBoard) Record(_ context.Context, hunterID int64, name string, experience int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[hunterID] = model.LeaderboardEntry{HunterID: hunterID, Name: name, Experience: experience}
	return nil
}

func (b *memBoard) Remove(_ context.Context, hunterID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, hunterID)
	return nil
}

func (b *memBoard) sorted() []model.LeaderboardEntry {
	out := make([]model.LeaderboardEntry, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(x, y model.LeaderboardEntry) int {
		if x.Experience != y.Experience {
			if x.Experience > y.Experience {
				return -1
			}
			return 1
		}
		return int(x.HunterID - y.HunterID)
	})
	for i := range out {
		out[i].Position = int64(i + 1)
	}
	return out
}

func (b *memBoard) Top(_ context.Context, limit int64) ([]model.LeaderboardEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.sorted()
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (b *memBoard) Position(_ context.Context, hunterID int64) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.sorted() {
		if e.HunterID == hunterID {
			return e.Position, nil
		}
	}
	return 0, nil
}
