package gate

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"hunter-gate-bot/internal/model"
)

//go:embed pools.yaml
var defaultPoolsYAML []byte

// Type is a gate flavour with its encounter roster.
type Type struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	Enemies []string `yaml:"enemies"`
	Boss    string   `yaml:"boss"`
}

// Pools maps each rank to the gate types that can spawn for it.
type Pools struct {
	byRank map[model.Rank][]Type
	byID   map[string]Type
}

// DefaultPools parses the embedded pools.
func DefaultPools() (*Pools, error) {
	return ParsePools(defaultPoolsYAML)
}

// ParsePools parses a YAML pool file. The E pool is required since it is the fallback.
func ParsePools(data []byte) (*Pools, error) {
	var f struct {
		Ranks map[model.Rank][]Type `yaml:"ranks"`
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse gate pools: %w", err)
	}

	p := &Pools{byRank: make(map[model.Rank][]Type), byID: make(map[string]Type)}
	for rank, types := range f.Ranks {
		if !rank.Valid() {
			return nil, fmt.Errorf("gate pool for unknown rank %q", rank)
		}
		for _, t := range types {
			if t.ID == "" || len(t.Enemies) == 0 || t.Boss == "" {
				return nil, fmt.Errorf("gate type %q in rank %s is incomplete", t.ID, rank)
			}
			if _, dup := p.byID[t.ID]; dup {
				return nil, fmt.Errorf("duplicate gate type %q", t.ID)
			}
			p.byID[t.ID] = t
		}
		p.byRank[rank] = types
	}
	if len(p.byRank[model.RankE]) == 0 {
		return nil, fmt.Errorf("gate pools must define rank E")
	}
	return p, nil
}

// ForRank returns the pool for rank, falling back to E for unknown or empty ranks.
func (p *Pools) ForRank(rank model.Rank) []Type {
	if types := p.byRank[rank]; len(types) > 0 {
		return types
	}
	return p.byRank[model.RankE]
}

// Type returns a gate type by id.
func (p *Pools) Type(id string) (Type, bool) {
	t, ok := p.byID[id]
	return t, ok
}

// Encounter names the enemy waiting in the gate's current room. The last room
// of the last depth holds the boss.
func (p *Pools) Encounter(g *model.Gate) string {
	t, ok := p.byID[g.Type]
	if !ok {
		return ""
	}
	if g.IsFinalRoom() {
		return t.Boss
	}
	idx := g.CurrentRoom - 1
	for d := 0; d < g.CurrentDepth-1 && d < len(g.RoomsPerDepth); d++ {
		idx += g.RoomsPerDepth[d]
	}
	return t.Enemies[idx%len(t.Enemies)]
}
