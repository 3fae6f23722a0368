// Package loot resolves probabilistic rewards for defeated enemies.
package loot

import (
	_ "embed"
	"fmt"
	"math/rand/v2"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"hunter-gate-bot/internal/model"
)

// GoldItemID marks a table entry paid out as gold instead of an item.
const GoldItemID = "gold"

//go:embed tables.yaml
var defaultTablesYAML []byte

// Entry is one possible drop.
type Entry struct {
	ItemID      string  `yaml:"item"`
	DropChance  float64 `yaml:"chance"`
	MinQuantity int     `yaml:"min"`
	MaxQuantity int     `yaml:"max"`
}

// Tables maps enemy ids to their drop entries.
type Tables map[string][]Entry

// DefaultTables parses the embedded loot tables.
func DefaultTables() (Tables, error) {
	return ParseTables(defaultTablesYAML)
}

// ParseTables parses and validates YAML loot tables.
func ParseTables(data []byte) (Tables, error) {
	var f struct {
		Enemies Tables `yaml:"enemies"`
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse loot tables: %w", err)
	}
	for enemy, entries := range f.Enemies {
		for _, e := range entries {
			if err := e.validate(); err != nil {
				return nil, fmt.Errorf("enemy %q: %w", enemy, err)
			}
		}
	}
	return f.Enemies, nil
}

func (e Entry) validate() error {
	switch {
	case e.ItemID == "":
		return fmt.Errorf("entry without item")
	case e.DropChance < 0 || e.DropChance > 1:
		return fmt.Errorf("item %q: chance %v outside [0,1]", e.ItemID, e.DropChance)
	case e.MinQuantity < 0 || e.MaxQuantity < e.MinQuantity:
		return fmt.Errorf("item %q: bad quantity range [%d,%d]", e.ItemID, e.MinQuantity, e.MaxQuantity)
	}
	return nil
}

// Rand is the randomness source for drop rolls.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// Drop is the resolved reward for one enemy.
type Drop struct {
	Items []model.ItemStack
	Gold  int64
}

// Empty reports whether nothing dropped.
func (d Drop) Empty() bool {
	return len(d.Items) == 0 && d.Gold == 0
}

// Resolver rolls loot tables. It is safe for concurrent use when its Rand is.
type Resolver struct {
	tables Tables
	rng    Rand
}

// NewResolver creates a resolver. A nil rng uses the process-wide source.
func NewResolver(tables Tables, rng Rand) *Resolver {
	if rng == nil {
		rng = globalRand{}
	}
	return &Resolver{tables: tables, rng: rng}
}

// Resolve rolls every entry for enemyID independently. Unknown enemies yield
// an empty drop.
func (r *Resolver) Resolve(enemyID string) Drop {
	entries, ok := r.tables[enemyID]
	if !ok {
		log.Debug().Str("enemy", enemyID).Msg("No loot table for enemy")
		return Drop{}
	}

	var d Drop
	for _, e := range entries {
		if r.rng.Float64() >= e.DropChance {
			continue
		}
		qty := e.MinQuantity + r.rng.IntN(e.MaxQuantity-e.MinQuantity+1)
		if qty <= 0 {
			continue
		}
		if e.ItemID == GoldItemID {
			d.Gold += int64(qty)
			continue
		}
		d.Items = append(d.Items, model.ItemStack{ItemID: e.ItemID, Quantity: qty})
	}
	return d
}

// HasTable reports whether enemyID has a loot table.
func (r *Resolver) HasTable(enemyID string) bool {
	_, ok := r.tables[enemyID]
	return ok
}
