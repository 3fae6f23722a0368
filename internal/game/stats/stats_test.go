package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"hunter-gate-bot/internal/model"
)

func TestDerive(t *testing.T) {
	a := model.Attributes{Strength: 15, Agility: 21, Perception: 10, Intelligence: 9, Vitality: 13}
	d := Derive(a, 4)

	assert.Equal(t, 100+130+20, d.MaxHP)
	assert.Equal(t, 50+45+8, d.MaxMP)
	assert.Equal(t, 5+6, d.Defense)
	assert.Equal(t, 5+4, d.CritRate)
	assert.Equal(t, 150+21, d.CritDamage)
	assert.Equal(t, 10+21, d.Speed)
	assert.Equal(t, 5+3, d.Evasion)
	assert.Equal(t, 75+2, d.Precision)
	assert.Equal(t, 10+22, d.BasicAttack)
	assert.Equal(t, 4, d.CooldownReduction)
}

func TestDerive_Caps(t *testing.T) {
	a := model.Attributes{Agility: 10_000, Perception: 10_000, Intelligence: 10_000}
	d := Derive(a, 1)

	assert.Equal(t, MaxCritRate, d.CritRate)
	assert.Equal(t, MaxEvasion, d.Evasion)
	assert.Equal(t, MaxPrecision, d.Precision)
	assert.Equal(t, MaxCooldownReduction, d.CooldownReduction)
}

// For any attributes, capped values never exceed their ceilings.
func TestDeriveCapsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := model.Attributes{
			Strength:     rapid.IntRange(0, 100_000).Draw(t, "str"),
			Agility:      rapid.IntRange(0, 100_000).Draw(t, "agi"),
			Perception:   rapid.IntRange(0, 100_000).Draw(t, "per"),
			Intelligence: rapid.IntRange(0, 100_000).Draw(t, "int"),
			Vitality:     rapid.IntRange(0, 100_000).Draw(t, "vit"),
		}
		d := Derive(a, rapid.IntRange(1, 999).Draw(t, "level"))
		if d.CritRate > MaxCritRate || d.Evasion > MaxEvasion ||
			d.Precision > MaxPrecision || d.CooldownReduction > MaxCooldownReduction {
			t.Fatalf("cap exceeded: %+v", d)
		}
		if d.MaxHP < 100 || d.MaxMP < 50 {
			t.Fatalf("pool below floor: %+v", d)
		}
	})
}

func TestResources(t *testing.T) {
	d := Derived{MaxHP: 120, MaxMP: 60}

	hp, mp := Resources(&model.Hunter{}, d)
	assert.Equal(t, 120, hp, "absent hp defaults to max")
	assert.Equal(t, 60, mp)

	over, under := 500, -3
	hp, mp = Resources(&model.Hunter{CurrentHP: &over, CurrentMP: &under}, d)
	assert.Equal(t, 120, hp)
	assert.Equal(t, 0, mp)
}

// The combat snapshot uses the same formulas as Derive.
func TestCombatSnapshotMatchesDerive(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := &model.Hunter{
			Level: rapid.IntRange(1, 999).Draw(t, "level"),
			Attributes: model.Attributes{
				Strength:     rapid.IntRange(0, 500).Draw(t, "str"),
				Agility:      rapid.IntRange(0, 500).Draw(t, "agi"),
				Perception:   rapid.IntRange(0, 500).Draw(t, "per"),
				Intelligence: rapid.IntRange(0, 500).Draw(t, "int"),
				Vitality:     rapid.IntRange(0, 500).Draw(t, "vit"),
			},
		}
		c := CombatSnapshot(h)
		d := Derive(h.Attributes, h.Level)
		if c.MaxHP != d.MaxHP || c.AttackPower != d.BasicAttack || c.Defense != d.Defense {
			t.Fatalf("combat %+v diverges from derived %+v", c, d)
		}
		if c.CurrentHP != c.MaxHP || c.CurrentMP != c.MaxMP {
			t.Fatalf("fresh hunter should be at full resources: %+v", c)
		}
	})
}

func TestAllocate(t *testing.T) {
	a := model.Attributes{Strength: 10}

	got, left, err := Allocate(a, 2, model.StatStrength)
	require.NoError(t, err)
	assert.Equal(t, 11, got.Strength)
	assert.Equal(t, 1, left)

	got, left, err = Allocate(a, 0, model.StatStrength)
	assert.ErrorIs(t, err, ErrNoStatPoints)
	assert.Equal(t, a, got)
	assert.Equal(t, 0, left)

	_, _, err = Allocate(a, 5, model.Stat(42))
	assert.ErrorIs(t, err, ErrUnknownStat)
}

// Allocation conserves attribute sum plus points.
func TestAllocateConservesPointsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := model.Attributes{Strength: 5, Agility: 5, Perception: 5, Intelligence: 5, Vitality: 5}
		points := rapid.IntRange(0, 20).Draw(t, "points")
		total := a.Sum() + points

		spends := rapid.SliceOfN(rapid.SampledFrom(model.Stats()), 0, 30).Draw(t, "spends")
		for _, s := range spends {
			next, left, err := Allocate(a, points, s)
			if points == 0 {
				if err == nil {
					t.Fatalf("allocation succeeded with zero points")
				}
				continue
			}
			a, points = next, left
		}
		if a.Sum()+points != total {
			t.Fatalf("sum %d + points %d != %d", a.Sum(), points, total)
		}
		if points < 0 {
			t.Fatalf("points went negative: %d", points)
		}
	})
}
