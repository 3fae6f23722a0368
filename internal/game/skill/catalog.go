// Package skill holds the static skill catalog and the rules for unlocking,
// equipping and unequipping skills.
package skill

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"
	"gopkg.in/yaml.v3"

	"hunter-gate-bot/internal/model"
)

//go:embed skills.yaml
var defaultCatalogYAML []byte

type catalogFile struct {
	Skills []model.Skill `yaml:"skills"`
}

// Catalog is the read-only set of learnable skills.
type Catalog struct {
	skills []model.Skill
	byID   map[model.SkillID]*model.Skill
}

// DefaultCatalog parses the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}

// ParseCatalog parses and validates a YAML skill catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse skill catalog: %w", err)
	}
	return NewCatalog(f.Skills)
}

// NewCatalog validates skills and indexes them by id.
func NewCatalog(skills []model.Skill) (*Catalog, error) {
	c := &Catalog{
		skills: slices.Clone(skills),
		byID:   make(map[model.SkillID]*model.Skill, len(skills)),
	}
	for i := range c.skills {
		s := &c.skills[i]
		if err := validate(s); err != nil {
			return nil, err
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate skill id %q", s.ID)
		}
		c.byID[s.ID] = s
	}
	return c, nil
}

func validate(s *model.Skill) error {
	switch {
	case s.ID == "":
		return fmt.Errorf("skill %q has no id", s.Name)
	case s.Type != model.SkillActive && s.Type != model.SkillPassive:
		return fmt.Errorf("skill %q has invalid type %q", s.ID, s.Type)
	case !s.Rank.Valid():
		return fmt.Errorf("skill %q has invalid rank %q", s.ID, s.Rank)
	case s.Cost < 0 || s.LevelRequirement < 0:
		return fmt.Errorf("skill %q has negative requirements", s.ID)
	}
	for _, c := range s.Classes {
		if !c.Valid() {
			return fmt.Errorf("skill %q names unknown class %q", s.ID, c)
		}
	}
	return nil
}

// Get returns a skill by id.
func (c *Catalog) Get(id model.SkillID) (model.Skill, bool) {
	s, ok := c.byID[id]
	if !ok {
		return model.Skill{}, false
	}
	return *s, true
}

// All returns every skill in catalog order.
func (c *Catalog) All() []model.Skill {
	return slices.Clone(c.skills)
}

// ForClass returns the skills a hunter of class cl may ever learn.
func (c *Catalog) ForClass(cl model.Class) []model.Skill {
	var out []model.Skill
	for _, s := range c.skills {
		if s.AllowsClass(cl) {
			out = append(out, s)
		}
	}
	return out
}

// skillNames implements fuzzy.Source over catalog names.
type skillNames []model.Skill

func (s skillNames) String(i int) string { return strings.ToLower(s[i].Name) }
func (s skillNames) Len() int            { return len(s) }

// minPrefix is the shortest query Find accepts as a prefix.
const minPrefix = 3

func normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Find resolves a user-typed query to exactly one skill: an exact id or name,
// or a prefix of at least minPrefix characters shared by no other skill.
func (c *Catalog) Find(query string) (model.Skill, bool) {
	q := normalize(query)
	if q == "" {
		return model.Skill{}, false
	}
	asID := strings.ReplaceAll(q, " ", "_")
	if s, ok := c.Get(model.SkillID(asID)); ok {
		return s, true
	}
	for _, s := range c.skills {
		if strings.ToLower(s.Name) == q {
			return s, true
		}
	}
	if utf8.RuneCountInString(q) < minPrefix {
		return model.Skill{}, false
	}

	found := -1
	for i, s := range c.skills {
		if !strings.HasPrefix(string(s.ID), asID) && !strings.HasPrefix(strings.ToLower(s.Name), q) {
			continue
		}
		if found >= 0 {
			return model.Skill{}, false
		}
		found = i
	}
	if found < 0 {
		return model.Skill{}, false
	}
	return c.skills[found], true
}

// Suggest returns the closest fuzzy name match for a query Find rejected.
// It is a hint for the reply, never a target for a change.
func (c *Catalog) Suggest(query string) (model.Skill, bool) {
	q := normalize(query)
	if q == "" {
		return model.Skill{}, false
	}
	matches := fuzzy.FindFrom(q, skillNames(c.skills))
	if len(matches) == 0 {
		return model.Skill{}, false
	}
	return c.skills[matches[0].Index], true
}
