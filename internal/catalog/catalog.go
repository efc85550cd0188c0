// Package catalog holds the read-only spell records the engine consumes.
package catalog

import (
	_ "embed"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"gopkg.in/yaml.v3"

	gerr "github.com/KirkDiggler/grimoire/internal/errors"
)

//go:embed spells.yaml
var bundled []byte

// Schools whose entries are innate powers rather than prepared spells.
const (
	SchoolFeat        = "Feat"
	SchoolAptitude    = "Aptitude"
	SchoolChronomancy = "Chronomancy"
)

// Effect types that make a spell a lasting toggle.
const (
	EffectTypeBuff    = "Buff"
	EffectTypeDefense = "Defense"
)

// Damage is the damage line of a spell
type Damage struct {
	Dice string `yaml:"dice"`
	Type string `yaml:"type"`
}

// Effect describes a lasting effect a spell applies
type Effect struct {
	Value string `yaml:"value"`
	Label string `yaml:"label"`
	Type  string `yaml:"type"`
}

// Spell is one catalog record
type Spell struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	Level         int      `yaml:"level"`
	School        string   `yaml:"school"`
	CastingTime   string   `yaml:"casting_time"`
	Range         string   `yaml:"range"`
	Components    []string `yaml:"components"`
	Materials     string   `yaml:"materials,omitempty"`
	Duration      string   `yaml:"duration"`
	Concentration bool     `yaml:"concentration,omitempty"`
	Ritual        bool     `yaml:"ritual,omitempty"`
	Description   string   `yaml:"description"`
	HigherLevels  string   `yaml:"higher_levels,omitempty"`
	Damage        *Damage  `yaml:"damage,omitempty"`
	Effect        *Effect  `yaml:"effect,omitempty"`
	// Charge names the per-day counter the spell spends instead of a slot.
	Charge string `yaml:"charge,omitempty"`
}

// IsCantrip reports a level 0 spell
func (s *Spell) IsCantrip() bool { return s.Level == 0 }

// IsExempt reports whether the spell is an innate power outside the
// prepared list.
func (s *Spell) IsExempt() bool {
	switch s.School {
	case SchoolFeat, SchoolAptitude, SchoolChronomancy:
		return true
	}
	return false
}

// CountsTowardPreparedCap reports whether preparing the spell uses up room
// under the prepared cap.
func (s *Spell) CountsTowardPreparedCap() bool {
	return s.Level > 0 && !s.IsExempt()
}

// AlwaysPrepared is true for cantrips and innate powers
func (s *Spell) AlwaysPrepared() bool {
	return s.Level == 0 || s.IsExempt()
}

// HasDamage reports a damage line
func (s *Spell) HasDamage() bool { return s.Damage != nil && s.Damage.Dice != "" }

// IsToggle reports a buff or defense spell that is switched on and off
func (s *Spell) IsToggle() bool {
	return s.Effect != nil && (s.Effect.Type == EffectTypeBuff || s.Effect.Type == EffectTypeDefense)
}

type document struct {
	Spells []*Spell `yaml:"spells"`
}

// Catalog is an ordered, read-only set of spells
type Catalog struct {
	spells []*Spell
	byID   map[string]*Spell
}

// Load returns the bundled catalog
func Load() (*Catalog, error) {
	return Parse(bundled)
}

// LoadFile reads a catalog from a YAML file
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, gerr.Wrapf(err, "failed to read spell catalog %s", path)
	}
	return Parse(data)
}

// Parse decodes a catalog document
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, gerr.WrapWithCode(err, gerr.CodeInvalidArgument, "failed to parse spell catalog")
	}

	c := &Catalog{byID: make(map[string]*Spell, len(doc.Spells))}
	for i, s := range doc.Spells {
		if s == nil || s.ID == "" {
			return nil, gerr.InvalidArgumentf("spell #%d has no id", i+1)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, gerr.InvalidArgumentf("duplicate spell id %q", s.ID)
		}
		if s.Level < 0 || s.Level > 9 {
			return nil, gerr.InvalidArgumentf("spell %q has level %d", s.ID, s.Level)
		}
		c.spells = append(c.spells, s)
		c.byID[s.ID] = s
	}
	return c, nil
}

// Get returns a spell by id
func (c *Catalog) Get(id string) (*Spell, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// Find returns a spell by id or name. Unknown input is a NotFound error
// carrying the closest matches.
func (c *Catalog) Find(query string) (*Spell, error) {
	if s, ok := c.byID[query]; ok {
		return s, nil
	}
	for _, s := range c.spells {
		if strings.EqualFold(s.Name, query) || strings.EqualFold(s.ID, query) {
			return s, nil
		}
	}

	err := gerr.NotFoundf("unknown spell %q", query)
	if suggestions := c.Suggest(query); len(suggestions) > 0 {
		err = err.WithMeta("suggestions", suggestions)
	}
	return nil, err
}

// All returns the spells in catalog order
func (c *Catalog) All() []*Spell {
	return slices.Clone(c.spells)
}

// ByLevel returns the spells of one level in catalog order
func (c *Catalog) ByLevel(level int) []*Spell {
	var out []*Spell
	for _, s := range c.spells {
		if s.Level == level {
			out = append(out, s)
		}
	}
	return out
}

// Suggest returns spell ids close to query, best first.
func (c *Catalog) Suggest(query string) []string {
	return Closest(query, c.ids())
}

func (c *Catalog) ids() []string {
	ids := make([]string, len(c.spells))
	for i, s := range c.spells {
		ids[i] = s.ID
	}
	return ids
}

// Closest ranks candidates by edit distance to query, dropping the ones
// too far away for their length. Spaces and dashes are ignored.
func Closest(query string, candidates []string) []string {
	q := fold(query)
	if q == "" {
		return nil
	}

	type match struct {
		value string
		dist  int
	}
	var matches []match
	for _, cand := range candidates {
		f := fold(cand)
		dist := levenshtein.ComputeDistance(q, f)
		if strings.HasPrefix(f, q) {
			dist = 0
		}
		if dist > distanceLimit(len(f)) {
			continue
		}
		matches = append(matches, match{value: cand, dist: dist})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].dist < matches[j].dist
	})

	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.value
	}
	return out
}

func distanceLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}

func fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", " ", "", "_", "").Replace(s)
}
