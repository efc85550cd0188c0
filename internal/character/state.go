package character

import (
	"slices"
	"strings"

	"github.com/KirkDiggler/grimoire/internal/rules"
)

// Ability is one of the six ability codes
type Ability string

const (
	AbilityStrength     Ability = "STR"
	AbilityDexterity    Ability = "DEX"
	AbilityConstitution Ability = "CON"
	AbilityIntelligence Ability = "INT"
	AbilityWisdom       Ability = "WIS"
	AbilityCharisma     Ability = "CHA"
)

// Abilities lists the codes in sheet order
var Abilities = []Ability{
	AbilityStrength, AbilityDexterity, AbilityConstitution,
	AbilityIntelligence, AbilityWisdom, AbilityCharisma,
}

// ParseAbility resolves a case-insensitive ability code
func ParseAbility(s string) (Ability, bool) {
	for _, a := range Abilities {
		if strings.EqualFold(string(a), s) {
			return a, true
		}
	}
	return "", false
}

// HP tracks hit points and temporary HP
type HP struct {
	Current int `json:"current"`
	Max     int `json:"max"`
	Temp    int `json:"temp"`
}

// Skill is one proficiency line on the sheet
type Skill struct {
	Name       string  `json:"name"`
	Ability    Ability `json:"ability"`
	Proficient bool    `json:"proficient"`
	Expertise  bool    `json:"expertise"`
}

// SlotPool tracks spell slots at one spell level
type SlotPool struct {
	Level int `json:"level"`
	Max   int `json:"max"`
	Used  int `json:"used"`
}

// Available is the number of slots left in the pool
func (p SlotPool) Available() int {
	return p.Max - p.Used
}

// EffectKind separates effects that feed armor class from the rest
type EffectKind string

const (
	EffectKindAC    EffectKind = "AC"
	EffectKindOther EffectKind = "Other"
)

// Effect is a lasting spell effect. One per source spell.
type Effect struct {
	SourceSpellID string     `json:"source_spell_id"`
	Name          string     `json:"name"`
	Kind          EffectKind `json:"kind"`
	Value         int        `json:"value"`
}

// FreeCast is the once-per-day free casting token. SpellID is empty until
// the token is committed to a spell.
type FreeCast struct {
	Available bool   `json:"available"`
	SpellID   string `json:"spell_id,omitempty"`
}

// Assigned reports whether the token is committed to a spell
func (f FreeCast) Assigned() bool {
	return f.SpellID != ""
}

// HitDice tracks the hit dice pool. The pool size equals the character level.
type HitDice struct {
	Used    int `json:"used"`
	DieSize int `json:"die_size"`
}

// Charge is a named per-day counter
type Charge struct {
	Name    string `json:"name"`
	Current int    `json:"current"`
	Max     int    `json:"max"`
}

// DeathSaves counts death saving throw pips, each in [0,3]
type DeathSaves struct {
	Successes int `json:"successes"`
	Failures  int `json:"failures"`
}

// State is the full character sheet
type State struct {
	Name               string          `json:"name"`
	Level              int             `json:"level"`
	ProficiencyBonus   int             `json:"proficiency_bonus"`
	HP                 HP              `json:"hp"`
	Abilities          map[Ability]int `json:"abilities"`
	Skills             []Skill         `json:"skills"`
	PreparedSpells     []string        `json:"prepared_spells"`
	KnownSpells        []string        `json:"known_spells"`
	Slots              []SlotPool      `json:"slots"`
	ActiveEffects      []Effect        `json:"active_effects"`
	DailyFreeCast      FreeCast        `json:"daily_free_cast"`
	HitDice            HitDice         `json:"hit_dice"`
	ArcaneRecoveryUsed bool            `json:"arcane_recovery_used"`
	Charges            []Charge        `json:"charges"`
	DeathSaves         DeathSaves      `json:"death_saves"`
}

// Clone returns a deep copy of the state
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}

	c := *s
	c.Abilities = make(map[Ability]int, len(s.Abilities))
	for k, v := range s.Abilities {
		c.Abilities[k] = v
	}
	c.Skills = slices.Clone(s.Skills)
	c.PreparedSpells = slices.Clone(s.PreparedSpells)
	c.KnownSpells = slices.Clone(s.KnownSpells)
	c.Slots = slices.Clone(s.Slots)
	c.ActiveEffects = slices.Clone(s.ActiveEffects)
	c.Charges = slices.Clone(s.Charges)
	return &c
}

// Modifier returns the ability modifier for code
func (s *State) Modifier(code Ability) int {
	return rules.AbilityModifier(s.Abilities[code])
}

// Slot returns the pool for a spell level
func (s *State) Slot(level int) (SlotPool, bool) {
	i := s.slotIndex(level)
	if i < 0 {
		return SlotPool{}, false
	}
	return s.Slots[i], true
}

func (s *State) slotIndex(level int) int {
	for i := range s.Slots {
		if s.Slots[i].Level == level {
			return i
		}
	}
	return -1
}

func (s *State) skillIndex(name string) int {
	for i := range s.Skills {
		if s.Skills[i].Name == name {
			return i
		}
	}
	return -1
}

func (s *State) chargeIndex(name string) int {
	for i := range s.Charges {
		if s.Charges[i].Name == name {
			return i
		}
	}
	return -1
}

// rederive recomputes everything that depends on level. Slot usage is
// carried over by spell level and never raised.
func (s *State) rederive() {
	s.ProficiencyBonus = rules.ProficiencyBonus(s.Level)

	maxima := rules.MaxSlotsForLevel(s.Level)
	slots := make([]SlotPool, 0, len(maxima))
	for _, m := range maxima {
		pool := SlotPool{Level: m.Level, Max: m.Max}
		if old, ok := s.Slot(m.Level); ok {
			pool.Used = min(old.Used, m.Max)
		}
		slots = append(slots, pool)
	}
	s.Slots = slots

	s.HitDice.Used = min(s.HitDice.Used, s.Level)
}
