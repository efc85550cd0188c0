// Package character owns the mutable character sheet. Every mutation goes
// through Store; requests for a resource that is not available are ignored
// rather than rejected, so callers check the read-only predicates first.
package character

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/KirkDiggler/grimoire/internal/dice"
	gerr "github.com/KirkDiggler/grimoire/internal/errors"
	"github.com/KirkDiggler/grimoire/internal/events"
	"github.com/KirkDiggler/grimoire/internal/rules"
)

const maxDeathSaves = 3

// SlotRecovery asks for Count slots of spell level Level back
type SlotRecovery struct {
	Level int `json:"level"`
	Count int `json:"count"`
}

// HitDiceRoll is the outcome of spending hit dice
type HitDiceRoll struct {
	// Rolls are the per-die heal amounts after the CON modifier and the
	// minimum of 1.
	Rolls  []int
	Spent  int
	Healed int
}

// Config holds the dependencies for the store
type Config struct {
	// Initial is copied; nil starts from DefaultState.
	Initial *State
	// Roller is only used for hit dice.
	Roller dice.Roller
	// Bus is optional.
	Bus    *events.Bus
	Logger *slog.Logger
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := gerr.NewValidationBuilder()

	if c.Roller == nil {
		vb.RequiredField("Roller")
	}

	return vb.Build()
}

// Store guards the single character state
type Store struct {
	mu     sync.RWMutex
	state  *State
	roller dice.Roller
	bus    *events.Bus
	logger *slog.Logger
}

// NewStore creates a store with the provided dependencies
func NewStore(cfg *Config) (*Store, error) {
	if cfg == nil {
		return nil, gerr.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, gerr.Wrap(err, "invalid store config")
	}

	state := cfg.Initial.Clone()
	if state == nil {
		state = DefaultState()
	}
	state.normalize()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		state:  state,
		roller: cfg.Roller,
		bus:    cfg.Bus,
		logger: logger,
	}, nil
}

func (s *Store) provisioned() {
	if s == nil || s.state == nil {
		panic("character: store not provisioned")
	}
}

// read runs fn under the read lock
func (s *Store) read(fn func(st *State)) {
	s.provisioned()
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.state)
}

// mutate runs fn under the write lock and publishes the event it returns
// once the lock is released. A nil event means nothing changed.
func (s *Store) mutate(fn func(st *State) *events.StateChanged) {
	s.provisioned()

	s.mu.Lock()
	evt := fn(s.state)
	s.mu.Unlock()

	if evt == nil || s.bus == nil {
		return
	}
	if err := s.bus.Emit(evt); err != nil {
		s.logger.Warn("state change listener failed",
			"event", evt.GetType(),
			"error", err)
	}
}

func changed(t events.EventType, key string, level, amount int) *events.StateChanged {
	return events.NewStateChanged(t, key, level, amount)
}

// Snapshot returns a deep copy of the current state
func (s *Store) Snapshot() *State {
	var out *State
	s.read(func(st *State) { out = st.Clone() })
	return out
}

// Level returns the character level
func (s *Store) Level() int {
	var out int
	s.read(func(st *State) { out = st.Level })
	return out
}

// HP returns the hit point block
func (s *Store) HP() HP {
	var out HP
	s.read(func(st *State) { out = st.HP })
	return out
}

// --- spell slots ---

// CastSpell spends one slot of the given level when one is free.
func (s *Store) CastSpell(slotLevel int) {
	s.mutate(func(st *State) *events.StateChanged {
		i := st.slotIndex(slotLevel)
		if i < 0 || st.Slots[i].Used >= st.Slots[i].Max {
			return nil
		}
		st.Slots[i].Used++
		return changed(events.EventTypeSlotSpent, "", slotLevel, 1)
	})
}

// RecoverSlot gives one slot of the given level back.
func (s *Store) RecoverSlot(slotLevel int) {
	s.RecoverSlots([]SlotRecovery{{Level: slotLevel, Count: 1}})
}

// RecoverSlots gives back slots in bulk, each level clamped at zero used.
func (s *Store) RecoverSlots(recoveries []SlotRecovery) {
	for _, r := range recoveries {
		s.mutate(func(st *State) *events.StateChanged {
			i := st.slotIndex(r.Level)
			if i < 0 || r.Count <= 0 || st.Slots[i].Used == 0 {
				return nil
			}
			n := min(r.Count, st.Slots[i].Used)
			st.Slots[i].Used -= n
			return changed(events.EventTypeSlotRecovered, "", r.Level, n)
		})
	}
}

// Slot returns the pool for a spell level
func (s *Store) Slot(level int) (SlotPool, bool) {
	var (
		out SlotPool
		ok  bool
	)
	s.read(func(st *State) { out, ok = st.Slot(level) })
	return out, ok
}

// HasSlotAvailable reports whether a slot of the level can be spent
func (s *Store) HasSlotAvailable(level int) bool {
	pool, ok := s.Slot(level)
	return ok && pool.Used < pool.Max
}

// --- spell lists ---

// PrepareSpell adds id to the prepared list. The prepared cap is a caller
// policy and is not checked here.
func (s *Store) PrepareSpell(id string) {
	s.mutate(func(st *State) *events.StateChanged {
		if id == "" || slices.Contains(st.PreparedSpells, id) {
			return nil
		}
		st.PreparedSpells = append(st.PreparedSpells, id)
		return changed(events.EventTypeSpellPrepared, id, 0, 0)
	})
}

// UnprepareSpell removes id from the prepared list
func (s *Store) UnprepareSpell(id string) {
	s.mutate(func(st *State) *events.StateChanged {
		i := slices.Index(st.PreparedSpells, id)
		if i < 0 {
			return nil
		}
		st.PreparedSpells = slices.Delete(st.PreparedSpells, i, i+1)
		return changed(events.EventTypeSpellUnprepared, id, 0, 0)
	})
}

// LearnSpell adds id to the known list
func (s *Store) LearnSpell(id string) {
	s.mutate(func(st *State) *events.StateChanged {
		if id == "" || slices.Contains(st.KnownSpells, id) {
			return nil
		}
		st.KnownSpells = append(st.KnownSpells, id)
		return changed(events.EventTypeSpellLearned, id, 0, 0)
	})
}

// IsPrepared reports whether id is on the prepared list
func (s *Store) IsPrepared(id string) bool {
	var out bool
	s.read(func(st *State) { out = slices.Contains(st.PreparedSpells, id) })
	return out
}

// IsKnown reports whether id is on the known list
func (s *Store) IsKnown(id string) bool {
	var out bool
	s.read(func(st *State) { out = slices.Contains(st.KnownSpells, id) })
	return out
}

// --- hit points ---

// TakeDamage applies damage, using temp HP first. Current HP floors at 0.
func (s *Store) TakeDamage(amount int) {
	s.mutate(func(st *State) *events.StateChanged {
		if amount <= 0 {
			return nil
		}

		remaining := amount
		if st.HP.Temp > 0 {
			absorbed := min(st.HP.Temp, remaining)
			st.HP.Temp -= absorbed
			remaining -= absorbed
		}
		st.HP.Current = max(0, st.HP.Current-remaining)
		return changed(events.EventTypeDamageTaken, "", 0, amount)
	})
}

// Heal restores hit points up to max
func (s *Store) Heal(amount int) {
	s.mutate(func(st *State) *events.StateChanged {
		healed := st.heal(amount)
		if healed == 0 {
			return nil
		}
		return changed(events.EventTypeHealed, "", 0, healed)
	})
}

func (st *State) heal(amount int) int {
	if amount <= 0 || st.HP.Current >= st.HP.Max {
		return 0
	}
	before := st.HP.Current
	st.HP.Current = min(st.HP.Max, st.HP.Current+amount)
	return st.HP.Current - before
}

// SetTempHP grants temporary hit points. They don't stack; the larger
// value wins.
func (s *Store) SetTempHP(amount int) {
	s.mutate(func(st *State) *events.StateChanged {
		if amount <= st.HP.Temp {
			return nil
		}
		st.HP.Temp = amount
		return changed(events.EventTypeTempHPSet, "", 0, amount)
	})
}

// MarkDeathSave adds a success or failure pip, capped at three each
func (s *Store) MarkDeathSave(success bool) {
	s.mutate(func(st *State) *events.StateChanged {
		key := "failure"
		pips := &st.DeathSaves.Failures
		if success {
			key = "success"
			pips = &st.DeathSaves.Successes
		}
		if *pips >= maxDeathSaves {
			return nil
		}
		*pips++
		return changed(events.EventTypeDeathSave, key, 0, *pips)
	})
}

// ResetDeathSaves clears both pip tracks
func (s *Store) ResetDeathSaves() {
	s.mutate(func(st *State) *events.StateChanged {
		if st.DeathSaves == (DeathSaves{}) {
			return nil
		}
		st.DeathSaves = DeathSaves{}
		return changed(events.EventTypeDeathSave, "reset", 0, 0)
	})
}

// --- level and abilities ---

// LevelUp raises the level by one, up to 20
func (s *Store) LevelUp() {
	s.setLevel(func(level int) int { return level + 1 })
}

// LevelDown lowers the level by one, down to 1. Slot usage above the new
// maxima is clamped, never raised.
func (s *Store) LevelDown() {
	s.setLevel(func(level int) int { return level - 1 })
}

func (s *Store) setLevel(next func(int) int) {
	s.mutate(func(st *State) *events.StateChanged {
		level := rules.ClampLevel(next(st.Level))
		if level == st.Level {
			return nil
		}
		st.Level = level
		st.rederive()
		return changed(events.EventTypeLevelChanged, "", level, 0)
	})
}

// UpdateAbility sets a score, clamped into [1,30]
func (s *Store) UpdateAbility(code Ability, value int) {
	s.mutate(func(st *State) *events.StateChanged {
		if !slices.Contains(Abilities, code) {
			return nil
		}
		value = rules.ClampAbilityScore(value)
		if st.Abilities[code] == value {
			return nil
		}
		st.Abilities[code] = value
		return changed(events.EventTypeAbilityChanged, string(code), 0, value)
	})
}

// --- skills ---

// ToggleSkill cycles a skill None -> Proficient -> Expertise -> None
func (s *Store) ToggleSkill(name string) {
	s.mutate(func(st *State) *events.StateChanged {
		i := st.skillIndex(name)
		if i < 0 {
			return nil
		}
		sk := &st.Skills[i]
		switch {
		case sk.Expertise:
			sk.Proficient, sk.Expertise = false, false
		case sk.Proficient:
			sk.Expertise = true
		default:
			sk.Proficient = true
		}
		return changed(events.EventTypeSkillChanged, name, 0, 0)
	})
}

// UpdateSkill sets both flags directly. Expertise without proficiency is
// stored as given.
func (s *Store) UpdateSkill(name string, proficient, expertise bool) {
	s.mutate(func(st *State) *events.StateChanged {
		i := st.skillIndex(name)
		if i < 0 {
			return nil
		}
		st.Skills[i].Proficient = proficient
		st.Skills[i].Expertise = expertise
		return changed(events.EventTypeSkillChanged, name, 0, 0)
	})
}

// SkillModifier returns the total modifier of a named skill
func (s *Store) SkillModifier(name string) (int, bool) {
	var (
		out int
		ok  bool
	)
	s.read(func(st *State) {
		i := st.skillIndex(name)
		if i < 0 {
			return
		}
		sk := st.Skills[i]
		out = rules.SkillModifier(st.Abilities[sk.Ability], st.ProficiencyBonus, sk.Proficient, sk.Expertise)
		ok = true
	})
	return out, ok
}

// SkillNames lists the skills in sheet order
func (s *Store) SkillNames() []string {
	var out []string
	s.read(func(st *State) {
		out = make([]string, 0, len(st.Skills))
		for _, sk := range st.Skills {
			out = append(out, sk.Name)
		}
	})
	return out
}

// --- derived combat numbers ---

// ArmorClass is 10 + DEX modifier + every active AC effect
func (s *Store) ArmorClass() int {
	var out int
	s.read(func(st *State) {
		bonuses := make([]int, 0, len(st.ActiveEffects))
		for _, e := range st.ActiveEffects {
			if e.Kind == EffectKindAC {
				bonuses = append(bonuses, e.Value)
			}
		}
		out = rules.ArmorClass(st.Abilities[AbilityDexterity], bonuses...)
	})
	return out
}

// SpellSaveDC uses intelligence as the casting ability
func (s *Store) SpellSaveDC() int {
	var out int
	s.read(func(st *State) {
		out = rules.SpellSaveDC(st.Abilities[AbilityIntelligence], st.ProficiencyBonus)
	})
	return out
}

// SpellAttackBonus uses intelligence as the casting ability
func (s *Store) SpellAttackBonus() int {
	var out int
	s.read(func(st *State) {
		out = rules.SpellAttackBonus(st.Abilities[AbilityIntelligence], st.ProficiencyBonus)
	})
	return out
}

// --- effects ---

// AddEffect appends an effect. Duplicates are not filtered; check HasEffect
// first.
func (s *Store) AddEffect(effect Effect) {
	s.mutate(func(st *State) *events.StateChanged {
		st.ActiveEffects = append(st.ActiveEffects, effect)
		return changed(events.EventTypeEffectAdded, effect.SourceSpellID, 0, effect.Value)
	})
}

// RemoveEffect drops every effect from the given spell
func (s *Store) RemoveEffect(sourceSpellID string) {
	s.mutate(func(st *State) *events.StateChanged {
		before := len(st.ActiveEffects)
		st.ActiveEffects = slices.DeleteFunc(st.ActiveEffects, func(e Effect) bool {
			return e.SourceSpellID == sourceSpellID
		})
		if len(st.ActiveEffects) == before {
			return nil
		}
		return changed(events.EventTypeEffectRemoved, sourceSpellID, 0, 0)
	})
}

// HasEffect reports whether the spell has an active effect
func (s *Store) HasEffect(sourceSpellID string) bool {
	var out bool
	s.read(func(st *State) {
		out = slices.ContainsFunc(st.ActiveEffects, func(e Effect) bool {
			return e.SourceSpellID == sourceSpellID
		})
	})
	return out
}

// --- free cast token ---

// SetFreeCastSpell commits the daily token to a spell. Only legal while the
// token is available and unassigned.
func (s *Store) SetFreeCastSpell(id string) {
	s.mutate(func(st *State) *events.StateChanged {
		if id == "" || !st.DailyFreeCast.Available || st.DailyFreeCast.Assigned() {
			return nil
		}
		st.DailyFreeCast.SpellID = id
		return changed(events.EventTypeFreeCastAssigned, id, 0, 0)
	})
}

// ConsumeFreeCast spends the token. The spell id stays for display.
func (s *Store) ConsumeFreeCast() {
	s.mutate(func(st *State) *events.StateChanged {
		if !st.DailyFreeCast.Available {
			return nil
		}
		st.DailyFreeCast.Available = false
		return changed(events.EventTypeFreeCastConsumed, st.DailyFreeCast.SpellID, 0, 0)
	})
}

// IsFreeCastSpell reports whether an available token is committed to id
func (s *Store) IsFreeCastSpell(id string) bool {
	var out bool
	s.read(func(st *State) {
		out = st.DailyFreeCast.Available && st.DailyFreeCast.SpellID == id
	})
	return out
}

// CanAssignFreeCast reports whether the token may still be committed
func (s *Store) CanAssignFreeCast() bool {
	var out bool
	s.read(func(st *State) {
		out = st.DailyFreeCast.Available && !st.DailyFreeCast.Assigned()
	})
	return out
}

// --- hit dice and arcane recovery ---

// HitDiceAvailable is the number of hit dice left to spend
func (s *Store) HitDiceAvailable() int {
	var out int
	s.read(func(st *State) { out = st.Level - st.HitDice.Used })
	return out
}

// UseHitDice spends up to count hit dice and heals by the rolled amount,
// which it returns.
func (s *Store) UseHitDice(count int) int {
	return s.SpendHitDice(count).Healed
}

// SpendHitDice is UseHitDice with the individual dice. Each die heals
// roll + CON modifier, at least 1. A roller failure stops after the dice
// already rolled.
func (s *Store) SpendHitDice(count int) *HitDiceRoll {
	out := &HitDiceRoll{}
	s.mutate(func(st *State) *events.StateChanged {
		n := min(count, st.Level-st.HitDice.Used)
		if n <= 0 {
			return nil
		}

		conMod := st.Modifier(AbilityConstitution)
		for i := 0; i < n; i++ {
			roll, err := s.roller.Roll(1, st.HitDice.DieSize, 0)
			if err != nil {
				s.logger.Error("failed to roll hit die",
					"die", st.HitDice.DieSize,
					"error", err)
				break
			}
			v := max(1, roll.Total+conMod)
			out.Rolls = append(out.Rolls, v)
			out.Healed += v
		}
		out.Spent = len(out.Rolls)
		if out.Spent == 0 {
			return nil
		}

		st.HitDice.Used += out.Spent
		st.heal(out.Healed)
		return changed(events.EventTypeHitDiceSpent, "", 0, out.Spent)
	})
	return out
}

// UseArcaneRecovery latches the once-per-long-rest arcane recovery flag
func (s *Store) UseArcaneRecovery() {
	s.mutate(func(st *State) *events.StateChanged {
		if st.ArcaneRecoveryUsed {
			return nil
		}
		st.ArcaneRecoveryUsed = true
		return changed(events.EventTypeArcaneRecoveryUsed, "", 0, 0)
	})
}

// ArcaneRecoveryUsed reports the latch
func (s *Store) ArcaneRecoveryUsed() bool {
	var out bool
	s.read(func(st *State) { out = st.ArcaneRecoveryUsed })
	return out
}

// --- charges ---

// SpendCharge uses one point of a named charge if any is left
func (s *Store) SpendCharge(name string) {
	s.adjustCharge(name, -1)
}

// RestoreCharge gives back one point of a named charge, up to its max
func (s *Store) RestoreCharge(name string) {
	s.adjustCharge(name, 1)
}

func (s *Store) adjustCharge(name string, delta int) {
	s.mutate(func(st *State) *events.StateChanged {
		i := st.chargeIndex(name)
		if i < 0 {
			return nil
		}
		c := &st.Charges[i]
		next := max(0, min(c.Current+delta, c.Max))
		if next == c.Current {
			return nil
		}
		c.Current = next
		return changed(events.EventTypeChargeChanged, name, 0, next)
	})
}

// ResetCharges refills every named charge
func (s *Store) ResetCharges() {
	s.mutate(func(st *State) *events.StateChanged {
		reset := false
		for i := range st.Charges {
			if st.Charges[i].Current != st.Charges[i].Max {
				st.Charges[i].Current = st.Charges[i].Max
				reset = true
			}
		}
		if !reset {
			return nil
		}
		return changed(events.EventTypeChargeChanged, "reset", 0, 0)
	})
}

// Charge returns a named charge
func (s *Store) Charge(name string) (Charge, bool) {
	var (
		out Charge
		ok  bool
	)
	s.read(func(st *State) {
		if i := st.chargeIndex(name); i >= 0 {
			out, ok = st.Charges[i], true
		}
	})
	return out, ok
}

// --- long rest ---

// LongRest restores HP and every slot, resets the free cast token and the
// arcane recovery latch, and recovers max(1, level/2) hit dice.
func (s *Store) LongRest() {
	s.mutate(func(st *State) *events.StateChanged {
		st.HP.Current = st.HP.Max
		for i := range st.Slots {
			st.Slots[i].Used = 0
		}
		st.DailyFreeCast = FreeCast{Available: true}
		st.HitDice.Used = max(0, st.HitDice.Used-rules.HitDiceRecovered(st.Level))
		st.ArcaneRecoveryUsed = false
		return changed(events.EventTypeOnLongRest, "", st.Level, 0)
	})
}
