// Package casting applies the spellbook rules the store leaves to its
// callers: the prepared cap, paying for a cast and building the damage
// request for the slot it was cast from.
package casting

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/KirkDiggler/grimoire/internal/catalog"
	"github.com/KirkDiggler/grimoire/internal/character"
	"github.com/KirkDiggler/grimoire/internal/dice/notation"
	gerr "github.com/KirkDiggler/grimoire/internal/errors"
	"github.com/KirkDiggler/grimoire/internal/resolver"
	"github.com/KirkDiggler/grimoire/internal/rules"
)

// Payment is how a cast was paid for
type Payment string

const (
	PaymentNone     Payment = "none"
	PaymentSlot     Payment = "slot"
	PaymentFreeCast Payment = "free_cast"
	PaymentCharge   Payment = "charge"
)

// Outcome is what a cast did to the sheet
type Outcome string

const (
	OutcomeEffectAdded   Outcome = "effect_added"
	OutcomeEffectRemoved Outcome = "effect_removed"
	OutcomeDamage        Outcome = "damage"
	OutcomeUtility       Outcome = "utility"
)

// Config holds the dependencies for the caster
type Config struct {
	Store   *character.Store
	Catalog *catalog.Catalog
	// Rules defaults to resolver.DefaultRules.
	Rules  resolver.RuleTable
	Logger *slog.Logger
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := gerr.NewValidationBuilder()

	if c.Store == nil {
		vb.RequiredField("Store")
	}
	if c.Catalog == nil {
		vb.RequiredField("Catalog")
	}

	return vb.Build()
}

// Caster runs casting workflows against one store
type Caster struct {
	store   *character.Store
	catalog *catalog.Catalog
	rules   resolver.RuleTable
	logger  *slog.Logger
}

// New creates a caster with the provided dependencies
func New(cfg *Config) (*Caster, error) {
	if cfg == nil {
		return nil, gerr.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, gerr.Wrap(err, "invalid casting config")
	}

	table := cfg.Rules
	if table == nil {
		table = resolver.DefaultRules()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Caster{
		store:   cfg.Store,
		catalog: cfg.Catalog,
		rules:   table,
		logger:  logger,
	}, nil
}

// IsExempt reports whether a spell sits outside the prepared cap
func IsExempt(spell *catalog.Spell) bool {
	return spell != nil && spell.IsExempt()
}

// PreparedCount counts the prepared spells that use up room under the cap.
// Ids missing from the catalog are not counted.
func PreparedCount(state *character.State, cat *catalog.Catalog) int {
	n := 0
	for _, id := range state.PreparedSpells {
		if s, ok := cat.Get(id); ok && s.CountsTowardPreparedCap() {
			n++
		}
	}
	return n
}

// CanPrepare reports whether preparing id would stay within the cap
func CanPrepare(state *character.State, cat *catalog.Catalog, id string) bool {
	s, ok := cat.Get(id)
	if !ok {
		return false
	}
	if !s.CountsTowardPreparedCap() {
		return true
	}
	return PreparedCount(state, cat) < rules.PreparedSpellCap
}

// Prepare adds a known spell to the prepared list, refusing once the cap is
// reached.
func (c *Caster) Prepare(id string) error {
	spell, err := c.catalog.Find(id)
	if err != nil {
		return err
	}

	state := c.store.Snapshot()
	if !c.store.IsKnown(spell.ID) {
		return gerr.FailedPreconditionf("%s is not in the spellbook", spell.Name)
	}
	if c.store.IsPrepared(spell.ID) {
		return nil
	}
	if !CanPrepare(state, c.catalog, spell.ID) {
		return gerr.FailedPreconditionf("already %d spells prepared", rules.PreparedSpellCap).
			WithMeta("spell_id", spell.ID)
	}

	c.store.PrepareSpell(spell.ID)
	return nil
}

// Unprepare removes a spell from the prepared list
func (c *Caster) Unprepare(id string) error {
	spell, err := c.catalog.Find(id)
	if err != nil {
		return err
	}
	c.store.UnprepareSpell(spell.ID)
	return nil
}

// AssignFreeCast commits the daily token to a leveled spell
func (c *Caster) AssignFreeCast(id string) error {
	spell, err := c.catalog.Find(id)
	if err != nil {
		return err
	}
	if spell.IsCantrip() {
		return gerr.InvalidArgumentf("%s is a cantrip", spell.Name)
	}
	if !c.store.CanAssignFreeCast() {
		return gerr.FailedPrecondition("free cast already assigned or spent")
	}

	c.store.SetFreeCastSpell(spell.ID)
	return nil
}

// CastInput selects the spell and the slot to cast it from
type CastInput struct {
	SpellID string
	// SlotLevel defaults to the spell's level.
	SlotLevel int
}

// CastOutput describes a completed cast
type CastOutput struct {
	Spell     *catalog.Spell
	Outcome   Outcome
	Payment   Payment
	SlotLevel int
	// Plan is set for damage spells and is ready for the resolver.
	Plan *resolver.Plan
}

// Cast pays for a spell and applies it. Lasting effects toggle: casting an
// active one ends it without cost.
func (c *Caster) Cast(ctx context.Context, input *CastInput) (*CastOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, gerr.Wrap(err, "cast cancelled")
	}
	if input == nil {
		return nil, gerr.InvalidArgument("input is required")
	}

	spell, err := c.catalog.Find(input.SpellID)
	if err != nil {
		return nil, err
	}

	slotLevel := input.SlotLevel
	if slotLevel == 0 || spell.Level == 0 {
		slotLevel = spell.Level
	}
	if slotLevel < spell.Level || slotLevel > rules.MaxSpellLevel {
		return nil, gerr.InvalidArgumentf("%s cannot be cast from a level %d slot", spell.Name, slotLevel)
	}

	out := &CastOutput{Spell: spell, SlotLevel: slotLevel}

	if spell.IsToggle() && c.store.HasEffect(spell.ID) {
		c.store.RemoveEffect(spell.ID)
		out.Outcome = OutcomeEffectRemoved
		out.Payment = PaymentNone
		c.logCast(out)
		return out, nil
	}

	// parse before paying so a bad damage line costs nothing
	var req *notation.Request
	if spell.HasDamage() {
		req, err = notation.Parse(spell.Damage.Dice)
		if err != nil {
			c.logger.Error("spell has malformed damage dice",
				"spell_id", spell.ID,
				"dice", spell.Damage.Dice,
				"error", err)
			return nil, gerr.WrapWithCode(err, gerr.CodeInternal, "spell damage is malformed")
		}
	}

	payment, err := c.pay(spell, slotLevel)
	if err != nil {
		return nil, err
	}
	out.Payment = payment

	switch {
	case spell.IsToggle():
		c.store.AddEffect(effectFor(spell))
		out.Outcome = OutcomeEffectAdded
	case req != nil:
		state := c.store.Snapshot()
		out.Plan = c.rules.Apply(&resolver.UpcastInput{
			SpellID:        spell.ID,
			SpellLevel:     spell.Level,
			SlotLevel:      slotLevel,
			CharacterLevel: state.Level,
			AttackBonus:    rules.SpellAttackBonus(state.Abilities[character.AbilityIntelligence], state.ProficiencyBonus),
			Request:        req,
		})
		out.Outcome = OutcomeDamage
	default:
		out.Outcome = OutcomeUtility
	}

	c.logCast(out)
	return out, nil
}

// pay spends whatever the spell costs. The free cast token only covers a
// cast at the spell's own level.
func (c *Caster) pay(spell *catalog.Spell, slotLevel int) (Payment, error) {
	if spell.Charge != "" {
		charge, ok := c.store.Charge(spell.Charge)
		if !ok || charge.Current == 0 {
			return "", gerr.FailedPreconditionf("no %s charges left", spell.Charge)
		}
		c.store.SpendCharge(spell.Charge)
		return PaymentCharge, nil
	}

	if spell.IsCantrip() {
		return PaymentNone, nil
	}

	if c.store.IsFreeCastSpell(spell.ID) && slotLevel == spell.Level {
		c.store.ConsumeFreeCast()
		return PaymentFreeCast, nil
	}

	if !spell.AlwaysPrepared() && !c.store.IsPrepared(spell.ID) {
		return "", gerr.FailedPreconditionf("%s is not prepared", spell.Name)
	}
	if !c.store.HasSlotAvailable(slotLevel) {
		return "", gerr.FailedPreconditionf("no level %d slot available", slotLevel).
			WithMeta("slot_level", slotLevel)
	}
	c.store.CastSpell(slotLevel)
	return PaymentSlot, nil
}

func (c *Caster) logCast(out *CastOutput) {
	c.logger.Info("spell cast",
		"spell_id", out.Spell.ID,
		"slot_level", out.SlotLevel,
		"payment", out.Payment,
		"outcome", out.Outcome)
}

// effectFor turns a spell's effect line into a sheet effect. Mage armor is
// stored as its bonus over unarmored AC.
func effectFor(spell *catalog.Spell) character.Effect {
	value, _ := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(spell.Effect.Value), "+"))
	if spell.ID == "mage-armor" {
		value = rules.MageArmorBonus
	}

	kind := character.EffectKindOther
	if label := spell.Effect.Label; strings.Contains(label, "Armor") || strings.Contains(label, "AC") {
		kind = character.EffectKindAC
	}

	return character.Effect{
		SourceSpellID: spell.ID,
		Name:          spell.Name,
		Kind:          kind,
		Value:         value,
	}
}
