package casting_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/grimoire/internal/casting"
	"github.com/KirkDiggler/grimoire/internal/catalog"
	"github.com/KirkDiggler/grimoire/internal/character"
	mockdice "github.com/KirkDiggler/grimoire/internal/dice/mock"
	gerr "github.com/KirkDiggler/grimoire/internal/errors"
	"github.com/KirkDiggler/grimoire/internal/rules"
)

type CastingSuite struct {
	suite.Suite

	ctx     context.Context
	catalog *catalog.Catalog
	store   *character.Store
	caster  *casting.Caster
}

func (s *CastingSuite) SetupTest() {
	s.ctx = context.Background()

	var err error
	s.catalog, err = catalog.Load()
	s.Require().NoError(err)

	s.store, err = character.NewStore(&character.Config{Roller: mockdice.NewManualMockRoller()})
	s.Require().NoError(err)

	s.caster, err = casting.New(&casting.Config{Store: s.store, Catalog: s.catalog})
	s.Require().NoError(err)
}

func (s *CastingSuite) cast(id string, slot int) *casting.CastOutput {
	out, err := s.caster.Cast(s.ctx, &casting.CastInput{SpellID: id, SlotLevel: slot})
	s.Require().NoError(err)
	return out
}

func (s *CastingSuite) used(level int) int {
	pool, ok := s.store.Slot(level)
	s.Require().True(ok)
	return pool.Used
}

func (s *CastingSuite) TestCast_DamageAtBaseLevel() {
	out := s.cast("magic-missile", 0)

	s.Equal(casting.OutcomeDamage, out.Outcome)
	s.Equal(casting.PaymentSlot, out.Payment)
	s.Equal(1, out.SlotLevel)
	s.Equal(1, s.used(1))

	s.Require().NotNil(out.Plan)
	s.Equal(3, out.Plan.Request.Projectiles)
	s.Zero(out.Plan.Options.AttackCount)
}

func (s *CastingSuite) TestCast_Upcast() {
	out := s.cast("magic-missile", 2)

	s.Equal(4, out.Plan.Request.Projectiles)
	s.Equal(0, s.used(1))
	s.Equal(1, s.used(2))
}

func (s *CastingSuite) TestCast_AttackSpellCarriesAttackBonus() {
	s.Require().NoError(s.caster.Prepare("scorching-ray"))

	out := s.cast("scorching-ray", 2)

	// INT 18 (+4) and proficiency +2 at level 4
	s.Equal(3, out.Plan.Options.AttackCount)
	s.Equal(6, out.Plan.Options.AttackBonus)
	s.Equal("2D6", out.Plan.Request.String())
}

func (s *CastingSuite) TestCast_CantripIsFreeAndScales() {
	out := s.cast("fire-bolt", 0)
	s.Equal(casting.PaymentNone, out.Payment)
	s.Equal(1, out.Plan.Request.Count)
	s.Equal(1, out.Plan.Options.AttackCount)

	s.store.LevelUp()
	out = s.cast("fire-bolt", 3)
	s.Equal(0, out.SlotLevel)
	s.Equal(2, out.Plan.Request.Count)
}

func (s *CastingSuite) TestCast_ToggleShield() {
	s.Equal(12, s.store.ArmorClass())

	out := s.cast("shield", 0)
	s.Equal(casting.OutcomeEffectAdded, out.Outcome)
	s.Equal(casting.PaymentSlot, out.Payment)
	s.Equal(17, s.store.ArmorClass())
	s.Equal(1, s.used(1))

	out = s.cast("shield", 0)
	s.Equal(casting.OutcomeEffectRemoved, out.Outcome)
	s.Equal(casting.PaymentNone, out.Payment)
	s.Equal(12, s.store.ArmorClass())
	s.Equal(1, s.used(1))
}

func (s *CastingSuite) TestCast_MageArmorSetsBase() {
	s.cast("mage-armor", 0)
	s.Equal(rules.MageArmorBase+2, s.store.ArmorClass())

	st := s.store.Snapshot()
	s.Require().Len(st.ActiveEffects, 1)
	s.Equal(character.Effect{
		SourceSpellID: "mage-armor",
		Name:          "Mage Armor",
		Kind:          character.EffectKindAC,
		Value:         3,
	}, st.ActiveEffects[0])
}

func (s *CastingSuite) TestCast_NonArmorEffects() {
	s.Require().NoError(s.caster.Prepare("mirror-image"))
	s.cast("mirror-image", 0)

	out := s.cast("true-strike", 0)
	s.Equal(casting.PaymentNone, out.Payment)

	st := s.store.Snapshot()
	s.Require().Len(st.ActiveEffects, 2)
	s.Equal(character.EffectKindOther, st.ActiveEffects[0].Kind)
	s.Equal(3, st.ActiveEffects[0].Value)
	s.Equal(character.EffectKindOther, st.ActiveEffects[1].Kind)
	s.Equal(12, s.store.ArmorClass())
}

func (s *CastingSuite) TestCast_FreeCastBypassesSlot() {
	s.Require().NoError(s.caster.AssignFreeCast("magic-missile"))
	s.True(s.store.IsFreeCastSpell("magic-missile"))

	out := s.cast("magic-missile", 0)
	s.Equal(casting.PaymentFreeCast, out.Payment)
	s.Equal(0, s.used(1))
	s.False(s.store.Snapshot().DailyFreeCast.Available)

	out = s.cast("magic-missile", 0)
	s.Equal(casting.PaymentSlot, out.Payment)
	s.Equal(1, s.used(1))

	err := s.caster.AssignFreeCast("shield")
	s.True(gerr.IsFailedPrecondition(err))
}

func (s *CastingSuite) TestCast_FreeCastOnlyAtSpellLevel() {
	s.Require().NoError(s.caster.AssignFreeCast("magic-missile"))

	out := s.cast("magic-missile", 2)
	s.Equal(casting.PaymentSlot, out.Payment)
	s.True(s.store.IsFreeCastSpell("magic-missile"))
}

func (s *CastingSuite) TestCast_FreeCastSkipsPreparation() {
	s.Require().NoError(s.caster.AssignFreeCast("thunderwave"))

	out := s.cast("thunderwave", 0)
	s.Equal(casting.PaymentFreeCast, out.Payment)
	s.Equal("2D8", out.Plan.Request.String())
}

func (s *CastingSuite) TestAssignFreeCast_RejectsCantrip() {
	err := s.caster.AssignFreeCast("fire-bolt")
	s.True(gerr.IsInvalidArgument(err))
	s.True(s.store.CanAssignFreeCast())
}

func (s *CastingSuite) TestCast_NoSlotLeft() {
	for i := 0; i < 4; i++ {
		s.store.CastSpell(1)
	}

	_, err := s.caster.Cast(s.ctx, &casting.CastInput{SpellID: "shield"})
	s.Require().Error(err)
	s.True(gerr.IsFailedPrecondition(err))
	s.False(s.store.HasEffect("shield"))
}

func (s *CastingSuite) TestCast_NotPrepared() {
	_, err := s.caster.Cast(s.ctx, &casting.CastInput{SpellID: "thunderwave"})
	s.True(gerr.IsFailedPrecondition(err))
	s.Equal(0, s.used(1))
}

func (s *CastingSuite) TestCast_ChargeSpells() {
	out := s.cast("lucky", 0)
	s.Equal(casting.PaymentCharge, out.Payment)
	s.Equal(casting.OutcomeUtility, out.Outcome)
	s.cast("lucky", 0)

	_, err := s.caster.Cast(s.ctx, &casting.CastInput{SpellID: "lucky"})
	s.True(gerr.IsFailedPrecondition(err))

	luck, _ := s.store.Charge(character.ChargeLuck)
	s.Zero(luck.Current)
	s.Equal(0, s.used(1))
}

func (s *CastingSuite) TestCast_Utility() {
	s.Require().NoError(s.caster.Prepare("detect-magic"))

	out := s.cast("detect-magic", 0)
	s.Equal(casting.OutcomeUtility, out.Outcome)
	s.Nil(out.Plan)
	s.Equal(1, s.used(1))
}

func (s *CastingSuite) TestCast_InvalidInput() {
	tests := []struct {
		name  string
		input *casting.CastInput
		check func(error) bool
	}{
		{name: "nil", input: nil, check: gerr.IsInvalidArgument},
		{name: "unknown spell", input: &casting.CastInput{SpellID: "wish"}, check: gerr.IsNotFound},
		{name: "slot below spell level", input: &casting.CastInput{SpellID: "mirror-image", SlotLevel: 1}, check: gerr.IsInvalidArgument},
		{name: "slot above nine", input: &casting.CastInput{SpellID: "shield", SlotLevel: 10}, check: gerr.IsInvalidArgument},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.caster.Cast(s.ctx, tt.input)
			s.Require().Error(err)
			s.True(tt.check(err))
		})
	}
}

func (s *CastingSuite) TestCast_Cancelled() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.caster.Cast(ctx, &casting.CastInput{SpellID: "shield"})
	s.Error(err)
	s.Equal(0, s.used(1))
}

func (s *CastingSuite) TestPrepare_Cap() {
	s.store.LearnSpell("burning-hands")

	for _, id := range []string{
		"thunderwave", "chromatic-orb", "comprehend-languages", "detect-magic",
		"feather-fall", "identify", "grease", "mirror-image", "scorching-ray",
	} {
		s.Require().NoError(s.caster.Prepare(id), id)
	}
	s.Equal(rules.PreparedSpellCap, casting.PreparedCount(s.store.Snapshot(), s.catalog))

	err := s.caster.Prepare("burning-hands")
	s.True(gerr.IsFailedPrecondition(err))
	s.False(s.store.IsPrepared("burning-hands"))

	// exempt and already prepared spells ignore the cap
	s.NoError(s.caster.Prepare("lucky"))
	s.NoError(s.caster.Prepare("shield"))

	s.Require().NoError(s.caster.Unprepare("grease"))
	s.NoError(s.caster.Prepare("burning-hands"))
}

func (s *CastingSuite) TestPrepare_Unknown() {
	err := s.caster.Prepare("fireball")
	s.True(gerr.IsFailedPrecondition(err))

	err = s.caster.Prepare("not-a-spell")
	s.True(gerr.IsNotFound(err))
}

func TestCastingSuite(t *testing.T) {
	suite.Run(t, new(CastingSuite))
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := casting.New(&casting.Config{})
	require.Error(t, err)
	assert.True(t, gerr.IsInvalidArgument(err))

	fields, ok := gerr.GetMeta(err)["validation_errors"].(map[string][]string)
	require.True(t, ok)
	assert.Contains(t, fields, "Store")
	assert.Contains(t, fields, "Catalog")
}

func TestPreparedCount_SkipsCantripsAndExempt(t *testing.T) {
	cat, err := catalog.Load()
	require.NoError(t, err)

	// fire-bolt, mage-hand, minor-illusion and chronal-shift are free
	assert.Equal(t, 3, casting.PreparedCount(character.DefaultState(), cat))

	shield, _ := cat.Get("shield")
	lucky, _ := cat.Get("lucky")
	assert.False(t, casting.IsExempt(shield))
	assert.True(t, casting.IsExempt(lucky))
	assert.False(t, casting.IsExempt(nil))
	assert.False(t, casting.CanPrepare(character.DefaultState(), cat, "wish"))
}
