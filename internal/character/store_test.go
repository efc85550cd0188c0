package character_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KirkDiggler/grimoire/internal/character"
	"github.com/KirkDiggler/grimoire/internal/dice"
	mockdice "github.com/KirkDiggler/grimoire/internal/dice/mock"
	"github.com/KirkDiggler/grimoire/internal/events"
)

func newStore(t *testing.T, rolls ...int) (*character.Store, *mockdice.ManualMockRoller) {
	t.Helper()
	roller := mockdice.NewManualMockRoller(rolls...)
	store, err := character.NewStore(&character.Config{Roller: roller})
	require.NoError(t, err)
	return store, roller
}

func newStoreFrom(t *testing.T, initial *character.State, roller dice.Roller) *character.Store {
	t.Helper()
	store, err := character.NewStore(&character.Config{Initial: initial, Roller: roller})
	require.NoError(t, err)
	return store
}

func TestNewStore_RequiresRoller(t *testing.T) {
	_, err := character.NewStore(&character.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Roller")
}

func TestNilStorePanics(t *testing.T) {
	var store *character.Store
	assert.PanicsWithValue(t, "character: store not provisioned", func() { store.CastSpell(1) })
	assert.Panics(t, func() { _ = store.Snapshot() })
}

func TestDefaultState(t *testing.T) {
	store, _ := newStore(t)
	st := store.Snapshot()

	assert.Equal(t, 4, st.Level)
	assert.Equal(t, 2, st.ProficiencyBonus)
	assert.Equal(t, character.HP{Current: 26, Max: 26}, st.HP)
	assert.Len(t, st.Skills, 18)
	assert.Equal(t, []character.SlotPool{{Level: 1, Max: 4}, {Level: 2, Max: 3}}, st.Slots)
	assert.Equal(t, character.FreeCast{Available: true}, st.DailyFreeCast)
	assert.Equal(t, 6, st.HitDice.DieSize)
	assert.Contains(t, st.KnownSpells, "scorching-ray")
	assert.Contains(t, st.PreparedSpells, "magic-missile")

	// level 4 wizard with INT 18
	assert.Equal(t, 6, store.SpellAttackBonus())
	assert.Equal(t, 14, store.SpellSaveDC())
	assert.Equal(t, 12, store.ArmorClass())
}

func TestSnapshotIsDetached(t *testing.T) {
	store, _ := newStore(t)
	snap := store.Snapshot()
	snap.Slots[0].Used = 4
	snap.Abilities[character.AbilityIntelligence] = 1

	fresh := store.Snapshot()
	assert.Equal(t, 0, fresh.Slots[0].Used)
	assert.Equal(t, 18, fresh.Abilities[character.AbilityIntelligence])
}

func TestCastAndRecoverSlot(t *testing.T) {
	store, _ := newStore(t)

	store.CastSpell(1)
	pool, ok := store.Slot(1)
	require.True(t, ok)
	assert.Equal(t, 1, pool.Used)

	store.RecoverSlot(1)
	pool, _ = store.Slot(1)
	assert.Equal(t, 0, pool.Used)

	// recovering an unused pool does nothing
	store.RecoverSlot(1)
	pool, _ = store.Slot(1)
	assert.Equal(t, 0, pool.Used)
}

func TestCastSpell_FullPoolIsNoop(t *testing.T) {
	store, _ := newStore(t)
	for i := 0; i < 3; i++ {
		store.CastSpell(2)
	}
	before := store.Snapshot()
	assert.False(t, store.HasSlotAvailable(2))

	store.CastSpell(2)
	store.CastSpell(9)

	assert.Equal(t, before, store.Snapshot())
}

func TestRecoverSlots_Clamped(t *testing.T) {
	store, _ := newStore(t)
	store.CastSpell(1)
	store.CastSpell(1)
	store.CastSpell(2)

	store.RecoverSlots([]character.SlotRecovery{
		{Level: 1, Count: 5},
		{Level: 2, Count: 1},
		{Level: 3, Count: 1},
	})

	st := store.Snapshot()
	assert.Equal(t, 0, st.Slots[0].Used)
	assert.Equal(t, 0, st.Slots[1].Used)
}

func TestPreparedAndKnownSpells(t *testing.T) {
	store, _ := newStore(t)

	store.PrepareSpell("grease")
	store.PrepareSpell("grease")
	assert.True(t, store.IsPrepared("grease"))
	assert.Equal(t, 1, countOf(store.Snapshot().PreparedSpells, "grease"))

	store.UnprepareSpell("grease")
	assert.False(t, store.IsPrepared("grease"))

	store.LearnSpell("fireball")
	store.LearnSpell("fireball")
	assert.True(t, store.IsKnown("fireball"))
	assert.Equal(t, 1, countOf(store.Snapshot().KnownSpells, "fireball"))
}

func TestPrepareSpell_IgnoresCap(t *testing.T) {
	store, _ := newStore(t)
	for i := 0; i < 20; i++ {
		store.PrepareSpell(string(rune('a' + i)))
	}
	assert.Len(t, store.Snapshot().PreparedSpells, 27)
}

func TestDamageAndHeal(t *testing.T) {
	tests := []struct {
		name    string
		damage  int
		heal    int
		temp    int
		wantHP  int
		wantTmp int
	}{
		{name: "heal at full is a no-op", heal: 10, wantHP: 26},
		{name: "damage then heal", damage: 10, heal: 4, wantHP: 20},
		{name: "overheal clamps at max", damage: 5, heal: 50, wantHP: 26},
		{name: "damage floors at zero", damage: 100, wantHP: 0},
		{name: "negative damage ignored", damage: -5, wantHP: 26},
		{name: "temp hp absorbs first", damage: 8, temp: 5, wantHP: 23},
		{name: "temp hp partly used", damage: 3, temp: 5, wantHP: 26, wantTmp: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newStore(t)
			store.SetTempHP(tt.temp)
			store.TakeDamage(tt.damage)
			store.Heal(tt.heal)

			hp := store.HP()
			assert.Equal(t, tt.wantHP, hp.Current)
			assert.Equal(t, tt.wantTmp, hp.Temp)
			assert.GreaterOrEqual(t, hp.Current, 0)
			assert.LessOrEqual(t, hp.Current, hp.Max)
		})
	}
}

func TestSetTempHP_DoesNotStack(t *testing.T) {
	store, _ := newStore(t)
	store.SetTempHP(5)
	store.SetTempHP(3)
	assert.Equal(t, 5, store.HP().Temp)
	store.SetTempHP(8)
	assert.Equal(t, 8, store.HP().Temp)
}

func TestLevelChanges(t *testing.T) {
	store, _ := newStore(t)

	store.LevelUp()
	st := store.Snapshot()
	assert.Equal(t, 5, st.Level)
	assert.Equal(t, 3, st.ProficiencyBonus)
	assert.Equal(t, []character.SlotPool{{Level: 1, Max: 4}, {Level: 2, Max: 3}, {Level: 3, Max: 2}}, st.Slots)

	for i := 0; i < 30; i++ {
		store.LevelUp()
	}
	assert.Equal(t, 20, store.Level())

	for i := 0; i < 30; i++ {
		store.LevelDown()
	}
	assert.Equal(t, 1, store.Level())
	assert.Equal(t, []character.SlotPool{{Level: 1, Max: 2}}, store.Snapshot().Slots)
}

func TestLevelDown_ReclampsUsedSlots(t *testing.T) {
	store, _ := newStore(t)
	for i := 0; i < 4; i++ {
		store.CastSpell(1)
	}
	store.CastSpell(2)

	// level 4 -> 2: level 1 max drops from 4 to 3, level 2 slots disappear
	store.LevelDown()
	store.LevelDown()

	st := store.Snapshot()
	require.Len(t, st.Slots, 1)
	assert.Equal(t, character.SlotPool{Level: 1, Max: 3, Used: 3}, st.Slots[0])

	// climbing back never restores used slots beyond what was kept
	store.LevelUp()
	store.LevelUp()
	st = store.Snapshot()
	assert.Equal(t, character.SlotPool{Level: 1, Max: 4, Used: 3}, st.Slots[0])
	assert.Equal(t, character.SlotPool{Level: 2, Max: 3, Used: 0}, st.Slots[1])
}

func TestLevelDown_ClampsHitDice(t *testing.T) {
	store, _ := newStore(t, 3, 3, 3, 3)
	store.TakeDamage(20)
	assert.Equal(t, 20, store.UseHitDice(4))
	store.LevelDown()
	assert.Equal(t, 3, store.Snapshot().HitDice.Used)
	assert.Equal(t, 0, store.HitDiceAvailable())
}

func TestUpdateAbility(t *testing.T) {
	store, _ := newStore(t)

	store.UpdateAbility(character.AbilityDexterity, 40)
	store.UpdateAbility(character.AbilityStrength, -3)
	store.UpdateAbility(character.Ability("LUCK"), 12)

	st := store.Snapshot()
	assert.Equal(t, 30, st.Abilities[character.AbilityDexterity])
	assert.Equal(t, 1, st.Abilities[character.AbilityStrength])
	assert.NotContains(t, st.Abilities, character.Ability("LUCK"))
}

func TestToggleSkill_Cycles(t *testing.T) {
	store, _ := newStore(t)

	skill := func() character.Skill {
		for _, sk := range store.Snapshot().Skills {
			if sk.Name == "Perception" {
				return sk
			}
		}
		t.Fatal("missing skill")
		return character.Skill{}
	}

	assert.False(t, skill().Proficient)

	store.ToggleSkill("Perception")
	assert.True(t, skill().Proficient)
	assert.False(t, skill().Expertise)
	mod, _ := store.SkillModifier("Perception")
	assert.Equal(t, 3, mod)

	store.ToggleSkill("Perception")
	assert.True(t, skill().Expertise)
	mod, _ = store.SkillModifier("Perception")
	assert.Equal(t, 5, mod)

	store.ToggleSkill("Perception")
	assert.False(t, skill().Proficient)
	assert.False(t, skill().Expertise)

	_, ok := store.SkillModifier("Basket Weaving")
	assert.False(t, ok)
}

func TestUpdateSkill_DirectSet(t *testing.T) {
	store, _ := newStore(t)
	store.UpdateSkill("Arcana", false, true)

	mod, ok := store.SkillModifier("Arcana")
	require.True(t, ok)
	// expertise without proficiency still adds one bonus
	assert.Equal(t, 4+2, mod)
}

func TestEffects(t *testing.T) {
	store, _ := newStore(t)

	store.AddEffect(character.Effect{SourceSpellID: "mage-armor", Name: "Mage Armor", Kind: character.EffectKindAC, Value: 3})
	store.AddEffect(character.Effect{SourceSpellID: "lucky", Name: "Lucky", Kind: character.EffectKindOther, Value: 1})

	assert.True(t, store.HasEffect("mage-armor"))
	assert.Equal(t, 15, store.ArmorClass())

	store.RemoveEffect("mage-armor")
	assert.False(t, store.HasEffect("mage-armor"))
	assert.Equal(t, 12, store.ArmorClass())
	assert.True(t, store.HasEffect("lucky"))
}

func TestFreeCastStateMachine(t *testing.T) {
	store, _ := newStore(t)

	assert.True(t, store.CanAssignFreeCast())

	store.SetFreeCastSpell("shield")
	assert.True(t, store.IsFreeCastSpell("shield"))
	assert.False(t, store.CanAssignFreeCast())

	// cannot reassign while assigned
	store.SetFreeCastSpell("grease")
	assert.True(t, store.IsFreeCastSpell("shield"))

	store.ConsumeFreeCast()
	st := store.Snapshot()
	assert.Equal(t, character.FreeCast{Available: false, SpellID: "shield"}, st.DailyFreeCast)
	assert.False(t, store.IsFreeCastSpell("shield"))

	// spent token cannot be assigned
	store.SetFreeCastSpell("grease")
	assert.Equal(t, "shield", store.Snapshot().DailyFreeCast.SpellID)

	store.LongRest()
	assert.Equal(t, character.FreeCast{Available: true}, store.Snapshot().DailyFreeCast)
}

func TestUseHitDice(t *testing.T) {
	tests := []struct {
		name      string
		rolls     []int
		con       int
		damage    int
		count     int
		wantHeal  int
		wantUsed  int
		wantRolls []int
	}{
		{name: "con bonus per die", rolls: []int{3, 5}, con: 14, damage: 20, count: 2, wantHeal: 12, wantUsed: 2, wantRolls: []int{5, 7}},
		{name: "minimum one per die", rolls: []int{1, 2}, con: 6, damage: 20, count: 2, wantHeal: 2, wantUsed: 2, wantRolls: []int{1, 1}},
		{name: "capped by available dice", rolls: []int{1, 1, 1, 1}, con: 10, damage: 20, count: 9, wantHeal: 4, wantUsed: 4, wantRolls: []int{1, 1, 1, 1}},
		{name: "zero count", con: 10, count: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newStore(t, tt.rolls...)
			store.UpdateAbility(character.AbilityConstitution, tt.con)
			store.TakeDamage(tt.damage)
			before := store.HP().Current

			roll := store.SpendHitDice(tt.count)

			assert.Equal(t, tt.wantHeal, roll.Healed)
			assert.Equal(t, tt.wantRolls, roll.Rolls)
			assert.Equal(t, tt.wantUsed, store.Snapshot().HitDice.Used)
			assert.Equal(t, min(26, before+tt.wantHeal), store.HP().Current)
		})
	}
}

func TestUseHitDice_RollerFailureKeepsRolledDice(t *testing.T) {
	store, roller := newStore(t, 4)
	store.TakeDamage(10)

	healed := store.UseHitDice(3)

	assert.Equal(t, 6, healed)
	assert.Equal(t, 1, store.Snapshot().HitDice.Used)
	assert.Equal(t, 0, roller.Remaining())
}

func TestArcaneRecoveryLatch(t *testing.T) {
	store, _ := newStore(t)
	assert.False(t, store.ArcaneRecoveryUsed())
	store.UseArcaneRecovery()
	store.UseArcaneRecovery()
	assert.True(t, store.ArcaneRecoveryUsed())
	store.LongRest()
	assert.False(t, store.ArcaneRecoveryUsed())
}

func TestCharges(t *testing.T) {
	store, _ := newStore(t)

	store.SpendCharge(character.ChargeLuck)
	store.SpendCharge(character.ChargeLuck)
	store.SpendCharge(character.ChargeLuck)
	luck, ok := store.Charge(character.ChargeLuck)
	require.True(t, ok)
	assert.Equal(t, 0, luck.Current)

	store.RestoreCharge(character.ChargeLuck)
	luck, _ = store.Charge(character.ChargeLuck)
	assert.Equal(t, 1, luck.Current)

	store.SpendCharge(character.ChargeChrono)
	store.ResetCharges()
	for _, c := range store.Snapshot().Charges {
		assert.Equal(t, c.Max, c.Current, c.Name)
	}

	store.SpendCharge("inspiration")
	_, ok = store.Charge("inspiration")
	assert.False(t, ok)
}

func TestDeathSaves(t *testing.T) {
	store, _ := newStore(t)
	for i := 0; i < 5; i++ {
		store.MarkDeathSave(true)
	}
	store.MarkDeathSave(false)
	assert.Equal(t, character.DeathSaves{Successes: 3, Failures: 1}, store.Snapshot().DeathSaves)

	store.ResetDeathSaves()
	assert.Equal(t, character.DeathSaves{}, store.Snapshot().DeathSaves)
}

func TestLongRest(t *testing.T) {
	tests := []struct {
		name        string
		level       int
		usedHitDice int
		wantHitDice int
	}{
		{name: "level 4 recovers two", level: 4, usedHitDice: 3, wantHitDice: 1},
		{name: "level 1 recovers one", level: 1, usedHitDice: 1, wantHitDice: 0},
		{name: "never below zero", level: 10, usedHitDice: 2, wantHitDice: 0},
		{name: "level 3 recovers one", level: 3, usedHitDice: 3, wantHitDice: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initial := character.DefaultState()
			initial.Level = tt.level
			initial.HitDice.Used = tt.usedHitDice
			initial.HP.Current = 1
			initial.ArcaneRecoveryUsed = true
			initial.DailyFreeCast = character.FreeCast{SpellID: "shield"}

			store := newStoreFrom(t, initial, mockdice.NewManualMockRoller())
			store.CastSpell(1)

			store.LongRest()

			st := store.Snapshot()
			assert.Equal(t, st.HP.Max, st.HP.Current)
			for _, pool := range st.Slots {
				assert.Zero(t, pool.Used)
			}
			assert.Equal(t, character.FreeCast{Available: true}, st.DailyFreeCast)
			assert.False(t, st.ArcaneRecoveryUsed)
			assert.Equal(t, tt.wantHitDice, st.HitDice.Used)
		})
	}
}

func TestNewStore_NormalizesInitial(t *testing.T) {
	initial := &character.State{
		Level:     42,
		HP:        character.HP{Current: 90, Max: 30},
		Abilities: map[character.Ability]int{character.AbilityIntelligence: 99},
		Slots:     []character.SlotPool{{Level: 1, Max: 1, Used: 9}},
	}
	store := newStoreFrom(t, initial, mockdice.NewManualMockRoller())
	st := store.Snapshot()

	assert.Equal(t, 20, st.Level)
	assert.Equal(t, 30, st.HP.Current)
	assert.Equal(t, 30, st.Abilities[character.AbilityIntelligence])
	assert.Equal(t, 10, st.Abilities[character.AbilityDexterity])
	assert.Equal(t, character.SlotPool{Level: 1, Max: 4, Used: 4}, st.Slots[0])
	assert.Equal(t, 6, st.ProficiencyBonus)

	// the caller's value is not aliased
	assert.Equal(t, 42, initial.Level)
}

func TestStorePublishesAfterCommit(t *testing.T) {
	bus := events.NewBus()
	store, err := character.NewStore(&character.Config{
		Roller: mockdice.NewManualMockRoller(),
		Bus:    bus,
	})
	require.NoError(t, err)

	var seen []events.EventType
	bus.SubscribeAll(&events.ListenerFunc{
		Name: "recorder",
		Callback: func(e events.Event) error {
			// reads from a listener must not deadlock
			_ = store.Snapshot()
			seen = append(seen, e.GetType())
			return nil
		},
	}, events.AllStateEvents...)

	store.CastSpell(1)
	store.Heal(5) // full HP: no event
	store.TakeDamage(3)
	store.SetFreeCastSpell("shield")
	store.ConsumeFreeCast()
	store.LongRest()

	assert.Equal(t, []events.EventType{
		events.EventTypeSlotSpent,
		events.EventTypeDamageTaken,
		events.EventTypeFreeCastAssigned,
		events.EventTypeFreeCastConsumed,
		events.EventTypeOnLongRest,
	}, seen)
}

func countOf(list []string, v string) int {
	n := 0
	for _, s := range list {
		if s == v {
			n++
		}
	}
	return n
}
