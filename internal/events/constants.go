package events

// Event type constants
const (
	// Spell slot events
	EventTypeSlotSpent     EventType = "slot_spent"
	EventTypeSlotRecovered EventType = "slot_recovered"

	// Spell list events
	EventTypeSpellPrepared   EventType = "spell_prepared"
	EventTypeSpellUnprepared EventType = "spell_unprepared"
	EventTypeSpellLearned    EventType = "spell_learned"

	// Vitality events
	EventTypeDamageTaken  EventType = "damage_taken"
	EventTypeHealed       EventType = "healed"
	EventTypeTempHPSet    EventType = "temp_hp_set"
	EventTypeDeathSave    EventType = "death_save"
	EventTypeHitDiceSpent EventType = "hit_dice_spent"

	// Sheet events
	EventTypeLevelChanged   EventType = "level_changed"
	EventTypeAbilityChanged EventType = "ability_changed"
	EventTypeSkillChanged   EventType = "skill_changed"

	// Effect events
	EventTypeEffectAdded   EventType = "effect_added"
	EventTypeEffectRemoved EventType = "effect_removed"

	// Per-day resource events
	EventTypeFreeCastAssigned   EventType = "free_cast_assigned"
	EventTypeFreeCastConsumed   EventType = "free_cast_consumed"
	EventTypeArcaneRecoveryUsed EventType = "arcane_recovery_used"
	EventTypeChargeChanged      EventType = "charge_changed"
	EventTypeOnShortRest        EventType = "on_short_rest"
	EventTypeOnLongRest         EventType = "on_long_rest"
)

// AllStateEvents lists every event the character store can publish.
var AllStateEvents = []EventType{
	EventTypeSlotSpent, EventTypeSlotRecovered,
	EventTypeSpellPrepared, EventTypeSpellUnprepared, EventTypeSpellLearned,
	EventTypeDamageTaken, EventTypeHealed, EventTypeTempHPSet, EventTypeDeathSave, EventTypeHitDiceSpent,
	EventTypeLevelChanged, EventTypeAbilityChanged, EventTypeSkillChanged,
	EventTypeEffectAdded, EventTypeEffectRemoved,
	EventTypeFreeCastAssigned, EventTypeFreeCastConsumed, EventTypeArcaneRecoveryUsed, EventTypeChargeChanged,
	EventTypeOnShortRest, EventTypeOnLongRest,
}

// Priority levels for listener order
const (
	PriorityValidation = 0   // Observers that may cancel
	PriorityDefault    = 100 // Regular consumers
	PriorityAudit      = 500 // Logging, history
)
