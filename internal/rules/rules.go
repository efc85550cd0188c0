// Package rules holds the pure 5e lookups the engine derives stats from:
// proficiency, the wizard slot progression, ability arithmetic and the
// rest-recovery budgets. Nothing here has state or fails.
package rules

const (
	MinLevel = 1
	MaxLevel = 20

	MinAbilityScore = 1
	MaxAbilityScore = 30

	// MaxSpellLevel is the highest slot level a table row can carry.
	MaxSpellLevel = 9

	// PreparedSpellCap is the fixed number of leveled spells that may be
	// prepared at once. Callers enforce it; the store does not.
	PreparedSpellCap = 12

	// BaseArmorClass is unarmored AC before the DEX modifier.
	BaseArmorClass = 10

	// MageArmorBase is the AC mage armor sets before the DEX modifier.
	MageArmorBase = 13
	// MageArmorBonus is mage armor expressed as a bonus over BaseArmorClass.
	MageArmorBonus = MageArmorBase - BaseArmorClass
)

// wizardSlotsTable is the full-caster (wizard) slot progression keyed by
// character level. Index i is the slot count for spell level i+1.
var wizardSlotsTable = map[int][]int{
	1:  {2},
	2:  {3},
	3:  {4, 2},
	4:  {4, 3},
	5:  {4, 3, 2},
	6:  {4, 3, 3},
	7:  {4, 3, 3, 1},
	8:  {4, 3, 3, 2},
	9:  {4, 3, 3, 3, 1},
	10: {4, 3, 3, 3, 2},
	11: {4, 3, 3, 3, 2, 1},
	12: {4, 3, 3, 3, 2, 1},
	13: {4, 3, 3, 3, 2, 1, 1},
	14: {4, 3, 3, 3, 2, 1, 1},
	15: {4, 3, 3, 3, 2, 1, 1, 1},
	16: {4, 3, 3, 3, 2, 1, 1, 1},
	17: {4, 3, 3, 3, 2, 1, 1, 1, 1},
	18: {4, 3, 3, 3, 3, 1, 1, 1, 1},
	19: {4, 3, 3, 3, 3, 2, 1, 1, 1},
	20: {4, 3, 3, 3, 3, 2, 2, 1, 1},
}

// SlotMax is one row entry of the slot table.
type SlotMax struct {
	Level int
	Max   int
}

// ProficiencyBonus returns ceil(level/4)+1.
func ProficiencyBonus(level int) int {
	return ceilDiv(level, 4) + 1
}

// MaxSlotsForLevel returns the slot maxima for a character level, ordered by
// spell level. Levels outside 1..20 return an empty slice.
func MaxSlotsForLevel(level int) []SlotMax {
	row, ok := wizardSlotsTable[level]
	if !ok {
		return []SlotMax{}
	}

	out := make([]SlotMax, len(row))
	for i, n := range row {
		out[i] = SlotMax{Level: i + 1, Max: n}
	}
	return out
}

// AbilityModifier returns floor((score-10)/2).
func AbilityModifier(score int) int {
	return floorDiv(score-10, 2)
}

// SpellSaveDC returns 8 + proficiency + INT modifier.
func SpellSaveDC(intScore, proficiency int) int {
	return 8 + proficiency + AbilityModifier(intScore)
}

// SpellAttackBonus returns proficiency + INT modifier.
func SpellAttackBonus(intScore, proficiency int) int {
	return proficiency + AbilityModifier(intScore)
}

// SkillModifier adds the proficiency bonus once for proficiency and once
// more for expertise on top of the governing ability modifier.
func SkillModifier(score, proficiency int, proficient, expertise bool) int {
	total := AbilityModifier(score)
	if proficient {
		total += proficiency
	}
	if expertise {
		total += proficiency
	}
	return total
}

// ArcaneRecoveryBudget is the number of slot levels arcane recovery may
// refund: ceil(level/2).
func ArcaneRecoveryBudget(level int) int {
	if level < MinLevel {
		return 0
	}
	return ceilDiv(level, 2)
}

// HitDiceRecovered is how many spent hit dice a long rest returns:
// max(1, floor(level/2)).
func HitDiceRecovered(level int) int {
	n := level / 2
	if n < 1 {
		return 1
	}
	return n
}

// CantripTier is the damage-dice multiplier for cantrips at a character
// level: 1 below 5, 2 from 5, 3 from 11, 4 from 17.
func CantripTier(level int) int {
	switch {
	case level >= 17:
		return 4
	case level >= 11:
		return 3
	case level >= 5:
		return 2
	default:
		return 1
	}
}

// ArmorClass is unarmored AC plus the summed bonuses of active effects.
func ArmorClass(dexScore int, bonuses ...int) int {
	ac := BaseArmorClass + AbilityModifier(dexScore)
	for _, b := range bonuses {
		ac += b
	}
	return ac
}

// ClampLevel bounds a character level to 1..20.
func ClampLevel(level int) int {
	return clamp(level, MinLevel, MaxLevel)
}

// ClampAbilityScore bounds an ability score to 1..30.
func ClampAbilityScore(score int) int {
	return clamp(score, MinAbilityScore, MaxAbilityScore)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ceilDiv(a, b int) int {
	return -floorDiv(-a, b)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
