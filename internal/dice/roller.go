package dice

//go:generate mockgen -destination=mock/mock_roller.go -package=mockdice -source=roller.go

// Roller provides an interface for rolling dice
// This allows us to inject different implementations for testing
type Roller interface {
	// Roll rolls a number of dice with the given sides and adds a bonus
	Roll(count, sides, bonus int) (*RollResult, error)
}

// RollResult is the outcome of a single Roll call.
type RollResult struct {
	Total    int   // Sum of all dice plus bonus
	Rolls    []int // Individual die results
	Bonus    int   // Bonus applied
	Count    int   // Number of dice rolled
	Sides    int   // Number of sides on each die
	RawTotal int   // Sum of dice before bonus

	// Only meaningful for a single d20
	IsCrit   bool
	IsFumble bool
}

// newRollResult fills the derived fields for a set of rolled faces.
func newRollResult(rolls []int, sides, bonus int) *RollResult {
	raw := 0
	for _, r := range rolls {
		raw += r
	}

	result := &RollResult{
		Total:    raw + bonus,
		Rolls:    rolls,
		Bonus:    bonus,
		Count:    len(rolls),
		Sides:    sides,
		RawTotal: raw,
	}

	if len(rolls) == 1 && sides == 20 {
		result.IsCrit = rolls[0] == 20
		result.IsFumble = rolls[0] == 1
	}

	return result
}

// NewRollResult builds a RollResult from already rolled faces. Scripted
// rollers use it so their results carry the same derived fields.
func NewRollResult(rolls []int, sides, bonus int) *RollResult {
	return newRollResult(rolls, sides, bonus)
}
