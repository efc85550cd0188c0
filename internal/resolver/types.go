package resolver

// Options tweak how a request is resolved.
type Options struct {
	// AttackCount > 0 gates damage behind that many d20 attack rolls.
	AttackCount int
	AttackBonus int
	// ForceCrit treats every damage roll as a critical hit.
	ForceCrit bool
}

// DamageRoll is one batch of damage dice.
type DamageRoll struct {
	Rolls    []int
	Sides    int
	Modifier int
	Total    int
	Critical bool
}

// HasMatch reports whether two or more faces of this roll are equal.
func (d *DamageRoll) HasMatch() bool {
	return HasMatch(d.Rolls)
}

// AttackResult is one attack of a multi-attack sequence.
type AttackResult struct {
	Roll     int
	Bonus    int
	Total    int
	Critical bool
	Fumble   bool
	Damage   *DamageRoll
}

// RollResult is the outcome of a single resolver call. It is never mutated
// after being returned; a reroll produces a new one.
type RollResult struct {
	Notation string
	Total    int
	// Rolls holds the displayed faces. Volley faces include the per-projectile
	// bonus; multi-attack results list every damage face in attack order.
	Rolls    []int
	Sides    int
	Modifier int
	MultiHit bool
	Critical bool
	Attacks  []*AttackResult

	Min int
	Max int
}

// HasMatch reports whether the damage of this result allows a rebound. For
// attack sequences any attack whose damage shows a pair counts.
func (r *RollResult) HasMatch() bool {
	if r == nil {
		return false
	}
	if len(r.Attacks) == 0 {
		return HasMatch(r.Rolls)
	}
	for _, a := range r.Attacks {
		if a.Damage != nil && a.Damage.HasMatch() {
			return true
		}
	}
	return false
}

// IsZero reports whether this is the degenerate result of a failed resolve.
func (r *RollResult) IsZero() bool {
	return r == nil || (r.Total == 0 && len(r.Rolls) == 0 && len(r.Attacks) == 0)
}

// HasMatch reports whether any face value appears at least twice.
func HasMatch(rolls []int) bool {
	seen := make(map[int]struct{}, len(rolls))
	for _, v := range rolls {
		if _, ok := seen[v]; ok {
			return true
		}
		seen[v] = struct{}{}
	}
	return false
}
