package resolver

import (
	"github.com/KirkDiggler/grimoire/internal/dice/notation"
	"github.com/KirkDiggler/grimoire/internal/rules"
)

// Scaling is how a spell grows when cast from a higher slot.
type Scaling int

const (
	ScalingNone Scaling = iota
	// ScalingDice adds PerLevel dice per slot level above the spell's level.
	ScalingDice
	// ScalingProjectile adds PerLevel projectiles per extra slot level.
	ScalingProjectile
	// ScalingAttack adds PerLevel attacks per extra slot level.
	ScalingAttack
)

// UpcastRule describes one spell's damage scaling.
type UpcastRule struct {
	Scaling  Scaling
	PerLevel int
	// Attacks is the base number of attack rolls; 0 means the spell hits
	// without an attack roll.
	Attacks int
}

// RuleTable maps spell ids to their upcast rules.
type RuleTable map[string]UpcastRule

// DefaultRules covers the damage spells of the bundled catalog.
func DefaultRules() RuleTable {
	return RuleTable{
		"fire-bolt":     {Attacks: 1},
		"ray-of-frost":  {Attacks: 1},
		"burning-hands": {Scaling: ScalingDice, PerLevel: 1},
		"chromatic-orb": {Scaling: ScalingDice, PerLevel: 1, Attacks: 1},
		"thunderwave":   {Scaling: ScalingDice, PerLevel: 1},
		"magic-missile": {Scaling: ScalingProjectile, PerLevel: 1},
		"scorching-ray": {Scaling: ScalingAttack, PerLevel: 1, Attacks: 3},
		"shatter":       {Scaling: ScalingDice, PerLevel: 1},
		"fireball":      {Scaling: ScalingDice, PerLevel: 1},
	}
}

// UpcastInput is everything needed to scale a spell's damage.
type UpcastInput struct {
	SpellID        string
	SpellLevel     int
	SlotLevel      int
	CharacterLevel int
	AttackBonus    int
	Request        *notation.Request
}

// Plan is a request ready to resolve.
type Plan struct {
	Request *notation.Request
	Options Options
}

// Apply scales the request for the slot it is cast from. Cantrips scale
// their die count by character tier instead of slot level.
func (t RuleTable) Apply(in *UpcastInput) *Plan {
	if in == nil || in.Request == nil {
		return &Plan{}
	}

	rule := t[in.SpellID]
	req := in.Request
	attacks := rule.Attacks

	if in.SpellLevel == 0 {
		req = req.WithCount(req.Count * rules.CantripTier(in.CharacterLevel))
	} else if extra := in.SlotLevel - in.SpellLevel; extra > 0 {
		step := rule.PerLevel * extra
		switch rule.Scaling {
		case ScalingDice:
			req = req.WithCount(req.Count + step)
		case ScalingProjectile:
			req = req.WithProjectiles(req.Projectiles + step)
		case ScalingAttack:
			attacks += step
		}
	}

	plan := &Plan{Request: req}
	if attacks > 0 {
		plan.Options = Options{
			AttackCount: attacks,
			AttackBonus: in.AttackBonus,
		}
	}
	return plan
}
