// Package resolver turns dice notation into randomized roll results:
// standard rolls, projectile volleys, attack-gated damage and critical
// doubling.
package resolver

import (
	"log/slog"

	"github.com/KirkDiggler/grimoire/internal/dice"
	"github.com/KirkDiggler/grimoire/internal/dice/notation"
	gerr "github.com/KirkDiggler/grimoire/internal/errors"
)

// Config holds the dependencies for the resolver
type Config struct {
	Roller dice.Roller
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

// Resolver rolls parsed damage requests.
type Resolver struct {
	roller dice.Roller
	logger *slog.Logger
}

// New creates a resolver with the provided dependencies
func New(cfg *Config) (*Resolver, error) {
	if cfg == nil {
		return nil, gerr.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, gerr.Wrap(err, "invalid resolver config")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{
		roller: cfg.Roller,
		logger: logger,
	}, nil
}

// MaxAttacks bounds the attack rolls gating a single damage roll
const MaxAttacks = 20

// Resolve parses spec and rolls it. Malformed notation or a failing roller
// yields a zero result; spell content is expected to be well formed, so the
// failure is logged rather than returned.
func (r *Resolver) Resolve(spec string, opts Options) *RollResult {
	req, err := notation.Parse(spec)
	if err != nil {
		r.logger.Error("malformed dice notation in content",
			"notation", spec,
			"error", err)
		return &RollResult{Notation: spec}
	}

	result, err := r.ResolveRequest(req, opts)
	if err != nil {
		r.logger.Error("failed to resolve dice",
			"notation", spec,
			"error", err)
		return &RollResult{Notation: spec}
	}
	return result
}

// ResolveRequest rolls an already parsed request.
func (r *Resolver) ResolveRequest(req *notation.Request, opts Options) (*RollResult, error) {
	if req == nil {
		return nil, gerr.InvalidArgument("request is required")
	}
	if opts.AttackCount < 0 || opts.AttackCount > MaxAttacks {
		return nil, gerr.InvalidArgumentf("attack count must be between 0 and %d", MaxAttacks).
			WithMeta("attack_count", opts.AttackCount)
	}

	var (
		result *RollResult
		err    error
	)
	if opts.AttackCount > 0 {
		result, err = r.resolveAttacks(req, opts)
	} else {
		result, err = r.resolveDamage(req, opts.ForceCrit)
	}
	if err != nil {
		return nil, err
	}

	result.Notation = req.String()
	result.Min, result.Max = Range(req, opts)

	r.logger.Debug("resolved roll",
		"notation", result.Notation,
		"total", result.Total,
		"rolls", result.Rolls,
		"attacks", len(result.Attacks),
		"critical", result.Critical)

	return result, nil
}

func (r *Resolver) resolveDamage(req *notation.Request, critical bool) (*RollResult, error) {
	dmg, err := r.rollDamage(req, critical)
	if err != nil {
		return nil, err
	}

	return &RollResult{
		Total:    dmg.Total,
		Rolls:    dmg.Rolls,
		Sides:    dmg.Sides,
		Modifier: dmg.Modifier,
		MultiHit: req.Kind == notation.KindVolley,
		Critical: critical,
	}, nil
}

func (r *Resolver) resolveAttacks(req *notation.Request, opts Options) (*RollResult, error) {
	result := &RollResult{
		Sides:    req.Sides,
		Modifier: req.Modifier,
		MultiHit: opts.AttackCount > 1 || req.Kind == notation.KindVolley,
		Attacks:  make([]*AttackResult, 0, opts.AttackCount),
	}

	for i := 0; i < opts.AttackCount; i++ {
		attack, err := r.roller.Roll(1, 20, opts.AttackBonus)
		if err != nil {
			return nil, gerr.Wrapf(err, "failed to roll attack %d", i+1)
		}

		critical := attack.IsCrit || opts.ForceCrit
		dmg, err := r.rollDamage(req, critical)
		if err != nil {
			return nil, gerr.Wrapf(err, "failed to roll damage for attack %d", i+1)
		}

		result.Attacks = append(result.Attacks, &AttackResult{
			Roll:     attack.Rolls[0],
			Bonus:    opts.AttackBonus,
			Total:    attack.Total,
			Critical: critical,
			Fumble:   attack.IsFumble && !opts.ForceCrit,
			Damage:   dmg,
		})
		result.Rolls = append(result.Rolls, dmg.Rolls...)
		result.Total += dmg.Total
		result.Critical = result.Critical || critical
	}

	return result, nil
}

// rollDamage rolls one damage batch. A critical doubles the dice of each
// projectile, never the modifier.
func (r *Resolver) rollDamage(req *notation.Request, critical bool) (*DamageRoll, error) {
	count := req.Count
	if critical {
		count *= 2
	}

	dmg := &DamageRoll{
		Sides:    req.Sides,
		Modifier: req.Modifier,
		Critical: critical,
	}

	if req.Kind != notation.KindVolley {
		roll, err := r.roller.Roll(count, req.Sides, req.Modifier)
		if err != nil {
			return nil, gerr.Wrap(err, "failed to roll damage dice")
		}
		dmg.Rolls = roll.Rolls
		dmg.Total = roll.Total
		return dmg, nil
	}

	dmg.Rolls = make([]int, 0, req.Projectiles)
	for i := 0; i < req.Projectiles; i++ {
		roll, err := r.roller.Roll(count, req.Sides, req.Modifier)
		if err != nil {
			return nil, gerr.Wrapf(err, "failed to roll projectile %d", i+1)
		}
		dmg.Rolls = append(dmg.Rolls, roll.Total)
		dmg.Total += roll.Total
	}
	return dmg, nil
}

// Range is the display range of a request under the given options.
func Range(req *notation.Request, opts Options) (lo, hi int) {
	if req == nil {
		return 0, 0
	}

	perHit := req
	if opts.ForceCrit {
		perHit = req.WithCount(req.Count * 2)
	}
	lo, hi = perHit.Min(), perHit.Max()

	if opts.AttackCount > 0 {
		// any single attack may crit, so the ceiling uses doubled dice
		hi = req.WithCount(req.Count*2).Max() * opts.AttackCount
		lo *= opts.AttackCount
	}
	return lo, hi
}
