// Package rest composes store operations into the short and long rest
// workflows.
package rest

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/KirkDiggler/grimoire/internal/character"
	gerr "github.com/KirkDiggler/grimoire/internal/errors"
	"github.com/KirkDiggler/grimoire/internal/events"
	"github.com/KirkDiggler/grimoire/internal/rules"
)

// Config holds the dependencies for the rest resolver
type Config struct {
	Store *character.Store
	// Bus is optional; rests are announced on it.
	Bus    *events.Bus
	Logger *slog.Logger
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := gerr.NewValidationBuilder()

	if c.Store == nil {
		vb.RequiredField("Store")
	}

	return vb.Build()
}

// Resolver runs rest workflows against one store
type Resolver struct {
	store  *character.Store
	bus    *events.Bus
	logger *slog.Logger
}

// NewResolver creates a rest resolver with the provided dependencies
func NewResolver(cfg *Config) (*Resolver, error) {
	if cfg == nil {
		return nil, gerr.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, gerr.Wrap(err, "invalid rest config")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{
		store:  cfg.Store,
		bus:    cfg.Bus,
		logger: logger,
	}, nil
}

// ShortRestInput is what the player chose to spend
type ShortRestInput struct {
	HitDice int
	// Recover is the arcane recovery plan; empty skips arcane recovery.
	Recover []character.SlotRecovery
}

// ShortRestOutput reports what the rest gave back
type ShortRestOutput struct {
	HitDice        *character.HitDiceRoll
	Recovered      []character.SlotRecovery
	ArcaneRecovery bool
}

// ShortRest spends hit dice, then applies the arcane recovery plan. An
// invalid plan rejects the whole rest before anything changes.
func (r *Resolver) ShortRest(ctx context.Context, input *ShortRestInput) (*ShortRestOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, gerr.Wrap(err, "short rest cancelled")
	}
	if input == nil {
		return nil, gerr.InvalidArgument("input is required")
	}

	state := r.store.Snapshot()
	if err := ValidateShortRest(state, input); err != nil {
		return nil, err
	}

	output := &ShortRestOutput{
		HitDice: r.store.SpendHitDice(input.HitDice),
	}

	plan := compact(input.Recover)
	if len(plan) > 0 {
		r.store.RecoverSlots(plan)
		r.store.UseArcaneRecovery()
		output.Recovered = plan
		output.ArcaneRecovery = true
	}

	r.logger.Info("short rest",
		"hit_dice", output.HitDice.Spent,
		"healed", output.HitDice.Healed,
		"recovered", len(output.Recovered))

	r.announce(events.EventTypeOnShortRest, output.HitDice.Healed)
	return output, nil
}

// LongRestOutput reports the state after a long rest
type LongRestOutput struct {
	State *character.State
}

// LongRest restores the character and resets the per-day charges and
// death saves.
func (r *Resolver) LongRest(ctx context.Context) (*LongRestOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, gerr.Wrap(err, "long rest cancelled")
	}

	r.store.LongRest()
	r.store.ResetCharges()
	r.store.ResetDeathSaves()

	state := r.store.Snapshot()
	r.logger.Info("long rest",
		"level", state.Level,
		"hp", state.HP.Current,
		"hit_dice_used", state.HitDice.Used)

	return &LongRestOutput{State: state}, nil
}

func (r *Resolver) announce(t events.EventType, amount int) {
	if r.bus == nil {
		return
	}
	if err := r.bus.Emit(events.NewStateChanged(t, "", 0, amount)); err != nil {
		r.logger.Warn("rest listener failed", "event", t, "error", err)
	}
}

// ValidateShortRest checks a short rest request against the current state.
func ValidateShortRest(state *character.State, input *ShortRestInput) error {
	vb := gerr.NewValidationBuilder()

	if input.HitDice < 0 {
		vb.Field("hit_dice", "must not be negative")
	}

	plan := compact(input.Recover)
	if len(plan) == 0 {
		return vb.Build()
	}

	if state.ArcaneRecoveryUsed {
		vb.Field("recover", "arcane recovery already used since the last long rest")
		return vb.Build()
	}

	budget := rules.ArcaneRecoveryBudget(state.Level)
	spent := 0
	for _, r := range plan {
		field := fmt.Sprintf("recover.level_%d", r.Level)

		pool, ok := state.Slot(r.Level)
		switch {
		case r.Count < 0:
			vb.Field(field, "count must not be negative")
			continue
		case !ok:
			vb.Field(field, "no slots at this level")
			continue
		case pool.Used == 0:
			vb.Field(field, "no used slots to recover")
			continue
		case r.Count > pool.Used:
			vb.Fieldf(field, "only %d used slots to recover", pool.Used)
		}
		spent += r.Level * r.Count
	}

	if spent > budget {
		vb.Fieldf("recover", "plan costs %d levels, budget is %d", spent, budget)
	}

	return vb.Build()
}

// compact merges entries by level, drops empty ones and orders by level.
// Negative counts are kept so validation can report them.
func compact(plan []character.SlotRecovery) []character.SlotRecovery {
	byLevel := make(map[int]int, len(plan))
	for _, r := range plan {
		byLevel[r.Level] += r.Count
	}

	out := make([]character.SlotRecovery, 0, len(byLevel))
	for level, count := range byLevel {
		if count != 0 {
			out = append(out, character.SlotRecovery{Level: level, Count: count})
		}
	}
	slices.SortFunc(out, func(a, b character.SlotRecovery) int { return a.Level - b.Level })
	return out
}

// PlanArcaneRecovery builds the default plan: spend the budget on the
// highest used slots first.
func PlanArcaneRecovery(state *character.State) []character.SlotRecovery {
	if state == nil || state.ArcaneRecoveryUsed {
		return nil
	}

	remaining := rules.ArcaneRecoveryBudget(state.Level)
	var plan []character.SlotRecovery
	for i := len(state.Slots) - 1; i >= 0 && remaining > 0; i-- {
		pool := state.Slots[i]
		if pool.Used == 0 || pool.Level > remaining {
			continue
		}
		n := min(pool.Used, remaining/pool.Level)
		plan = append(plan, character.SlotRecovery{Level: pool.Level, Count: n})
		remaining -= n * pool.Level
	}
	return plan
}

// EstimateHitDiceHealing is the median heal for spending n hit dice, shown
// before the dice are rolled. Each die heals at least 1, so the total is
// floored at the number of dice spent.
func EstimateHitDiceHealing(state *character.State, n int) int {
	if state == nil || n <= 0 {
		return 0
	}
	n = min(n, state.Level-state.HitDice.Used)
	if n <= 0 {
		return 0
	}

	conMod := state.Modifier(character.AbilityConstitution)
	// floor(n * ((1+die)/2 + con)) in integers
	estimate := floorDiv(n*(1+state.HitDice.DieSize+2*conMod), 2)
	return max(n, estimate)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
