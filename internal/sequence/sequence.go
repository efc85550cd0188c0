// Package sequence walks a damage roll through its reveal steps and owns the
// rebound chain. Each step is an explicit call; asking for a step the
// current state does not allow is an error.
package sequence

import (
	"log/slog"

	gerr "github.com/KirkDiggler/grimoire/internal/errors"
	"github.com/KirkDiggler/grimoire/internal/resolver"
)

// State is a reveal step
type State int

const (
	StateIdle State = iota
	StateRolling
	StateAttackShown
	StateDamageShown
	StateResult
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRolling:
		return "rolling"
	case StateAttackShown:
		return "attack_shown"
	case StateDamageShown:
		return "damage_shown"
	case StateResult:
		return "result"
	default:
		return "unknown"
	}
}

// Config holds the dependencies for a sequence
type Config struct {
	Resolver *resolver.Resolver
	Logger   *slog.Logger
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := gerr.NewValidationBuilder()

	if c.Resolver == nil {
		vb.RequiredField("Resolver")
	}

	return vb.Build()
}

// Sequence is one spell's roll from cast to final result, plus any rebounds.
// It is not safe for concurrent use.
type Sequence struct {
	resolver *resolver.Resolver
	logger   *slog.Logger

	state State
	plan  *resolver.Plan
	// chain[0] is the cast itself; later entries are rebounds.
	chain []*resolver.RollResult
}

// New creates an idle sequence
func New(cfg *Config) (*Sequence, error) {
	if cfg == nil {
		return nil, gerr.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, gerr.Wrap(err, "invalid sequence config")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Sequence{
		resolver: cfg.Resolver,
		logger:   logger,
	}, nil
}

// State returns the current step
func (s *Sequence) State() State { return s.state }

// Current is the roll being revealed, nil while idle
func (s *Sequence) Current() *resolver.RollResult {
	if len(s.chain) == 0 {
		return nil
	}
	return s.chain[len(s.chain)-1]
}

// Chain returns every roll of the sequence in order
func (s *Sequence) Chain() []*resolver.RollResult {
	out := make([]*resolver.RollResult, len(s.chain))
	copy(out, s.chain)
	return out
}

// Rebounds is the number of rebound rolls made so far
func (s *Sequence) Rebounds() int {
	return max(0, len(s.chain)-1)
}

// Total sums the damage of the whole chain
func (s *Sequence) Total() int {
	total := 0
	for _, r := range s.chain {
		total += r.Total
	}
	return total
}

func (s *Sequence) illegal(action string) error {
	return gerr.FailedPreconditionf("cannot %s while %s", action, s.state).
		WithMeta("state", s.state.String())
}

func (s *Sequence) roll(plan *resolver.Plan) (*resolver.RollResult, error) {
	result, err := s.resolver.ResolveRequest(plan.Request, plan.Options)
	if err != nil {
		return nil, gerr.Wrap(err, "failed to resolve roll")
	}
	return result, nil
}

// Start rolls the plan and moves to Rolling
func (s *Sequence) Start(plan *resolver.Plan) error {
	if s.state != StateIdle {
		return s.illegal("start")
	}
	if plan == nil || plan.Request == nil {
		return gerr.InvalidArgument("plan with a request is required")
	}

	result, err := s.roll(plan)
	if err != nil {
		return err
	}

	s.plan = plan
	s.chain = []*resolver.RollResult{result}
	s.state = StateRolling
	return nil
}

// RevealAttack shows the attack rolls of an attack-gated roll
func (s *Sequence) RevealAttack() ([]*resolver.AttackResult, error) {
	if s.state != StateRolling {
		return nil, s.illegal("reveal attack")
	}
	current := s.Current()
	if len(current.Attacks) == 0 {
		return nil, gerr.FailedPrecondition("roll has no attack")
	}

	s.state = StateAttackShown
	return current.Attacks, nil
}

// RevealDamage shows the damage. Attack-gated rolls reveal the attack first.
func (s *Sequence) RevealDamage() (*resolver.RollResult, error) {
	current := s.Current()
	switch {
	case s.state == StateAttackShown:
	case s.state == StateRolling && len(current.Attacks) == 0:
	default:
		return nil, s.illegal("reveal damage")
	}

	s.state = StateDamageShown
	return current, nil
}

// Finish settles the roll into Result
func (s *Sequence) Finish() (*resolver.RollResult, error) {
	if s.state != StateDamageShown {
		return nil, s.illegal("finish")
	}

	s.state = StateResult
	current := s.Current()
	s.logger.Debug("roll finished",
		"notation", current.Notation,
		"total", current.Total,
		"rebounds", s.Rebounds(),
		"match", current.HasMatch())
	return current, nil
}

// CanRebound reports whether the finished roll shows a matching pair
func (s *Sequence) CanRebound() bool {
	return s.state == StateResult && s.Current().HasMatch()
}

// Rebound rolls one more attack and damage cycle at a new target. It is only
// allowed from Result when the last roll shows a pair, and can repeat for as
// long as the new rolls keep matching.
func (s *Sequence) Rebound() error {
	if s.state != StateResult {
		return s.illegal("rebound")
	}
	if !s.Current().HasMatch() {
		return gerr.FailedPrecondition("last roll has no matching dice")
	}

	result, err := s.roll(s.reboundPlan())
	if err != nil {
		return err
	}

	s.chain = append(s.chain, result)
	s.state = StateRolling
	return nil
}

// Reroll replaces the last roll of the chain with a fresh one
func (s *Sequence) Reroll() error {
	if s.state != StateResult {
		return s.illegal("reroll")
	}

	plan := s.plan
	if len(s.chain) > 1 {
		plan = s.reboundPlan()
	}

	result, err := s.roll(plan)
	if err != nil {
		return err
	}

	s.chain[len(s.chain)-1] = result
	s.state = StateRolling
	return nil
}

// reboundPlan is a single attack with the original damage and bonus
func (s *Sequence) reboundPlan() *resolver.Plan {
	return &resolver.Plan{
		Request: s.plan.Request,
		Options: resolver.Options{
			AttackCount: 1,
			AttackBonus: s.plan.Options.AttackBonus,
		},
	}
}

// Reset drops the sequence back to Idle from any state
func (s *Sequence) Reset() {
	s.state = StateIdle
	s.plan = nil
	s.chain = nil
}
