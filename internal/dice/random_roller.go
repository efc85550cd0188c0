package dice

import (
	"log/slog"
	"math/rand/v2"
	"sync"

	gerr "github.com/KirkDiggler/grimoire/internal/errors"
)

// Source is the randomness behind a roller.
//
// Implementations must be safe for concurrent use.
type Source interface {
	// IntN returns a value in [0, n). n is always > 0.
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int {
	return rand.IntN(n)
}

// seededSource is a deterministic PCG stream behind a mutex.
type seededSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededSource returns a Source that yields the same sequence for the
// same seed.
func NewSeededSource(seed uint64) Source {
	return &seededSource{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (s *seededSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// randomRoller implements Roller over a Source
type randomRoller struct {
	source Source
	logger *slog.Logger
}

// NewRandomRoller creates a roller backed by the process-wide generator.
func NewRandomRoller() Roller {
	return &randomRoller{source: globalSource{}, logger: slog.Default()}
}

// NewRollerWithSource creates a roller drawing from the given source.
func NewRollerWithSource(source Source, logger *slog.Logger) Roller {
	if source == nil {
		source = globalSource{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &randomRoller{source: source, logger: logger}
}

// Roll implements Roller.Roll
func (r *randomRoller) Roll(count, sides, bonus int) (*RollResult, error) {
	if count < 1 {
		return nil, gerr.InvalidArgumentf("invalid dice count %d", count)
	}
	if sides < 1 {
		return nil, gerr.InvalidArgumentf("invalid dice size %d", sides)
	}

	rolls := make([]int, count)
	for i := range rolls {
		rolls[i] = r.source.IntN(sides) + 1
	}

	result := newRollResult(rolls, sides, bonus)
	r.logger.Debug("rolled dice",
		"count", count,
		"sides", sides,
		"bonus", bonus,
		"rolls", rolls,
		"total", result.Total)

	return result, nil
}
