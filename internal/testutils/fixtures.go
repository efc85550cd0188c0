package testutils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/KirkDiggler/grimoire/internal/character"
	mockdice "github.com/KirkDiggler/grimoire/internal/dice/mock"
	"github.com/KirkDiggler/grimoire/internal/repositories/rollhistory"
)

// CreateTestState returns the default loadout at the given level
func CreateTestState(level int) *character.State {
	state := character.DefaultState()
	state.Level = level
	return state
}

// CreateTestStore builds a store at level with hit dice scripted to rolls
func CreateTestStore(t *testing.T, level int, rolls ...int) (*character.Store, *mockdice.ManualMockRoller) {
	t.Helper()

	roller := mockdice.NewManualMockRoller(rolls...)
	store, err := character.NewStore(&character.Config{
		Initial: CreateTestState(level),
		Roller:  roller,
	})
	require.NoError(t, err)

	return store, roller
}

// CreateTestEntry builds a roll history entry with fixed id and time
func CreateTestEntry(id, label string, total int, at time.Time) *rollhistory.Entry {
	return &rollhistory.Entry{
		ID:        id,
		Label:     label,
		Notation:  "2D6",
		Total:     total,
		Rolls:     []int{total / 2, total - total/2},
		CreatedAt: at,
	}
}
