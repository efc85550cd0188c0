package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/grimoire/internal/catalog"
	"github.com/KirkDiggler/grimoire/internal/config"
	mockdice "github.com/KirkDiggler/grimoire/internal/dice/mock"
	gerr "github.com/KirkDiggler/grimoire/internal/errors"
	"github.com/KirkDiggler/grimoire/internal/repositories/rollhistory"
)

type CLITestSuite struct {
	suite.Suite

	roller  *mockdice.ManualMockRoller
	history rollhistory.Repository
	cli     *cli
	out     *bytes.Buffer
}

func (s *CLITestSuite) SetupTest() {
	cat, err := catalog.Load()
	s.Require().NoError(err)

	s.roller = mockdice.NewManualMockRoller()
	s.history = rollhistory.NewInMemory(nil)

	a, err := newApp(&appConfig{
		Roller:  s.roller,
		Catalog: cat,
		History: s.history,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	s.Require().NoError(err)

	s.cli = &cli{app: a}
	s.out = &bytes.Buffer{}
}

// run executes one line the way the play loop does and returns its output
func (s *CLITestSuite) run(line string) (string, error) {
	s.out.Reset()
	err := s.cli.runLine(newPlayCmd(s.cli), s.out, strings.Fields(line))
	return s.out.String(), err
}

func (s *CLITestSuite) mustRun(line string) string {
	out, err := s.run(line)
	s.Require().NoError(err, line)
	return out
}

func (s *CLITestSuite) TestRoll_WithRebound() {
	s.roller.SetRolls([]int{3, 3, 12, 4, 5})

	out := s.mustRun("roll 2d6")
	s.Contains(out, "2D6: [3 3] = 6 (range 2-12)")
	s.Contains(out, "rebound available")

	out = s.mustRun("rebound")
	s.Contains(out, "rebound 1!")
	s.Contains(out, "attack 1: d20 12 +0 = 12")
	s.Contains(out, "2D6: [4 5] = 9")
	s.Contains(out, "chain total: 15 over 1 rebounds")
	s.NotContains(out, "rebound available")

	_, err := s.run("rebound")
	s.True(gerr.IsFailedPrecondition(err))

	entries, err := s.history.Recent(context.Background(), 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal("2D6 (rebound 1)", entries[0].Label)
	s.Equal(1, entries[0].Rebounds)
	s.Equal("2D6", entries[1].Label)
}

func (s *CLITestSuite) TestRoll_ChainFlag() {
	s.roller.SetRolls([]int{2, 2, 10, 1, 1, 10, 3, 4})

	out := s.mustRun("roll 2D4 --rebound --label volley")
	s.Contains(out, "rebound 2!")
	s.Contains(out, "chain total: 13 over 2 rebounds")
}

func (s *CLITestSuite) TestRoll_ChainFlagStopsAtLimit() {
	// a d1 pair matches on every roll
	s.roller.SetRolls([]int{1, 1, 10, 1, 1, 10, 1, 1, 10, 1, 1})

	out := s.mustRun("roll 2d1 --rebound --max-rebounds 3")
	s.Contains(out, "rebound 3!")
	s.NotContains(out, "rebound 4!")
	s.Contains(out, "rebound limit of 3 reached")
	s.Zero(s.roller.Remaining())

	entries, err := s.history.Recent(context.Background(), 10)
	s.Require().NoError(err)
	s.Len(entries, 4)

	// the chain can still be continued by hand
	s.roller.SetRolls([]int{10, 1, 1})
	s.Contains(s.mustRun("rebound"), "rebound 4!")
}

func (s *CLITestSuite) TestRoll_ChainFlagDefaultLimit() {
	rolls := []int{1, 1}
	for range defaultMaxRebounds {
		rolls = append(rolls, 10, 1, 1)
	}
	s.roller.SetRolls(rolls)

	out := s.mustRun("roll 2d1 --rebound")
	s.Equal(defaultMaxRebounds, strings.Count(out, "!\n"))
	s.Contains(out, fmt.Sprintf("rebound limit of %d reached", defaultMaxRebounds))
}

func (s *CLITestSuite) TestRoll_MaxReboundsMustBePositive() {
	_, err := s.run("roll 2d6 --rebound --max-rebounds 0")
	s.True(gerr.IsInvalidArgument(err))
}

func (s *CLITestSuite) TestRoll_OversizedNotation() {
	_, err := s.run("roll 99999999999999999999d6")
	s.Require().Error(err)
	s.True(gerr.IsInvalidArgument(err))
}

func (s *CLITestSuite) TestRoll_AttackBonus() {
	s.roller.SetRolls([]int{20, 3, 6})

	out := s.mustRun("roll 1d10 --attacks 1 --bonus 6")
	s.Contains(out, "attack 1: d20 20 +6 = 26 CRIT")
	s.Contains(out, "= 9")
}

func (s *CLITestSuite) TestRoll_BadNotation() {
	_, err := s.run("roll 2q6")
	s.Require().Error(err)
	s.True(gerr.IsInvalidArgument(err))
}

func (s *CLITestSuite) TestCast_DamageSpendsSlot() {
	s.roller.SetRolls([]int{1, 2, 3})

	out := s.mustRun("cast magic missile")
	s.Contains(out, "Magic Missile cast using a level 1 slot")
	s.Contains(out, "[2 3 4] = 9")

	out = s.mustRun("sheet")
	s.Contains(out, "L1 3/4")
}

func (s *CLITestSuite) TestCast_Upcast() {
	s.roller.SetRolls([]int{1, 1, 1, 1})

	s.mustRun("cast magic-missile --slot 2")
	entries, err := s.history.Recent(context.Background(), 1)
	s.Require().NoError(err)
	s.Equal("Magic Missile @2", entries[0].Label)
	s.Equal(8, entries[0].Total)
}

func (s *CLITestSuite) TestCast_ShieldToggles() {
	out := s.mustRun("cast shield")
	s.Contains(out, "Shield is active, cast using a level 1 slot")
	s.Contains(out, "AC 17")

	out = s.mustRun("cast shield")
	s.Contains(out, "Shield ended")
	s.Contains(out, "AC 12")
}

func (s *CLITestSuite) TestCast_UnknownSpellSuggests() {
	_, err := s.run("cast fireblot")
	s.Require().Error(err)
	s.Contains(describe(err), "did you mean: fire-bolt")
}

func (s *CLITestSuite) TestFreeCastAndPrepare() {
	s.mustRun("free thunderwave")
	s.roller.SetRolls([]int{4, 4})

	out := s.mustRun("cast thunderwave")
	s.Contains(out, "using the free cast")
	s.Contains(s.mustRun("sheet"), "spent")

	out = s.mustRun("prepare grease")
	s.Contains(out, "prepared grease (4/12)")
	s.mustRun("unprepare grease")

	_, err := s.run("prepare fireball")
	s.True(gerr.IsFailedPrecondition(err))

	s.mustRun("learn fireball")
	s.Contains(s.mustRun("spells"), "fireball")
}

func (s *CLITestSuite) TestSkill() {
	s.Contains(s.mustRun("skill inv"), "Investigation +8")

	out := s.mustRun("skill athletics --toggle")
	s.Contains(out, "Athletics +2")

	_, err := s.run("skill zzz")
	s.True(gerr.IsNotFound(err))
}

func (s *CLITestSuite) TestVitalsAndShortRest() {
	s.Contains(s.mustRun("damage 20"), "HP 6/26")

	s.roller.SetRolls([]int{3, 5})
	out := s.mustRun("rest short --hit-dice 2")
	s.Contains(out, "rolled [5 7], healed 12")
	s.Contains(out, "HP 18/26")

	s.Contains(s.mustRun("temp 5"), "temp 5")
	s.Contains(s.mustRun("heal 100"), "HP 26/26 temp 5")
}

func (s *CLITestSuite) TestShortRest_ArcaneRecovery() {
	s.roller.SetRolls([]int{1, 1, 1, 1, 1})
	s.mustRun("cast magic-missile --slot 2")

	out := s.mustRun("rest short --arcane")
	s.Contains(out, "arcane recovery: 1 x L2")

	out = s.mustRun("rest short --arcane")
	s.Contains(out, "nothing to recover")
}

func (s *CLITestSuite) TestShortRest_ChosenRecovery() {
	s.roller.SetRolls([]int{1, 1, 1, 1})
	s.mustRun("cast magic-missile --slot 2")
	s.mustRun("cast shield")

	_, err := s.run("rest short --recover 2=2")
	s.True(gerr.IsInvalidArgument(err))
	_, err = s.run("rest short --recover one=1")
	s.True(gerr.IsInvalidArgument(err))
	_, err = s.run("rest short --arcane --recover 1=1")
	s.True(gerr.IsInvalidArgument(err))

	// the greedy plan would take the level 2 slot
	out := s.mustRun("rest short --recover 1=1")
	s.Contains(out, "arcane recovery: 1 x L1")

	sheet := s.mustRun("sheet")
	s.Contains(sheet, "L1 4/4")
	s.Contains(sheet, "L2 2/3")

	_, err = s.run("rest short --recover 2=1")
	s.True(gerr.IsInvalidArgument(err))
}

func (s *CLITestSuite) TestLongRest() {
	s.mustRun("damage 10")
	s.mustRun("deathsave failure")

	out := s.mustRun("rest long")
	s.Contains(out, "long rest: HP 26/26")
	s.NotContains(s.mustRun("sheet"), "death saves")
}

func (s *CLITestSuite) TestLevelAndAbility() {
	s.Contains(s.mustRun("level up"), "level 5, proficiency +3, cantrip tier 2")
	s.Contains(s.mustRun("ability int 20"), "INT 20 (+5)")

	_, err := s.run("ability luck 3")
	s.True(gerr.IsInvalidArgument(err))
	_, err = s.run("level sideways")
	s.True(gerr.IsInvalidArgument(err))
}

func (s *CLITestSuite) TestHistory() {
	s.Contains(s.mustRun("history"), "no rolls yet")

	s.roller.SetRolls([]int{6})
	s.mustRun("roll 1d6 --label init")
	s.Contains(s.mustRun("history"), "init")

	s.Contains(s.mustRun("history --clear"), "history cleared")
	s.Contains(s.mustRun("history"), "no rolls yet")
}

func (s *CLITestSuite) TestHistory_JournalsRestsAndFreeCast() {
	s.mustRun("free magic-missile")
	s.roller.SetRolls([]int{1, 2, 3})
	s.mustRun("cast magic-missile")

	s.mustRun("damage 10")
	s.roller.SetRolls([]int{4})
	s.mustRun("rest short --hit-dice 1")
	s.mustRun("rest long")

	entries, err := s.history.Recent(context.Background(), 10)
	s.Require().NoError(err)

	labels := make([]string, 0, len(entries))
	for _, e := range entries {
		labels = append(labels, e.Label)
	}
	s.Equal([]string{"long rest", "short rest", "Magic Missile", "free cast: magic-missile"}, labels)
	s.Equal(6, entries[1].Total)

	s.Contains(s.mustRun("history"), "short rest")
}

func (s *CLITestSuite) TestPlayLoop() {
	s.roller.SetRolls([]int{2, 5})
	in := strings.NewReader("roll 2d6\n\nbogus\nsheet\nquit\nsheet\n")

	var out bytes.Buffer
	s.Require().NoError(s.cli.play(newPlayCmd(s.cli), in, &out))

	got := out.String()
	s.Contains(got, prompt)
	s.Contains(got, "2D6: [2 5] = 7")
	s.Contains(got, `error: unknown command "bogus"`)
	s.Equal(1, strings.Count(got, "Wizard"))
}

func (s *CLITestSuite) TestPlayLoop_FlagsDoNotLeak() {
	s.roller.SetRolls([]int{10, 3, 4})
	in := strings.NewReader("roll 1d4 --attacks 1\nroll 1d4\n")

	var out bytes.Buffer
	s.Require().NoError(s.cli.play(newPlayCmd(s.cli), in, &out))
	s.Equal(1, strings.Count(out.String(), "attack 1:"))
}

func TestCLITestSuite(t *testing.T) {
	suite.Run(t, new(CLITestSuite))
}

func TestNewApp_RequiresDependencies(t *testing.T) {
	_, err := newApp(&appConfig{})
	require.Error(t, err)

	fields, ok := gerr.GetMeta(err)["validation_errors"].(map[string][]string)
	require.True(t, ok)
	assert.Contains(t, fields, "Roller")
	assert.Contains(t, fields, "Catalog")
	assert.Contains(t, fields, "History")
}

func TestDescribe(t *testing.T) {
	err := gerr.NotFound("unknown spell").WithMeta("suggestions", []string{"shield", "shatter"})
	assert.Equal(t, "error: unknown spell\n  did you mean: shield, shatter", describe(err))

	err = gerr.NewValidationBuilder().Field("hit_dice", "must not be negative").Build().(*gerr.Error)
	assert.Equal(t, "error: validation failed: hit_dice: must not be negative", describe(err))
}

func historyConfig(url string) *config.Config {
	return &config.Config{
		Redis:   config.RedisConfig{URL: url},
		History: config.HistoryConfig{TTL: time.Hour, MaxEntries: 5},
	}
}

func TestNewHistory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("no url keeps memory", func(t *testing.T) {
		repo, closer := newHistory(ctx, historyConfig(""), logger)
		assert.NotNil(t, repo)
		assert.Nil(t, closer)
	})

	t.Run("unreachable redis falls back", func(t *testing.T) {
		repo, closer := newHistory(ctx, historyConfig("redis://127.0.0.1:1"), logger)
		assert.NotNil(t, repo)
		assert.Nil(t, closer)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)

		repo, closer := newHistory(ctx, historyConfig("redis://"+mr.Addr()), logger)
		require.NotNil(t, closer)
		defer closer.Close()

		require.NoError(t, repo.Append(ctx, &rollhistory.Entry{Label: "probe", Total: 4}))
		assert.True(t, mr.Exists("grimoire:rolls"))
		assert.Equal(t, time.Hour, mr.TTL("grimoire:rolls"))
	})
}
