package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/grimoire/internal/character"
	gerr "github.com/KirkDiggler/grimoire/internal/errors"
	"github.com/KirkDiggler/grimoire/internal/rest"
)

func newRestCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rest",
		Short: "Take a short or long rest",
	}
	cmd.AddCommand(newShortRestCmd(c), newLongRestCmd(c))
	return cmd
}

func newShortRestCmd(c *cli) *cobra.Command {
	var (
		hitDice int
		arcane  bool
		chosen  map[string]int
	)

	cmd := &cobra.Command{
		Use:   "short",
		Short: "Spend hit dice and optionally use arcane recovery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			w := cmd.OutOrStdout()
			state := a.store.Snapshot()

			if arcane && len(chosen) > 0 {
				return gerr.InvalidArgument("use either --arcane or --recover")
			}

			input := &rest.ShortRestInput{HitDice: hitDice}
			switch {
			case len(chosen) > 0:
				plan, err := parseRecovery(chosen)
				if err != nil {
					return err
				}
				input.Recover = plan
			case arcane:
				input.Recover = rest.PlanArcaneRecovery(state)
			}
			if hitDice > 0 {
				fmt.Fprintf(w, "spending %d hit dice, about %d HP\n", hitDice, rest.EstimateHitDiceHealing(state, hitDice))
			}

			out, err := a.rests.ShortRest(cmd.Context(), input)
			if err != nil {
				return err
			}

			if out.HitDice.Spent > 0 {
				fmt.Fprintf(w, "rolled %v, healed %d\n", out.HitDice.Rolls, out.HitDice.Healed)
			}
			switch {
			case out.ArcaneRecovery:
				fmt.Fprintf(w, "arcane recovery: %s\n", recoveryLine(out.Recovered))
			case arcane || len(chosen) > 0:
				fmt.Fprintln(w, "arcane recovery: nothing to recover")
			}
			printHP(cmd, a)
			return nil
		},
	}

	cmd.Flags().IntVar(&hitDice, "hit-dice", 0, "number of hit dice to spend")
	cmd.Flags().BoolVar(&arcane, "arcane", false, "recover the highest used slots the budget allows")
	cmd.Flags().StringToIntVar(&chosen, "recover", nil, "arcane recovery by slot level, e.g. 1=2,2=1")
	return cmd
}

// parseRecovery turns level=count pairs into a recovery plan
func parseRecovery(chosen map[string]int) ([]character.SlotRecovery, error) {
	plan := make([]character.SlotRecovery, 0, len(chosen))
	for key, count := range chosen {
		level, err := strconv.Atoi(key)
		if err != nil {
			return nil, gerr.InvalidArgumentf("slot level %q is not a number", key)
		}
		plan = append(plan, character.SlotRecovery{Level: level, Count: count})
	}
	slices.SortFunc(plan, func(a, b character.SlotRecovery) int { return a.Level - b.Level })
	return plan, nil
}

func recoveryLine(plan []character.SlotRecovery) string {
	parts := make([]string, 0, len(plan))
	for _, r := range plan {
		parts = append(parts, fmt.Sprintf("%d x L%d", r.Count, r.Level))
	}
	return strings.Join(parts, ", ")
}

func newLongRestCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "long",
		Short: "Restore HP, slots and the per-day resources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.app.rests.LongRest(cmd.Context())
			if err != nil {
				return err
			}
			st := out.State
			fmt.Fprintf(cmd.OutOrStdout(), "long rest: HP %d/%d, hit dice %d/%d\n",
				st.HP.Current, st.HP.Max, st.Level-st.HitDice.Used, st.Level)
			return nil
		},
	}
}
