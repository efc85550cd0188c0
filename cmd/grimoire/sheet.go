package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/grimoire/internal/catalog"
	"github.com/KirkDiggler/grimoire/internal/character"
	gerr "github.com/KirkDiggler/grimoire/internal/errors"
	"github.com/KirkDiggler/grimoire/internal/rules"
)

func newSheetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sheet",
		Short: "Show the character sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			st := a.store.Snapshot()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			fmt.Fprintf(tw, "%s\tlevel %d\tproficiency %+d\n", st.Name, st.Level, st.ProficiencyBonus)
			fmt.Fprintf(tw, "HP %d/%d", st.HP.Current, st.HP.Max)
			if st.HP.Temp > 0 {
				fmt.Fprintf(tw, " (+%d temp)", st.HP.Temp)
			}
			fmt.Fprintf(tw, "\tAC %d\tsave DC %d\tspell attack %+d\n", a.store.ArmorClass(), a.store.SpellSaveDC(), a.store.SpellAttackBonus())

			for _, ab := range character.Abilities {
				fmt.Fprintf(tw, "%s\t%d\t%+d\n", ab, st.Abilities[ab], st.Modifier(ab))
			}

			fmt.Fprint(tw, "slots")
			for _, p := range st.Slots {
				fmt.Fprintf(tw, "\tL%d %d/%d", p.Level, p.Available(), p.Max)
			}
			fmt.Fprintln(tw)

			fmt.Fprintf(tw, "hit dice\t%d/%d d%d\n", st.Level-st.HitDice.Used, st.Level, st.HitDice.DieSize)
			fmt.Fprintf(tw, "free cast\t%s\n", freeCastLine(st.DailyFreeCast))
			fmt.Fprintf(tw, "arcane recovery\t%s\n", usedLine(st.ArcaneRecoveryUsed))
			for _, ch := range st.Charges {
				fmt.Fprintf(tw, "%s\t%d/%d\n", ch.Name, ch.Current, ch.Max)
			}
			if st.DeathSaves != (character.DeathSaves{}) {
				fmt.Fprintf(tw, "death saves\t%d ok / %d failed\n", st.DeathSaves.Successes, st.DeathSaves.Failures)
			}
			for _, e := range st.ActiveEffects {
				fmt.Fprintf(tw, "effect\t%s\t%s %+d\n", e.Name, e.Kind, e.Value)
			}

			return tw.Flush()
		},
	}
}

func freeCastLine(f character.FreeCast) string {
	switch {
	case !f.Available:
		return "spent"
	case f.Assigned():
		return "ready: " + f.SpellID
	default:
		return "unassigned"
	}
}

func usedLine(used bool) string {
	if used {
		return "used"
	}
	return "ready"
}

func newSkillCmd(c *cli) *cobra.Command {
	var toggle bool

	cmd := &cobra.Command{
		Use:   "skill [name]",
		Short: "Show skill modifiers, or one skill by name",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			w := cmd.OutOrStdout()

			if len(args) == 0 {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				for _, sk := range a.store.Snapshot().Skills {
					mod, _ := a.store.SkillModifier(sk.Name)
					fmt.Fprintf(tw, "%s\t%s\t%+d\t%s\n", sk.Name, sk.Ability, mod, proficiencyMark(sk))
				}
				return tw.Flush()
			}

			name, err := resolveSkill(a.store, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if toggle {
				a.store.ToggleSkill(name)
			}
			mod, _ := a.store.SkillModifier(name)
			fmt.Fprintf(w, "%s %+d\n", name, mod)
			return nil
		},
	}

	cmd.Flags().BoolVar(&toggle, "toggle", false, "cycle none, proficient, expertise")
	return cmd
}

func proficiencyMark(sk character.Skill) string {
	switch {
	case sk.Expertise:
		return "expertise"
	case sk.Proficient:
		return "proficient"
	default:
		return ""
	}
}

// resolveSkill accepts an exact name, or a near miss with a single
// candidate.
func resolveSkill(store *character.Store, query string) (string, error) {
	names := store.SkillNames()
	for _, n := range names {
		if strings.EqualFold(n, query) {
			return n, nil
		}
	}

	near := catalog.Closest(query, names)
	if len(near) == 1 {
		return near[0], nil
	}

	err := gerr.NotFoundf("unknown skill %q", query)
	if len(near) > 0 {
		err = err.WithMeta("suggestions", near)
	}
	return "", err
}

func newAbilityCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "ability <code> <score>",
		Short: "Set an ability score, clamped to 1..30",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, ok := character.ParseAbility(args[0])
			if !ok {
				return gerr.InvalidArgumentf("unknown ability %q", args[0])
			}
			score, err := parseAmount(args[1])
			if err != nil {
				return err
			}

			c.app.store.UpdateAbility(code, score)
			st := c.app.store.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d (%+d)\n", code, st.Abilities[code], st.Modifier(code))
			return nil
		},
	}
}

func newLevelCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:       "level <up|down>",
		Short:     "Change the character level",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch strings.ToLower(args[0]) {
			case "up":
				c.app.store.LevelUp()
			case "down":
				c.app.store.LevelDown()
			default:
				return gerr.InvalidArgumentf("level takes up or down, got %q", args[0])
			}

			st := c.app.store.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "level %d, proficiency %+d, cantrip tier %d\n",
				st.Level, st.ProficiencyBonus, rules.CantripTier(st.Level))
			return nil
		},
	}
}

func newDamageCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "damage <amount>",
		Short: "Take damage, temporary HP first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			c.app.store.TakeDamage(n)
			printHP(cmd, c.app)
			return nil
		},
	}
}

func newHealCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "heal <amount>",
		Short: "Heal up to max HP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			c.app.store.Heal(n)
			printHP(cmd, c.app)
			return nil
		},
	}
}

func newTempCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "temp <amount>",
		Short: "Set temporary HP, keeping the higher value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			c.app.store.SetTempHP(n)
			printHP(cmd, c.app)
			return nil
		},
	}
}

func newDeathSaveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:       "deathsave <success|failure>",
		Short:     "Mark a death saving throw",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"success", "failure"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch strings.ToLower(args[0]) {
			case "success", "s":
				c.app.store.MarkDeathSave(true)
			case "failure", "f":
				c.app.store.MarkDeathSave(false)
			default:
				return gerr.InvalidArgumentf("deathsave takes success or failure, got %q", args[0])
			}

			ds := c.app.store.Snapshot().DeathSaves
			fmt.Fprintf(cmd.OutOrStdout(), "death saves: %d ok / %d failed\n", ds.Successes, ds.Failures)
			return nil
		},
	}
}

func printHP(cmd *cobra.Command, a *app) {
	hp := a.store.HP()
	fmt.Fprintf(cmd.OutOrStdout(), "HP %d/%d temp %d\n", hp.Current, hp.Max, hp.Temp)
}

func parseAmount(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, gerr.InvalidArgumentf("%q is not a number", s)
	}
	return n, nil
}
