package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/grimoire/internal/casting"
	"github.com/KirkDiggler/grimoire/internal/catalog"
	"github.com/KirkDiggler/grimoire/internal/rules"
)

func newCastCmd(c *cli) *cobra.Command {
	var slot int

	cmd := &cobra.Command{
		Use:   "cast <spell>",
		Short: "Cast a spell, paying with a slot, the free cast or a charge",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.app.caster.Cast(cmd.Context(), &casting.CastInput{
				SpellID:   strings.Join(args, " "),
				SlotLevel: slot,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s\n", out.Spell.Name, castSummary(out))

			switch out.Outcome {
			case casting.OutcomeEffectAdded, casting.OutcomeEffectRemoved:
				fmt.Fprintf(w, "AC %d\n", c.app.store.ArmorClass())
			case casting.OutcomeDamage:
				label := out.Spell.Name
				if out.SlotLevel > out.Spell.Level {
					label = fmt.Sprintf("%s @%d", out.Spell.Name, out.SlotLevel)
				}
				return c.app.start(cmd.Context(), w, label, out.Plan)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&slot, "slot", 0, "slot level to cast from, defaults to the spell's level")
	return cmd
}

func castSummary(out *casting.CastOutput) string {
	var paid string
	switch out.Payment {
	case casting.PaymentSlot:
		paid = fmt.Sprintf("using a level %d slot", out.SlotLevel)
	case casting.PaymentFreeCast:
		paid = "using the free cast"
	case casting.PaymentCharge:
		paid = fmt.Sprintf("spending a %s charge", out.Spell.Charge)
	default:
		paid = "at no cost"
	}

	switch out.Outcome {
	case casting.OutcomeEffectAdded:
		return "is active, cast " + paid
	case casting.OutcomeEffectRemoved:
		return "ended"
	default:
		return "cast " + paid
	}
}

func newSpellsCmd(c *cli) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "spells",
		Short: "List the spellbook, or every spell with --all",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			state := c.app.store.Snapshot()

			fmt.Fprintf(w, "prepared %d/%d\n", casting.PreparedCount(state, c.app.catalog), rules.PreparedSpellCap)
			for level := 0; level <= rules.MaxSpellLevel; level++ {
				for _, s := range c.app.catalog.ByLevel(level) {
					known := c.app.store.IsKnown(s.ID)
					if !all && !known {
						continue
					}
					fmt.Fprintf(w, "  %s %-22s %s\n", spellMarker(c.app, s, known), s.ID, spellTags(s))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include spells outside the spellbook")
	return cmd
}

// spellMarker is * for prepared, + for known only, space otherwise
func spellMarker(a *app, s *catalog.Spell, known bool) string {
	switch {
	case a.store.IsPrepared(s.ID) || (known && s.AlwaysPrepared()):
		return "*"
	case known:
		return "+"
	default:
		return " "
	}
}

func spellTags(s *catalog.Spell) string {
	tags := []string{fmt.Sprintf("L%d", s.Level)}
	if s.HasDamage() {
		tags = append(tags, s.Damage.Dice+" "+strings.ToLower(s.Damage.Type))
	}
	if s.Concentration {
		tags = append(tags, "concentration")
	}
	if s.Ritual {
		tags = append(tags, "ritual")
	}
	if s.IsExempt() {
		tags = append(tags, strings.ToLower(s.School))
	}
	return strings.Join(tags, ", ")
}

func newPrepareCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "prepare <spell>",
		Short: "Prepare a spell from the spellbook",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.Join(args, " ")
			if err := c.app.caster.Prepare(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "prepared %s (%d/%d)\n", id,
				casting.PreparedCount(c.app.store.Snapshot(), c.app.catalog), rules.PreparedSpellCap)
			return nil
		},
	}
}

func newUnprepareCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "unprepare <spell>",
		Short: "Remove a spell from the prepared list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.Join(args, " ")
			if err := c.app.caster.Unprepare(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unprepared %s\n", id)
			return nil
		},
	}
}

func newLearnCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "learn <spell>",
		Short: "Copy a spell into the spellbook",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spell, err := c.app.catalog.Find(strings.Join(args, " "))
			if err != nil {
				return err
			}
			c.app.store.LearnSpell(spell.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "learned %s\n", spell.Name)
			return nil
		},
	}
}

func newFreeCastCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "free <spell>",
		Short: "Commit today's free cast to a leveled spell",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.Join(args, " ")
			if err := c.app.caster.AssignFreeCast(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "free cast assigned to %s\n", c.app.store.Snapshot().DailyFreeCast.SpellID)
			return nil
		},
	}
}
