package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/grimoire/internal/dice/notation"
	gerr "github.com/KirkDiggler/grimoire/internal/errors"
	"github.com/KirkDiggler/grimoire/internal/repositories/rollhistory"
	"github.com/KirkDiggler/grimoire/internal/resolver"
)

const defaultMaxRebounds = 10

func newRollCmd(c *cli) *cobra.Command {
	var (
		attacks int
		bonus   int
		label   string
		chain   bool
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "roll <notation>",
		Short: "Roll dice notation such as 2D6+1 or 3x(1D4+1)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return gerr.InvalidArgument("--max-rebounds must be at least 1")
			}

			spec := strings.Join(args, "")
			req, err := notation.Parse(spec)
			if err != nil {
				return err
			}
			if label == "" {
				label = req.String()
			}

			plan := &resolver.Plan{
				Request: req,
				Options: resolver.Options{AttackCount: attacks, AttackBonus: bonus},
			}
			w := cmd.OutOrStdout()
			if err := c.app.start(cmd.Context(), w, label, plan); err != nil {
				return err
			}

			if !chain {
				return nil
			}
			for c.app.seq.CanRebound() {
				if c.app.seq.Rebounds() >= limit {
					fmt.Fprintf(w, "rebound limit of %d reached\n", limit)
					break
				}
				if err := c.app.rebound(cmd.Context(), w); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&attacks, "attacks", 0, "number of d20 attack rolls gating the damage")
	cmd.Flags().IntVar(&bonus, "bonus", 0, "attack bonus added to each d20")
	cmd.Flags().StringVar(&label, "label", "", "name stored with the roll in the history")
	cmd.Flags().BoolVar(&chain, "rebound", false, "keep rebounding while the dice match")
	cmd.Flags().IntVar(&limit, "max-rebounds", defaultMaxRebounds, "stop --rebound after this many rebounds")

	return cmd
}

func newReboundCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rebound",
		Short: "Roll a rebound off matching dice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.rebound(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func newRerollCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reroll",
		Short: "Replace the last roll with a fresh one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.seq.Reroll(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "rerolling...")
			return c.app.reveal(cmd.Context(), cmd.OutOrStdout(), c.app.label+" (reroll)")
		},
	}
}

// start drops any finished roll and walks a new plan to its result
func (a *app) start(ctx context.Context, w io.Writer, label string, plan *resolver.Plan) error {
	if a.forceCrit {
		plan.Options.ForceCrit = true
	}

	a.seq.Reset()
	a.label = label
	if err := a.seq.Start(plan); err != nil {
		return err
	}
	return a.reveal(ctx, w, label)
}

func (a *app) rebound(ctx context.Context, w io.Writer) error {
	if err := a.seq.Rebound(); err != nil {
		return err
	}
	fmt.Fprintf(w, "rebound %d!\n", a.seq.Rebounds())
	return a.reveal(ctx, w, fmt.Sprintf("%s (rebound %d)", a.label, a.seq.Rebounds()))
}

// reveal steps the sequence through every reveal, printing each stage, and
// records the settled roll.
func (a *app) reveal(ctx context.Context, w io.Writer, label string) error {
	if len(a.seq.Current().Attacks) > 0 {
		attacks, err := a.seq.RevealAttack()
		if err != nil {
			return err
		}
		for i, at := range attacks {
			fmt.Fprintf(w, "  attack %d: d20 %d %+d = %d%s\n", i+1, at.Roll, at.Bonus, at.Total, attackNote(at))
		}
	}

	if _, err := a.seq.RevealDamage(); err != nil {
		return err
	}
	result, err := a.seq.Finish()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s: %v = %d (range %d-%d)\n", result.Notation, result.Rolls, result.Total, result.Min, result.Max)
	if a.seq.Rebounds() > 0 {
		fmt.Fprintf(w, "chain total: %d over %d rebounds\n", a.seq.Total(), a.seq.Rebounds())
	}
	if a.seq.CanRebound() {
		fmt.Fprintln(w, "matching dice: rebound available")
	}

	entry := rollhistory.FromResult(label, result)
	entry.Rebounds = a.seq.Rebounds()
	if err := a.history.Append(ctx, entry); err != nil {
		// history is best effort
		a.logger.Warn("failed to record roll", "label", label, "error", err)
	}
	return nil
}

func attackNote(at *resolver.AttackResult) string {
	switch {
	case at.Critical:
		return " CRIT"
	case at.Fumble:
		return " fumble"
	default:
		return ""
	}
}

// describe renders an error with the hints carried in its metadata
func describe(err error) string {
	var b strings.Builder
	b.WriteString("error: ")
	b.WriteString(err.Error())

	if s, ok := gerr.GetMeta(err)["suggestions"].([]string); ok && len(s) > 0 {
		fmt.Fprintf(&b, "\n  did you mean: %s", strings.Join(s, ", "))
	}
	return b.String()
}
