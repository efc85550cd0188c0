package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newHistoryCmd(c *cli) *cobra.Command {
	var (
		limit int
		wipe  bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the recent rolls of this session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			if wipe {
				if err := c.app.history.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(w, "history cleared")
				return nil
			}

			entries, err := c.app.history.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(w, "no rolls yet")
				return nil
			}

			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			for _, e := range entries {
				note := ""
				if e.Critical {
					note = "crit"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%v\t%d\t%s\n",
					e.CreatedAt.Local().Format("15:04:05"), e.Label, e.Notation, e.Rolls, e.Total, note)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "number of rolls to show")
	cmd.Flags().BoolVar(&wipe, "clear", false, "forget every stored roll")
	return cmd
}
