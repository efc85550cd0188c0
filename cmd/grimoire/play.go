package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

const prompt = "grimoire> "

func newPlayCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Run an interactive session on one character",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.play(cmd, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// play reads one command per line until EOF or quit. The character and the
// roll in progress live for the whole loop.
func (c *cli) play(parent *cobra.Command, in io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(w, `type "help" for commands, "quit" to leave`)
	for {
		fmt.Fprint(w, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(w)
			break
		}

		args := strings.Fields(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "quit" || args[0] == "exit" {
			break
		}

		if err := c.runLine(parent, w, args); err != nil {
			fmt.Fprintln(w, describe(err))
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	return nil
}

// runLine executes one line against a fresh command tree so flags never
// leak from one line into the next.
func (c *cli) runLine(parent *cobra.Command, w io.Writer, args []string) error {
	line := &cobra.Command{
		Use:           "grimoire",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	line.AddCommand(actionCommands(c)...)
	line.SetArgs(args)
	line.SetOut(w)
	line.SetErr(w)

	return line.ExecuteContext(parent.Context())
}
