package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/grimoire/internal/config"
	"github.com/KirkDiggler/grimoire/internal/logger"
)

// cli lets the command handlers reach the app that PersistentPreRunE
// builds after flags are parsed.
type cli struct {
	app *app
}

func newRootCmd() *cobra.Command {
	var (
		envFile   string
		forceCrit bool
		logCloser io.Closer
	)

	c := &cli{}

	root := &cobra.Command{
		Use:           "grimoire",
		Short:         "Wizard character sheet and spell dice",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}

			log, closer := logger.New(cfg.Log, cmd.ErrOrStderr())
			logCloser = closer

			a, err := bootstrap(cmd.Context(), cfg, log, forceCrit)
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.app != nil {
				if err := c.app.Close(); err != nil {
					return err
				}
			}
			if logCloser != nil {
				return logCloser.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().BoolVar(&forceCrit, "force-crit", false, "treat every damage roll as a critical hit")

	root.AddCommand(actionCommands(c)...)
	root.AddCommand(newPlayCmd(c))

	return root
}

// actionCommands is the command set shared by the one-shot CLI and the
// play loop.
func actionCommands(c *cli) []*cobra.Command {
	return []*cobra.Command{
		newRollCmd(c),
		newReboundCmd(c),
		newRerollCmd(c),
		newCastCmd(c),
		newSpellsCmd(c),
		newPrepareCmd(c),
		newUnprepareCmd(c),
		newLearnCmd(c),
		newFreeCastCmd(c),
		newSheetCmd(c),
		newSkillCmd(c),
		newAbilityCmd(c),
		newLevelCmd(c),
		newDamageCmd(c),
		newHealCmd(c),
		newTempCmd(c),
		newDeathSaveCmd(c),
		newRestCmd(c),
		newHistoryCmd(c),
	}
}
