package root

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"steppal/cmd/steppal/ui"
	"steppal/steppal"
)

func newCareCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "care <feed|play|heal|boost>",
		Short:     "Spend coins to care for the pet",
		ValidArgs: []string{"feed", "play", "heal", "boost"},
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("care action is required")
			}
			if _, ok := steppal.CareAction(args[0]).Cost(); !ok {
				return fmt.Errorf("unknown care action %q", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := steppal.CareAction(args[0])
			cost, _ := action.Cost()

			ctx := context.Background()
			e, cleanup, err := openEnv()
			if err != nil {
				return err
			}
			defer cleanup()

			state, events, err := e.engine.ApplyCareAction(ctx, e.logger, flags.userID, action, e.now)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Good.Render(fmt.Sprintf("%s %s for %d coins, %s is %s", ui.IconHeart, action, cost, state.Pet.Name, state.Pet.Mood)))
			renderEvents(out, state, events)
			return nil
		},
	}
}
