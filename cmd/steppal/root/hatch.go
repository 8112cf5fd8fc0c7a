package root

import (
	"context"

	"github.com/spf13/cobra"
)

func newHatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hatch",
		Short: "Hatch the pet egg",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, cleanup, err := openEnv()
			if err != nil {
				return err
			}
			defer cleanup()

			state, events, err := e.engine.HatchEgg(ctx, e.logger, flags.userID, e.now)
			if err != nil {
				return err
			}
			renderEvents(cmd.OutOrStdout(), state, events)
			return nil
		},
	}
}
