package root

import (
	"context"

	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the pet, steps, coins, challenges and achievements",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, cleanup, err := openEnv()
			if err != nil {
				return err
			}
			defer cleanup()

			state, err := e.engine.Get(ctx, e.logger, flags.userID, e.now)
			if err != nil {
				return err
			}
			renderState(cmd.OutOrStdout(), state, e.now)
			return nil
		},
	}
}
