package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"steppal/cmd/steppal/ui"
	"steppal/steppal"
)

func newTickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Apply vitals decay to every pet in the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, cleanup, err := openEnv()
			if err != nil {
				return err
			}
			defer cleanup()

			scheduler, err := steppal.NewDecayScheduler(e.logger, e.engine, e.store, clock(e.now), e.config.DecayCronexpr, e.engine.Calendar().Location())
			if err != nil {
				return err
			}
			n, err := scheduler.RunOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Render(fmt.Sprintf("Vitals decay applied to %d pets", n)))
			return nil
		},
	}
}
