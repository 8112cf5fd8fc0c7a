package root

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"steppal/cmd/steppal/ui"
)

func newGoalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "goal <daily-steps>",
		Short: "Set the daily step goal",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("daily goal is required")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return errors.New("daily goal must be an integer")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			goal, _ := strconv.ParseInt(args[0], 10, 64)

			ctx := context.Background()
			e, cleanup, err := openEnv()
			if err != nil {
				return err
			}
			defer cleanup()

			state, err := e.engine.UpdateDailyGoal(ctx, e.logger, flags.userID, goal, e.now)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.LabelValue("Daily goal", humanize.Comma(state.Stats.DailyGoal)))
			return nil
		},
	}
}
