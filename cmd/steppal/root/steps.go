package root

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"steppal/cmd/steppal/ui"
	"steppal/steppal"
)

func newStepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "steps <count>",
		Short: "Submit newly walked steps",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("step count is required")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return errors.New("step count must be an integer")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := strconv.ParseInt(args[0], 10, 64)

			ctx := context.Background()
			e, cleanup, err := openEnv()
			if err != nil {
				return err
			}
			defer cleanup()

			if steps < 1 || steps > e.config.MaxStepsPerSubmission {
				return fmt.Errorf("%w: must be between 1 and %s", steppal.ErrInvalidSteps, humanize.Comma(e.config.MaxStepsPerSubmission))
			}

			state, events, err := e.engine.ApplyStepDelta(ctx, e.logger, flags.userID, steps, e.now)
			if err != nil {
				return err
			}
			credited := state.Stats.LastCreditedSteps
			out := cmd.OutOrStdout()
			if credited < steps {
				fmt.Fprintln(out, ui.Warn.Render(fmt.Sprintf("%s of %s steps credited, daily cap of %s reached",
					humanize.Comma(credited), humanize.Comma(steps), humanize.Comma(e.config.DailyStepCap))))
			} else {
				fmt.Fprintln(out, ui.Good.Render(fmt.Sprintf("%s %s steps credited", ui.IconSteps, humanize.Comma(credited))))
			}
			renderEvents(out, state, events)
			return nil
		},
	}
}
