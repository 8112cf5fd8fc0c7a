package root

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"steppal/cmd/steppal/ui"
)

func newChallengeClaimCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "challenge-claim <challenge-id>",
		Short: "Claim the reward of a completed challenge",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("challenge id is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, cleanup, err := openEnv()
			if err != nil {
				return err
			}
			defer cleanup()

			state, events, err := e.engine.ClaimChallenge(ctx, e.logger, flags.userID, args[0], e.now)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if c, ok := state.Challenges[args[0]]; ok {
				fmt.Fprintln(out, ui.Gold.Render(fmt.Sprintf("%s %s claimed for %s coins", ui.IconTarget, c.Title, humanize.Comma(c.Reward))))
			}
			renderEvents(out, state, events)
			return nil
		},
	}
}
