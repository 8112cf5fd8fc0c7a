package root

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"steppal/cmd/steppal/ui"
)

func newClaimCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "claim",
		Short: "Claim mined coins into the balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, cleanup, err := openEnv()
			if err != nil {
				return err
			}
			defer cleanup()

			claimed, state, events, err := e.engine.ClaimPendingCoins(ctx, e.logger, flags.userID, e.now)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if claimed == 0 {
				fmt.Fprintln(out, ui.Muted.Render("Nothing to claim yet, keep walking"))
			} else {
				fmt.Fprintln(out, ui.Gold.Render(fmt.Sprintf("%s Claimed %s coins, balance %s", ui.IconCoin, humanize.Comma(claimed), humanize.Comma(state.Coins.Balance))))
			}
			renderEvents(out, state, events)
			return nil
		},
	}
}
