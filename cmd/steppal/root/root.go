package root

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"steppal/cmd/steppal/ui"
)

const Version = "0.1.0"

type globalFlags struct {
	dbPath     string
	configPath string
	userID     string
	now        string
	verbose    bool
}

var flags globalFlags

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "steppal",
		Short:         "StepPal: walk to grow your virtual pet",
		Long:          "StepPal turns step counts into pet progression, mined coins, streaks, challenges and achievements, stored in a local SQLite database.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.dbPath, "db", "steppal.db", "path of the SQLite database")
	pf.StringVar(&flags.configPath, "config", "", "path of a step engine JSON config, built-in rules when empty")
	pf.StringVar(&flags.userID, "user", "local", "user id to act as")
	pf.StringVar(&flags.now, "now", "", "evaluate at this RFC 3339 time instead of the current time")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log engine activity to stderr")
	_ = pf.MarkHidden("now")

	cmd.AddCommand(
		newInitCmd(),
		newShowCmd(),
		newStepsCmd(),
		newClaimCmd(),
		newCareCmd(),
		newHatchCmd(),
		newChallengeClaimCmd(),
		newGoalCmd(),
		newTickCmd(),
	)
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Bad.Render(ui.IconError+" "+err.Error()))
		os.Exit(1)
	}
}
