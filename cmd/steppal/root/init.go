package root

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"steppal/steppal"
)

func newInitCmd() *cobra.Command {
	var petType string
	cmd := &cobra.Command{
		Use:   "init <pet-name>",
		Short: "Adopt a pet egg",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("pet name is required")
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

			state, err := e.engine.Initialize(ctx, e.logger, flags.userID, args[0], steppal.PetType(petType), e.now)
			if err != nil {
				return err
			}
			renderState(cmd.OutOrStdout(), state, e.now)
			return nil
		},
	}
	cmd.Flags().StringVar(&petType, "type", string(steppal.PetTypePhoenix), "pet type: phoenix, dragon, spirit or nature")
	return cmd
}
